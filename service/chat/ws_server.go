package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"SNProject/logger"
	midsec "SNProject/middleware/security"
	"SNProject/tools/errs"
	"SNProject/tools/safe"
	security "SNProject/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	pongWait      = 75 * time.Second
	dispatchBound = 10 * time.Second
)

// HandleWS 实时通道入口。
//
// 令牌在握手时校验一次（升级前），失败直接 401，不建立任何状态；
// 连接存续期内不做令牌刷新。
func (s *Server) HandleWS(c *gin.Context) {
	token := midsec.ExtractToken(c, midsec.DefaultOptions(s.opts.JWT))
	userID, err := security.Verify(s.opts.JWT, token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.CodeOf(err))
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		logger.Infof("[ws] upgrade error user=%s: %v", userID, err)
		return
	}

	client := NewClient(uuid.NewString(), userID, ws, s.opts.SendQueueSize)
	wasOnline := s.registry.Add(client)
	go client.writePump()
	s.auditConnect(client, c.ClientIP(), c.Request.UserAgent())

	if !wasOnline {
		s.BroadcastAll(BuildPresence(true, userID), client.ConnID)
	}
	logger.Infof("[ws] connected user=%s conn=%s online=%d", userID, client.ConnID, len(s.registry.OnlineUsers()))

	s.readLoop(client)

	// ---- 退出阶段：清房间、摘 presence、收写协程 ----
	s.rooms.Drop(client)
	wentOffline := s.registry.Remove(client)
	client.shutdown()
	if wentOffline {
		s.BroadcastAll(BuildPresence(false, userID), "")
	}
	s.auditDisconnect(client)
	logger.Infof("[ws] disconnected user=%s conn=%s", userID, client.ConnID)
}

// 审计流水是旁路：异步写，失败只记日志。
func (s *Server) auditConnect(c *Client, ip, userAgent string) {
	if s.opts.Sessions == nil {
		return
	}
	safe.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.opts.Sessions.RecordConnect(ctx, c.ConnID, c.UserID, ip, userAgent); err != nil {
			logger.Warnf("[ws] session audit conn=%s: %v", c.ConnID, err)
		}
	})
}

func (s *Server) auditDisconnect(c *Client) {
	if s.opts.Sessions == nil {
		return
	}
	safe.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.opts.Sessions.RecordDisconnect(ctx, c.ConnID); err != nil {
			logger.Warnf("[ws] session audit conn=%s: %v", c.ConnID, err)
		}
	})
}

// readLoop 只读不写；出错即退出（写协程负责关 ws）。
func (s *Server) readLoop(c *Client) {
	c.WS.SetReadLimit(1 << 20) // 1MB
	_ = c.WS.SetReadDeadline(time.Now().Add(pongWait))
	c.WS.SetPongHandler(func(string) error {
		return c.WS.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, rerr := c.WS.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debugf("[ws] peer closed conn=%s: %v", c.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Debugf("[ws] read timeout conn=%s: %v", c.ConnID, rerr)
			} else {
				logger.Debugf("[ws] read err conn=%s: %v", c.ConnID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, perr := ParseFrameJSON(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[ws] bad frame conn=%s err=%v sample=%q", c.ConnID, perr, sample)
			continue
		}

		// 每个入站事件独立跑完；失败只记日志，通道上不回错误帧
		//（见错误语义：授权/持久化失败静默丢弃）。
		ctx, cancel := context.WithTimeout(context.Background(), dispatchBound)
		if err := s.disp.Dispatch(ctx, c, f); err != nil {
			logger.Warnf("[ws] dispatch %s conn=%s user=%s: %v", f.Type, c.ConnID, c.UserID, err)
		}
		cancel()
	}
}
