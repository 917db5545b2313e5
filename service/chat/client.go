package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SNProject/logger"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 25 * time.Second
)

// Client represents one authenticated websocket session.
// Send is the per-connection outbound queue, consumed by a single
// writer goroutine; everyone else only ever enqueues.
type Client struct {
	ConnID string
	UserID string
	WS     *websocket.Conn
	Send   chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
	}
}

// writePump 单写协程：出队写帧 + 周期 ping。Send 关闭或写失败即退出。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.WS.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			if !ok {
				_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.WS.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debugf("[ws] write err conn=%s user=%s: %v", c.ConnID, c.UserID, err)
				return
			}
		case <-ticker.C:
			if err := c.WS.WriteControl(websocket.PingMessage, []byte("ping"),
				time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// enqueue 非阻塞入队；队列满或连接已收尾则丢帧（至多一次交付约定）。
// 与 shutdown 互斥：Send 只会在没有入队方持锁时被关闭。
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// shutdown 标记连接收尾并关闭 Send（通知 writePump 退出）。幂等。
// 关闭动作持同一把锁，扇出队列里残留的旧任务之后只会拿到 closed。
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}
