package chat

import (
	"context"
	"sync"

	chatmodel "SNProject/module/chat/model"
	usermodel "SNProject/module/user/model"
	"SNProject/tools/safe"
	security "SNProject/tools/security"
)

// ===== 存储面 =====
// handler 只依赖这几个窄接口；生产实现是 module/{chat,user}/service，
// 单测换 fake。

type ConversationStore interface {
	IsParticipant(ctx context.Context, convID, userID string) (bool, error)
}

type MessageStore interface {
	SaveMessage(ctx context.Context, convID, sendID, content string) (*chatmodel.Message, error)
	GetMessage(ctx context.Context, msgID string) (*chatmodel.Message, error)
	UpsertReaction(ctx context.Context, msgID, userID, kind string) error
	RemoveReaction(ctx context.Context, msgID, userID string) error
	ListReactions(ctx context.Context, msgID string) ([]chatmodel.Reaction, error)
	UpsertDeletion(ctx context.Context, msgID, userID string, forEveryone bool) error
}

type ProfileStore interface {
	PublicProfile(ctx context.Context, userID string) (*usermodel.PublicProfile, error)
}

// SessionStore 连接流水（可选，nil 则不记审计）。
type SessionStore interface {
	RecordConnect(ctx context.Context, sessionID, userID, ip, userAgent string) error
	RecordDisconnect(ctx context.Context, sessionID string) error
}

// ===== 服务器 =====

type Options struct {
	JWT security.Options

	Sessions SessionStore // 连接审计流水，可为 nil

	FanoutWorkers int // 默认 4
	FanoutQueue   int // 默认 256
	SendQueueSize int // 每连接发送队列，默认 64
}

// Server 实时网关：presence 注册表、会话路由、扇出池的唯一持有者。
// 进程启动时 New，退出时 Close；外部只通过方法访问，不暴露裸 map。
type Server struct {
	opts Options

	registry *Registry
	rooms    *Rooms
	fanout   *Fanout
	disp     *Dispatcher

	convs    ConversationStore
	msgs     MessageStore
	profiles ProfileStore

	closeOnce sync.Once
}

func NewServer(convs ConversationStore, msgs MessageStore, profiles ProfileStore, opts Options) *Server {
	safe.MustNotNil(convs, "conversation store")
	safe.MustNotNil(msgs, "message store")
	safe.MustNotNil(profiles, "profile store")
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = 64
	}
	return &Server{
		opts:     opts,
		registry: NewRegistry(),
		rooms:    NewRooms(),
		fanout:   NewFanout(opts.FanoutWorkers, opts.FanoutQueue),
		disp:     NewDispatcher(),
		convs:    convs,
		msgs:     msgs,
		profiles: profiles,
	}
}

func (s *Server) Registry() *Registry     { return s.registry }
func (s *Server) Rooms() *Rooms           { return s.rooms }
func (s *Server) Disp() *Dispatcher       { return s.disp }
func (s *Server) Convs() ConversationStore { return s.convs }
func (s *Server) Msgs() MessageStore      { return s.msgs }
func (s *Server) Profiles() ProfileStore  { return s.profiles }

// BroadcastRoom 把负载送到会话组里的所有连接（含发送者自己的连接）。
func (s *Server) BroadcastRoom(convID string, payload []byte) {
	s.fanout.Broadcast(s.rooms.Members(convID), payload)
}

// BroadcastAll 全网广播（presence 事件）。exclude 为要跳过的连接ID。
func (s *Server) BroadcastAll(payload []byte, exclude string) {
	conns := s.registry.Conns()
	if exclude != "" {
		kept := conns[:0]
		for _, c := range conns {
			if c.ConnID != exclude {
				kept = append(kept, c)
			}
		}
		conns = kept
	}
	s.fanout.Broadcast(conns, payload)
}

// SendTo 只投递给指定连接（“仅本人删除”回执用）。
func (s *Server) SendTo(c *Client, payload []byte) {
	s.fanout.Broadcast([]*Client{c}, payload)
}

func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.fanout.Close()
		s.registry.close()
	})
}
