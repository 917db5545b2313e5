package handlers

import (
	"context"

	"SNProject/logger"
	"SNProject/service/chat"
)

// JoinHandler 把连接加入会话广播组。
// 资格每次 join 都查持久化的成员记录，不走缓存。
type JoinHandler struct{ s *chat.Server }

func NewJoinHandler(s *chat.Server) chat.Handler { return &JoinHandler{s: s} }

func (h *JoinHandler) Type() chat.FrameType { return chat.FrameJoinConversation }

func (h *JoinHandler) Handle(ctx context.Context, c *chat.Client, f *chat.Frame) error {
	p, err := chat.DecodePayload[chat.JoinPayload](f)
	if err != nil || p.ConversationID == "" {
		logger.Warnf("[join] bad payload conn=%s: %v", c.ConnID, err)
		return nil
	}

	ok, err := h.s.Convs().IsParticipant(ctx, p.ConversationID, c.UserID)
	if err != nil {
		logger.Errorf("[join] participant check conv=%s user=%s: %v", p.ConversationID, c.UserID, err)
		return nil
	}
	if !ok {
		// 通道上不回错误帧，仅服务端留痕
		logger.Warnf("[join] not a participant, ignored conv=%s user=%s", p.ConversationID, c.UserID)
		return nil
	}

	h.s.Rooms().Join(p.ConversationID, c)
	logger.Debugf("[join] conv=%s user=%s conn=%s", p.ConversationID, c.UserID, c.ConnID)
	return nil
}
