package handlers

import (
	"context"
	"strings"

	"SNProject/logger"
	"SNProject/service/chat"
)

// SendHandler 消息发送：校验资格 → 落库（服务端时间戳）→ 查发送者
// 公开档案做反规范化 → 全组广播（含发送者自己的连接，由客户端对齐
// 乐观本地状态）。持久化失败只记日志，不广播也不回执。
type SendHandler struct{ s *chat.Server }

func NewSendHandler(s *chat.Server) chat.Handler { return &SendHandler{s: s} }

func (h *SendHandler) Type() chat.FrameType { return chat.FrameSendMessage }

func (h *SendHandler) Handle(ctx context.Context, c *chat.Client, f *chat.Frame) error {
	p, err := chat.DecodePayload[chat.SendPayload](f)
	if err != nil || p.ConversationID == "" {
		logger.Warnf("[send] bad payload conn=%s: %v", c.ConnID, err)
		return nil
	}
	if strings.TrimSpace(p.Content) == "" {
		logger.Warnf("[send] empty content dropped conv=%s user=%s", p.ConversationID, c.UserID)
		return nil
	}

	ok, err := h.s.Convs().IsParticipant(ctx, p.ConversationID, c.UserID)
	if err != nil {
		logger.Errorf("[send] participant check conv=%s user=%s: %v", p.ConversationID, c.UserID, err)
		return nil
	}
	if !ok {
		logger.Warnf("[send] not a participant, dropped conv=%s user=%s", p.ConversationID, c.UserID)
		return nil
	}

	m, err := h.s.Msgs().SaveMessage(ctx, p.ConversationID, c.UserID, p.Content)
	if err != nil {
		logger.Errorf("[send] persist failed conv=%s user=%s: %v", p.ConversationID, c.UserID, err)
		return nil
	}

	sender, err := h.s.Profiles().PublicProfile(ctx, c.UserID)
	if err != nil {
		logger.Errorf("[send] profile lookup user=%s: %v", c.UserID, err)
		return nil
	}

	h.s.BroadcastRoom(p.ConversationID, chat.BuildNewMessage(m, *sender))
	return nil
}
