package handlers

import (
	"context"

	"SNProject/logger"
	"SNProject/service/chat"
)

// DeleteHandler 墓碑标记。forEveryone 仅原发送者可用，违者静默丢弃；
// 全员删除广播全组，仅本人删除只回本连接（其他人的视图不受影响）。
type DeleteHandler struct{ s *chat.Server }

func NewDeleteHandler(s *chat.Server) chat.Handler { return &DeleteHandler{s: s} }

func (h *DeleteHandler) Type() chat.FrameType { return chat.FrameDeleteMessage }

func (h *DeleteHandler) Handle(ctx context.Context, c *chat.Client, f *chat.Frame) error {
	p, err := chat.DecodePayload[chat.DeletePayload](f)
	if err != nil || p.MsgID == "" || p.ConversationID == "" {
		logger.Warnf("[delete] bad payload conn=%s: %v", c.ConnID, err)
		return nil
	}

	ok, err := h.s.Convs().IsParticipant(ctx, p.ConversationID, c.UserID)
	if err != nil {
		logger.Errorf("[delete] participant check conv=%s user=%s: %v", p.ConversationID, c.UserID, err)
		return nil
	}
	if !ok {
		logger.Warnf("[delete] not a participant, dropped conv=%s user=%s", p.ConversationID, c.UserID)
		return nil
	}

	if p.ForEveryone {
		m, err := h.s.Msgs().GetMessage(ctx, p.MsgID)
		if err != nil {
			logger.Errorf("[delete] load message msg=%s: %v", p.MsgID, err)
			return nil
		}
		if m.SendID != c.UserID {
			logger.Warnf("[delete] for-everyone by non-sender, dropped msg=%s user=%s", p.MsgID, c.UserID)
			return nil
		}
	}

	if err := h.s.Msgs().UpsertDeletion(ctx, p.MsgID, c.UserID, p.ForEveryone); err != nil {
		logger.Errorf("[delete] persist failed msg=%s user=%s: %v", p.MsgID, c.UserID, err)
		return nil
	}

	payload := chat.BuildMessageDeleted(p.MsgID, p.ForEveryone)
	if p.ForEveryone {
		h.s.BroadcastRoom(p.ConversationID, payload)
	} else {
		h.s.SendTo(c, payload)
	}
	return nil
}
