package handlers

import (
	"context"

	"SNProject/logger"
	chatmodel "SNProject/module/chat/model"
	"SNProject/service/chat"
)

// ReactHandler 表情回应：(msg, user) 后写覆盖；reaction 为 null 则删除
// 记录。广播重读后的全量回应集，不发增量。
type ReactHandler struct{ s *chat.Server }

func NewReactHandler(s *chat.Server) chat.Handler { return &ReactHandler{s: s} }

func (h *ReactHandler) Type() chat.FrameType { return chat.FrameReactMessage }

func (h *ReactHandler) Handle(ctx context.Context, c *chat.Client, f *chat.Frame) error {
	p, err := chat.DecodePayload[chat.ReactPayload](f)
	if err != nil || p.MsgID == "" || p.ConversationID == "" {
		logger.Warnf("[react] bad payload conn=%s: %v", c.ConnID, err)
		return nil
	}

	ok, err := h.s.Convs().IsParticipant(ctx, p.ConversationID, c.UserID)
	if err != nil {
		logger.Errorf("[react] participant check conv=%s user=%s: %v", p.ConversationID, c.UserID, err)
		return nil
	}
	if !ok {
		logger.Warnf("[react] not a participant, dropped conv=%s user=%s", p.ConversationID, c.UserID)
		return nil
	}

	if p.Reaction == nil || *p.Reaction == "" {
		err = h.s.Msgs().RemoveReaction(ctx, p.MsgID, c.UserID)
	} else {
		if !chatmodel.ValidReaction(*p.Reaction) {
			logger.Warnf("[react] unknown kind %q dropped msg=%s user=%s", *p.Reaction, p.MsgID, c.UserID)
			return nil
		}
		err = h.s.Msgs().UpsertReaction(ctx, p.MsgID, c.UserID, *p.Reaction)
	}
	if err != nil {
		logger.Errorf("[react] persist failed msg=%s user=%s: %v", p.MsgID, c.UserID, err)
		return nil
	}

	reactions, err := h.s.Msgs().ListReactions(ctx, p.MsgID)
	if err != nil {
		logger.Errorf("[react] reread failed msg=%s: %v", p.MsgID, err)
		return nil
	}
	h.s.BroadcastRoom(p.ConversationID, chat.BuildReactionUpdated(p.MsgID, reactions))
	return nil
}
