package chat

import (
	"encoding/json"
	"fmt"

	chatmodel "SNProject/module/chat/model"
	usermodel "SNProject/module/user/model"
	decode "SNProject/tools/decode"
)

// FrameType 实时通道上的事件名。
type FrameType string

// client → server
const (
	FrameJoinConversation FrameType = "join_conversation"
	FrameSendMessage      FrameType = "send_message"
	FrameReactMessage     FrameType = "react_message"
	FrameDeleteMessage    FrameType = "delete_message"
)

// server → client
const (
	FrameNewMessage      FrameType = "new_message"
	FrameReactionUpdated FrameType = "message_reaction_updated"
	FrameMessageDeleted  FrameType = "message_deleted"
	FrameUserOnline      FrameType = "user_online"
	FrameUserOffline     FrameType = "user_offline"
)

// Frame 通道上的统一信封。payload 保持动态，按帧类型再解码。
type Frame struct {
	Type    FrameType      `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

func ParseFrameJSON(raw []byte) (*Frame, error) {
	frame := &Frame{}
	if err := json.Unmarshal(raw, frame); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if frame.Type == "" {
		return nil, fmt.Errorf("frame missing type")
	}
	return frame, nil
}

// ===== 入站负载 =====

type JoinPayload struct {
	ConversationID string `json:"conversationId"`
}

type SendPayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

type ReactPayload struct {
	MsgID          string  `json:"messageId"`
	ConversationID string  `json:"conversationId"`
	Reaction       *string `json:"reaction"` // null/缺省 = 取消回应
}

type DeletePayload struct {
	MsgID          string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	ForEveryone    bool   `json:"forEveryone"`
}

// DecodePayload 按 json tag 把动态负载解码成 T。
func DecodePayload[T any](f *Frame) (*T, error) {
	if f.Payload == nil {
		return nil, fmt.Errorf("frame %s missing payload", f.Type)
	}
	return decode.FromMap[T](f.Payload)
}

// ===== 出站帧构造 =====

type outFrame struct {
	Type    FrameType `json:"type"`
	Payload any       `json:"payload"`
}

func marshalFrame(t FrameType, payload any) []byte {
	b, err := json.Marshal(outFrame{Type: t, Payload: payload})
	if err != nil {
		// 负载全部是本包构造的可序列化结构，到这里只能是编程错误
		panic(err)
	}
	return b
}

type NewMessagePayload struct {
	Message   chatmodel.Message       `json:"message"`
	Sender    usermodel.PublicProfile `json:"sender"`
	Reactions []chatmodel.Reaction    `json:"reactions"`
}

func BuildNewMessage(m *chatmodel.Message, sender usermodel.PublicProfile) []byte {
	return marshalFrame(FrameNewMessage, NewMessagePayload{
		Message:   *m,
		Sender:    sender,
		Reactions: []chatmodel.Reaction{}, // 新消息必然空回应
	})
}

type ReactionUpdatedPayload struct {
	MsgID     string               `json:"messageId"`
	Reactions []chatmodel.Reaction `json:"reactions"`
}

func BuildReactionUpdated(msgID string, reactions []chatmodel.Reaction) []byte {
	if reactions == nil {
		reactions = []chatmodel.Reaction{}
	}
	return marshalFrame(FrameReactionUpdated, ReactionUpdatedPayload{
		MsgID:     msgID,
		Reactions: reactions,
	})
}

type MessageDeletedPayload struct {
	MsgID              string `json:"messageId"`
	DeletedForEveryone bool   `json:"deletedForEveryone"`
}

func BuildMessageDeleted(msgID string, forEveryone bool) []byte {
	return marshalFrame(FrameMessageDeleted, MessageDeletedPayload{
		MsgID:              msgID,
		DeletedForEveryone: forEveryone,
	})
}

type PresencePayload struct {
	UserID string `json:"userId"`
}

func BuildPresence(online bool, userID string) []byte {
	t := FrameUserOnline
	if !online {
		t = FrameUserOffline
	}
	return marshalFrame(t, PresencePayload{UserID: userID})
}
