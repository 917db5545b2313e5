package model

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	mgo "SNProject/service/mgo"
)

// Participant 会话成员记录。读写会话前必须存在 (conversation, user) 记录。
// 每成员的写操作都先查这张集合，不做进程内缓存。
type Participant struct {
	ConversationID string `bson:"conversation_id" json:"conversationId"`
	UserID         string `bson:"user_id" json:"userId"`

	Nickname string `bson:"nickname,omitempty" json:"nickname,omitempty"` // 会话内昵称
	IsMuted  bool   `bson:"is_muted" json:"isMuted"`
	IsAdmin  bool   `bson:"is_admin" json:"isAdmin"` // 仅群聊有意义

	JoinTime time.Time `bson:"join_time" json:"joinTime"`
}

func (p *Participant) GetTableName() string { return "participant" }

func (p *Participant) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(p.GetTableName())
}
