package model

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	mgo "SNProject/service/mgo"
)

// ConversationType
const (
	ConversationDirect int32 = 1 // 单聊
	ConversationGroup  int32 = 2 // 群聊
)

// Conversation 会话主档（单聊/群聊共用一张集合）。
// 单聊的 DirectKey 取两个参与者ID排序后拼接，配唯一索引，
// 并发创建只会落一条（见 EnsureIndexes）。
type Conversation struct {
	ConversationID   string `bson:"conversation_id" json:"conversationId"` // 主键
	ConversationType int32  `bson:"conversation_type" json:"conversationType"`

	DirectKey string `bson:"direct_key,omitempty" json:"-"` // 仅单聊

	Name    string `bson:"name,omitempty" json:"name,omitempty"`        // 仅群聊
	FaceURL string `bson:"face_url,omitempty" json:"faceUrl,omitempty"` // 群头像

	CreatorID  string    `bson:"creator_id" json:"creatorId"`
	CreateTime time.Time `bson:"create_time" json:"createTime"`
}

func (sess *Conversation) GetTableName() string { return "conversation" }

func (sess *Conversation) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(sess.GetTableName())
}

// DirectKey 规范化的单聊唯一键：participants 排序后用 ':' 连接。
func DirectKey(a, b string) string {
	p := []string{a, b}
	sort.Strings(p)
	return p[0] + ":" + p[1]
}
