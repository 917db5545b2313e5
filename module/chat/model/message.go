package model

import (
	"go.mongodb.org/mongo-driver/mongo"

	mgo "SNProject/service/mgo"
)

// TombstonePlaceholder 全员删除后展示的占位文案。
const TombstonePlaceholder = "This message was deleted"

// Message 消息本体。Content 落库后不可变，删除只打墓碑标记。
// SendTimeMS 由服务端在持久化时刻赋值，是排序依据。
type Message struct {
	MsgID          string `bson:"msg_id" json:"msgId"` // 服务端分配（雪花ID）
	ConversationID string `bson:"conversation_id" json:"conversationId"`
	SendID         string `bson:"send_id" json:"sendId"` // 发送者ID
	Content        string `bson:"content" json:"content"`
	SendTimeMS     int64  `bson:"send_time" json:"sendTime"` // Unix ms
}

func (m *Message) GetTableName() string { return "message" }

func (m *Message) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(m.GetTableName())
}
