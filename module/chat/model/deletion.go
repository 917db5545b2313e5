package model

import (
	"go.mongodb.org/mongo-driver/mongo"

	mgo "SNProject/service/mgo"
)

// DeletionMarker 墓碑标记。(msg, user) 唯一，upsert 语义。
// ForEveryone 只有原发送者能写；false 表示仅对本人隐藏。
type DeletionMarker struct {
	MsgID        string `bson:"msg_id" json:"msgId"`
	UserID       string `bson:"user_id" json:"userId"`
	ForEveryone  bool   `bson:"for_everyone" json:"forEveryone"`
	CreateTimeMS int64  `bson:"create_time" json:"-"` // Unix ms
}

func (d *DeletionMarker) GetTableName() string { return "message_deletion" }

func (d *DeletionMarker) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(d.GetTableName())
}
