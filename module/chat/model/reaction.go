package model

import (
	"go.mongodb.org/mongo-driver/mongo"

	mgo "SNProject/service/mgo"
)

// 固定的表情回应词表。
const (
	ReactionLike  = "like"
	ReactionLove  = "love"
	ReactionLaugh = "laugh"
	ReactionWow   = "wow"
	ReactionSad   = "sad"
	ReactionAngry = "angry"
)

var reactionKinds = map[string]struct{}{
	ReactionLike:  {},
	ReactionLove:  {},
	ReactionLaugh: {},
	ReactionWow:   {},
	ReactionSad:   {},
	ReactionAngry: {},
}

// ValidReaction 判断是否在固定词表内。
func ValidReaction(kind string) bool {
	_, ok := reactionKinds[kind]
	return ok
}

// Reaction 消息回应。(msg, user) 唯一，后写覆盖；没有记录即没有回应。
type Reaction struct {
	MsgID        string `bson:"msg_id" json:"msgId"`
	UserID       string `bson:"user_id" json:"userId"`
	Reaction     string `bson:"reaction" json:"reaction"`
	UpdateTimeMS int64  `bson:"update_time" json:"-"` // Unix ms
}

func (r *Reaction) GetTableName() string { return "reaction" }

func (r *Reaction) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(r.GetTableName())
}
