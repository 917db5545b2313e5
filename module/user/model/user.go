package model

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	mgo "SNProject/service/mgo"
)

// User 用户主档。UserID 全局唯一且不可变；展示字段可变。
type User struct {
	UserID   string `bson:"user_id" json:"userId"` // 主键
	Nickname string `bson:"nickname" json:"nickname"`
	FaceURL  string `bson:"face_url" json:"faceUrl"` // 头像URL
	Bio      string `bson:"bio,omitempty" json:"bio,omitempty"`

	CreateTime time.Time `bson:"create_time" json:"-"`
	UpdateTime time.Time `bson:"update_time" json:"-"`
}

// PublicProfile 对外快照：消息扇出时做反规范化展示用。
type PublicProfile struct {
	UserID   string `bson:"user_id" json:"userId"`
	Nickname string `bson:"nickname" json:"nickname"`
	FaceURL  string `bson:"face_url" json:"faceUrl"`
}

func (u *User) GetTableName() string { return "user" }

func (u *User) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(u.GetTableName())
}

func (u *User) Public() PublicProfile {
	return PublicProfile{UserID: u.UserID, Nickname: u.Nickname, FaceURL: u.FaceURL}
}
