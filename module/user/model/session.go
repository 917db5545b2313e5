package model

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	mgo "SNProject/service/mgo"
)

const (
	SessionOnline  = "online"
	SessionOffline = "offline"
)

// ConnectionSession 实时连接的审计记录。presence 本身只活在内存里，
// 这张表是事后排查用的流水：谁、从哪个IP、什么时候连上/断开。
type ConnectionSession struct {
	SessionID string `bson:"session_id" json:"sessionId"` // 连接ID（UUID）
	UserID    string `bson:"user_id" json:"userId"`

	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"userAgent,omitempty"`

	ConnectTime    time.Time  `bson:"connect_time" json:"connectTime"`
	DisconnectTime *time.Time `bson:"disconnect_time,omitempty" json:"disconnectTime,omitempty"`
	Status         string     `bson:"status" json:"status"` // online/offline
}

func (s *ConnectionSession) GetTableName() string { return "connection_session" }

func (s *ConnectionSession) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(s.GetTableName())
}
