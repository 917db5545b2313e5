package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"SNProject/module/user/model"
	"SNProject/tools/errs"
)

// SessionService 连接流水。写入都是 best-effort：审计缺一条不影响
// 实时链路，调用方只记日志。
type SessionService struct{}

func NewSessionService() *SessionService { return &SessionService{} }

func (s *SessionService) RecordConnect(ctx context.Context, sessionID, userID, ip, userAgent string) error {
	rec := &model.ConnectionSession{
		SessionID:   sessionID,
		UserID:      userID,
		IP:          ip,
		UserAgent:   userAgent,
		ConnectTime: time.Now(),
		Status:      model.SessionOnline,
	}
	if _, err := rec.Collection().InsertOne(ctx, rec); err != nil {
		return errs.ErrPersistence.WrapMsg("insert session", "session", sessionID, "err", err)
	}
	return nil
}

func (s *SessionService) RecordDisconnect(ctx context.Context, sessionID string) error {
	now := time.Now()
	_, err := (&model.ConnectionSession{}).Collection().UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"status":          model.SessionOffline,
			"disconnect_time": now,
		}})
	if err != nil {
		return errs.ErrPersistence.WrapMsg("close session", "session", sessionID, "err", err)
	}
	return nil
}
