package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"SNProject/module/chat/model"
	"SNProject/tools/errs"
	ids "SNProject/tools/ids"
)

type MessageService struct{}

func NewMessageService() *MessageService { return &MessageService{} }

// SaveMessage 落库一条新消息。MsgID 与 SendTimeMS 由服务端在此刻赋值。
func (s *MessageService) SaveMessage(ctx context.Context, convID, sendID, content string) (*model.Message, error) {
	m := &model.Message{
		MsgID:          ids.GenerateString(),
		ConversationID: convID,
		SendID:         sendID,
		Content:        content,
		SendTimeMS:     time.Now().UnixMilli(),
	}
	if _, err := m.Collection().InsertOne(ctx, m); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("insert message", "conv", convID, "err", err)
	}
	return m, nil
}

func (s *MessageService) GetMessage(ctx context.Context, msgID string) (*model.Message, error) {
	var m model.Message
	err := (&model.Message{}).Collection().FindOne(ctx, bson.M{"msg_id": msgID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrRecordNotFound.WrapMsg("message", "msg", msgID)
	}
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("find message", "msg", msgID, "err", err)
	}
	return &m, nil
}

// UpsertReaction (msg, user) 唯一，后写覆盖。
func (s *MessageService) UpsertReaction(ctx context.Context, msgID, userID, kind string) error {
	_, err := (&model.Reaction{}).Collection().UpdateOne(ctx,
		bson.M{"msg_id": msgID, "user_id": userID},
		bson.M{"$set": bson.M{
			"reaction":    kind,
			"update_time": time.Now().UnixMilli(),
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return errs.ErrPersistence.WrapMsg("upsert reaction", "msg", msgID, "user", userID, "err", err)
	}
	return nil
}

// RemoveReaction 删除该用户在该消息上的回应；不存在也不算错。
func (s *MessageService) RemoveReaction(ctx context.Context, msgID, userID string) error {
	_, err := (&model.Reaction{}).Collection().
		DeleteOne(ctx, bson.M{"msg_id": msgID, "user_id": userID})
	if err != nil {
		return errs.ErrPersistence.WrapMsg("remove reaction", "msg", msgID, "user", userID, "err", err)
	}
	return nil
}

// ListReactions 重读全量回应集（广播发全量，不发增量）。
func (s *MessageService) ListReactions(ctx context.Context, msgID string) ([]model.Reaction, error) {
	cur, err := (&model.Reaction{}).Collection().Find(ctx, bson.M{"msg_id": msgID})
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("list reactions", "msg", msgID, "err", err)
	}
	defer cur.Close(ctx)

	out := []model.Reaction{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("decode reactions", "msg", msgID, "err", err)
	}
	return out, nil
}

// UpsertDeletion 写墓碑标记。调用方负责 ForEveryone 的发送者校验。
func (s *MessageService) UpsertDeletion(ctx context.Context, msgID, userID string, forEveryone bool) error {
	_, err := (&model.DeletionMarker{}).Collection().UpdateOne(ctx,
		bson.M{"msg_id": msgID, "user_id": userID},
		bson.M{"$set": bson.M{
			"for_everyone": forEveryone,
			"create_time":  time.Now().UnixMilli(),
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return errs.ErrPersistence.WrapMsg("upsert deletion", "msg", msgID, "user", userID, "err", err)
	}
	return nil
}

const (
	historyDefaultLimit = 50
	historyMaxLimit     = 200
)

// clampHistoryLimit 未给定取默认页，超上限收到最大页。
func clampHistoryLimit(limit int64) int64 {
	if limit <= 0 {
		return historyDefaultLimit
	}
	if limit > historyMaxLimit {
		return historyMaxLimit
	}
	return limit
}

// HistoryEntry 水合后的历史条目。
type HistoryEntry struct {
	Message   model.Message    `json:"message"`
	Reactions []model.Reaction `json:"reactions"`
	Deleted   bool             `json:"deleted"` // 全员墓碑（内容已替换）
}

// History 按 send_time 逆序取最近 limit 条再转回时间序，
// 然后按 viewer 视角做墓碑调和（见 ReconcileHistory）。
func (s *MessageService) History(ctx context.Context, convID, viewerID string, limit int64) ([]HistoryEntry, error) {
	limit = clampHistoryLimit(limit)
	cur, err := (&model.Message{}).Collection().Find(ctx,
		bson.M{"conversation_id": convID},
		options.Find().SetSort(bson.D{{Key: "send_time", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("find history", "conv", convID, "err", err)
	}
	defer cur.Close(ctx)

	var msgs []model.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("decode history", "conv", convID, "err", err)
	}
	// 转回时间序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if len(msgs) == 0 {
		return []HistoryEntry{}, nil
	}

	msgIDs := make([]string, 0, len(msgs))
	for _, m := range msgs {
		msgIDs = append(msgIDs, m.MsgID)
	}

	reactions, err := s.reactionsByMsg(ctx, msgIDs)
	if err != nil {
		return nil, err
	}
	markers, err := s.markersByMsg(ctx, msgIDs)
	if err != nil {
		return nil, err
	}

	return ReconcileHistory(msgs, reactions, markers, viewerID), nil
}

// ReconcileHistory 纯函数：套用墓碑语义。
//   - viewer 自己的个人墓碑 → 整条剔除
//   - 任何 for_everyone 墓碑 → 保留但内容替换为占位文案
func ReconcileHistory(msgs []model.Message, reactions map[string][]model.Reaction,
	markers map[string][]model.DeletionMarker, viewerID string) []HistoryEntry {

	out := make([]HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		hiddenForViewer := false
		deletedForAll := false
		for _, d := range markers[m.MsgID] {
			if d.ForEveryone {
				deletedForAll = true
			} else if d.UserID == viewerID {
				hiddenForViewer = true
			}
		}
		if hiddenForViewer {
			continue
		}
		entry := HistoryEntry{Message: m, Reactions: reactions[m.MsgID]}
		if entry.Reactions == nil {
			entry.Reactions = []model.Reaction{}
		}
		if deletedForAll {
			entry.Message.Content = model.TombstonePlaceholder
			entry.Deleted = true
		}
		out = append(out, entry)
	}
	return out
}

func (s *MessageService) reactionsByMsg(ctx context.Context, msgIDs []string) (map[string][]model.Reaction, error) {
	cur, err := (&model.Reaction{}).Collection().
		Find(ctx, bson.M{"msg_id": bson.M{"$in": msgIDs}})
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("list history reactions", "err", err)
	}
	defer cur.Close(ctx)
	var rs []model.Reaction
	if err := cur.All(ctx, &rs); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("decode history reactions", "err", err)
	}
	out := make(map[string][]model.Reaction, len(msgIDs))
	for _, r := range rs {
		out[r.MsgID] = append(out[r.MsgID], r)
	}
	return out, nil
}

func (s *MessageService) markersByMsg(ctx context.Context, msgIDs []string) (map[string][]model.DeletionMarker, error) {
	cur, err := (&model.DeletionMarker{}).Collection().
		Find(ctx, bson.M{"msg_id": bson.M{"$in": msgIDs}})
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("list history markers", "err", err)
	}
	defer cur.Close(ctx)
	var ds []model.DeletionMarker
	if err := cur.All(ctx, &ds); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("decode history markers", "err", err)
	}
	out := make(map[string][]model.DeletionMarker, len(msgIDs))
	for _, d := range ds {
		out[d.MsgID] = append(out[d.MsgID], d)
	}
	return out, nil
}
