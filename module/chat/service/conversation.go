package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"SNProject/module/chat/model"
	ids "SNProject/tools/ids"
	"SNProject/tools/errs"
)

type ConversationService struct{}

func NewConversationService() *ConversationService { return &ConversationService{} }

// EnsureDirect 查找或创建 a/b 之间的单聊。
// 通过 direct_key 唯一索引 + upsert 收敛并发创建：两个请求同时进来
// 也只会落一条会话（先前的 search-then-insert 在竞争下会产生重复）。
func (s *ConversationService) EnsureDirect(ctx context.Context, a, b string) (*model.Conversation, error) {
	if a == b {
		return nil, errs.ErrBadRequest.WrapMsg("direct conversation with self")
	}
	key := model.DirectKey(a, b)
	now := time.Now()

	filter := bson.M{"direct_key": key}
	update := bson.M{"$setOnInsert": bson.M{
		"conversation_id":   ids.GenerateString(),
		"conversation_type": model.ConversationDirect,
		"direct_key":        key,
		"creator_id":        a,
		"create_time":       now,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var conv model.Conversation
	err := (&model.Conversation{}).Collection().
		FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("ensure direct", "key", key, "err", err)
	}

	// 成员记录同样幂等补齐
	for _, uid := range []string{a, b} {
		if err := s.upsertParticipant(ctx, conv.ConversationID, uid, false); err != nil {
			return nil, err
		}
	}
	return &conv, nil
}

// CreateGroup 建群；创建者自动成为管理员成员。
func (s *ConversationService) CreateGroup(ctx context.Context, creator, name string, memberIDs []string) (*model.Conversation, error) {
	if name == "" {
		return nil, errs.ErrBadRequest.WrapMsg("group name empty")
	}
	conv := &model.Conversation{
		ConversationID:   ids.GenerateString(),
		ConversationType: model.ConversationGroup,
		Name:             name,
		CreatorID:        creator,
		CreateTime:       time.Now(),
	}
	if _, err := conv.Collection().InsertOne(ctx, conv); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("insert group", "err", err)
	}
	if err := s.upsertParticipant(ctx, conv.ConversationID, creator, true); err != nil {
		return nil, err
	}
	for _, uid := range memberIDs {
		if uid == creator {
			continue
		}
		if err := s.upsertParticipant(ctx, conv.ConversationID, uid, false); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

func (s *ConversationService) GetByID(ctx context.Context, convID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := (&model.Conversation{}).Collection().
		FindOne(ctx, bson.M{"conversation_id": convID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrRecordNotFound.WrapMsg("conversation", "conv", convID)
	}
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("find conversation", "conv", convID, "err", err)
	}
	return &conv, nil
}

// IsParticipant 每次都查库，不做进程内缓存（成员资格可能随时被移除）。
func (s *ConversationService) IsParticipant(ctx context.Context, convID, userID string) (bool, error) {
	err := (&model.Participant{}).Collection().
		FindOne(ctx, bson.M{"conversation_id": convID, "user_id": userID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, errs.ErrPersistence.WrapMsg("find participant", "conv", convID, "user", userID, "err", err)
	}
	return true, nil
}

func (s *ConversationService) ListParticipants(ctx context.Context, convID string) ([]model.Participant, error) {
	cur, err := (&model.Participant{}).Collection().
		Find(ctx, bson.M{"conversation_id": convID})
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("list participants", "conv", convID, "err", err)
	}
	defer cur.Close(ctx)

	var out []model.Participant
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("decode participants", "conv", convID, "err", err)
	}
	return out, nil
}

func (s *ConversationService) AddParticipant(ctx context.Context, convID, userID string) error {
	return s.upsertParticipant(ctx, convID, userID, false)
}

func (s *ConversationService) RemoveParticipant(ctx context.Context, convID, userID string) error {
	_, err := (&model.Participant{}).Collection().
		DeleteOne(ctx, bson.M{"conversation_id": convID, "user_id": userID})
	if err != nil {
		return errs.ErrPersistence.WrapMsg("remove participant", "conv", convID, "user", userID, "err", err)
	}
	return nil
}

func (s *ConversationService) SetMuted(ctx context.Context, convID, userID string, muted bool) error {
	return s.setParticipantField(ctx, convID, userID, bson.M{"is_muted": muted})
}

func (s *ConversationService) SetNickname(ctx context.Context, convID, userID, nickname string) error {
	return s.setParticipantField(ctx, convID, userID, bson.M{"nickname": nickname})
}

func (s *ConversationService) SetAdmin(ctx context.Context, convID, userID string, admin bool) error {
	return s.setParticipantField(ctx, convID, userID, bson.M{"is_admin": admin})
}

func (s *ConversationService) setParticipantField(ctx context.Context, convID, userID string, set bson.M) error {
	res, err := (&model.Participant{}).Collection().UpdateOne(ctx,
		bson.M{"conversation_id": convID, "user_id": userID},
		bson.M{"$set": set})
	if err != nil {
		return errs.ErrPersistence.WrapMsg("update participant", "conv", convID, "user", userID, "err", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotParticipant.WrapMsg("update participant", "conv", convID, "user", userID)
	}
	return nil
}

func (s *ConversationService) upsertParticipant(ctx context.Context, convID, userID string, admin bool) error {
	_, err := (&model.Participant{}).Collection().UpdateOne(ctx,
		bson.M{"conversation_id": convID, "user_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"join_time": time.Now(),
			"is_muted":  false,
			"is_admin":  admin,
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return errs.ErrPersistence.WrapMsg("upsert participant", "conv", convID, "user", userID, "err", err)
	}
	return nil
}

// ListUserConversations 用户的会话列表（REST 水合用）。
func (s *ConversationService) ListUserConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	cur, err := (&model.Participant{}).Collection().
		Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("list memberships", "user", userID, "err", err)
	}
	defer cur.Close(ctx)

	var ps []model.Participant
	if err := cur.All(ctx, &ps); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("decode memberships", "user", userID, "err", err)
	}
	if len(ps) == 0 {
		return nil, nil
	}
	idsList := make([]string, 0, len(ps))
	for _, p := range ps {
		idsList = append(idsList, p.ConversationID)
	}
	ccur, err := (&model.Conversation{}).Collection().
		Find(ctx, bson.M{"conversation_id": bson.M{"$in": idsList}})
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("list conversations", "user", userID, "err", err)
	}
	defer ccur.Close(ctx)
	var out []model.Conversation
	if err := ccur.All(ctx, &out); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("decode conversations", "user", userID, "err", err)
	}
	return out, nil
}
