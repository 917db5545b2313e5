package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"SNProject/module/user/model"
	"SNProject/service/storage"
	"SNProject/tools/errs"
)

// UserService 用户主档只读访问。档案的写入口（注册、编辑）在别的
// 系统，这里只消费。
type UserService struct{}

func NewUserService() *UserService { return &UserService{} }

func (s *UserService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	err := (&model.User{}).Collection().FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrRecordNotFound.WrapMsg("user", "user", userID)
	}
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("find user", "user", userID, "err", err)
	}
	return &u, nil
}

// PublicProfile 扇出反规范化用的公开字段，走缓存旁路。
func (s *UserService) PublicProfile(ctx context.Context, userID string) (*model.PublicProfile, error) {
	var cached model.PublicProfile
	if storage.LookupProfile(ctx, userID, &cached) {
		return &cached, nil
	}
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := u.Public()
	storage.CacheProfile(ctx, userID, p)
	return &p, nil
}
