package model

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mgo "SNProject/service/mgo"
)

// EnsureIndexes 建集合索引。幂等，进程启动时调用一次。
func EnsureIndexes(ctx context.Context) error {
	db := mgo.GetDB()

	specs := map[string][]mongo.IndexModel{
		(&User{}).GetTableName(): {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		(&ConnectionSession{}).GetTableName(): {
			{
				Keys:    bson.D{{Key: "session_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "connect_time", Value: -1}}},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
