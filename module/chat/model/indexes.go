package model

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mgo "SNProject/service/mgo"
)

// EnsureIndexes 建集合索引。幂等，进程启动时调用一次。
//
//   - conversation.direct_key 唯一（sparse）：并发创建单聊收敛到一条
//   - participant (conversation, user) 唯一
//   - reaction / message_deletion (msg, user) 唯一，支撑 upsert 语义
//   - message (conversation, send_time) 历史分页
func EnsureIndexes(ctx context.Context) error {
	db := mgo.GetDB()

	specs := map[string][]mongo.IndexModel{
		(&Conversation{}).GetTableName(): {
			{
				Keys:    bson.D{{Key: "conversation_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "direct_key", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		(&Participant{}).GetTableName(): {
			{
				Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		(&Message{}).GetTableName(): {
			{
				Keys:    bson.D{{Key: "msg_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "send_time", Value: -1}}},
		},
		(&Reaction{}).GetTableName(): {
			{
				Keys:    bson.D{{Key: "msg_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		(&DeletionMarker{}).GetTableName(): {
			{
				Keys:    bson.D{{Key: "msg_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
