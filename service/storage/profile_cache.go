package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	rds "SNProject/service/storage/redis"

	"SNProject/logger"
)

// —— Sender profile snapshots ——
//
// Fan-out denormalizes the sender's public profile into every broadcast
// frame, so the lookup sits on the hot path. Cache-aside with a short TTL;
// Redis being down degrades to a direct store read.

const profileTTL = 5 * time.Minute

func profileKey(user string) string { return "sn:profile:" + user }

// CacheProfile stores a serialized public profile snapshot.
func CacheProfile(ctx context.Context, user string, v any) {
	rdb, ok := rds.TryGetRedis()
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = rdb.Set(ctx, profileKey(user), b, profileTTL).Err()
}

// LookupProfile loads a snapshot into out; ok=false on miss or any error.
func LookupProfile(ctx context.Context, user string, out any) bool {
	rdb, ok := rds.TryGetRedis()
	if !ok {
		return false
	}
	b, err := rdb.Get(ctx, profileKey(user)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.Debugf("[profile-cache] get %s: %v", user, err)
		}
		return false
	}
	return json.Unmarshal(b, out) == nil
}
