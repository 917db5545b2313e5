package config

import (
	"context"
	"time"

	"SNProject/logger"
	"SNProject/service/mgo"
	redis "SNProject/service/storage/redis"
	"SNProject/tools"
	ids "SNProject/tools/ids"
	security "SNProject/tools/security"
)

var Global = Load()

// Load 从环境变量装配配置（带默认值，便于本地起进程）。
func Load() AppConfig {
	return AppConfig{
		NodeId: tools.GetEnv("SN_NODE_ID", "gateway_1"),
		Port:   tools.GetEnvInt("SN_PORT", 8080),

		MongoURI:      tools.GetEnv("SN_MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: tools.GetEnv("SN_MONGO_DB", "socialnet"),
		MongoUser:     tools.GetEnv("SN_MONGO_USER", ""),
		MongoPassword: tools.GetEnv("SN_MONGO_PASSWORD", ""),

		RedisAddr:     tools.GetEnv("SN_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: tools.GetEnv("SN_REDIS_PASSWORD", ""),
		RedisDB:       tools.GetEnvInt("SN_REDIS_DB", 0),

		JWTSecret: tools.GetEnv("SN_JWT_SECRET", "dev-only-secret-change-me"),
	}
}

func JWTOptions() security.Options {
	return security.DefaultOptions([]byte(Global.JWTSecret))
}

func ConfigAll(ctx context.Context) {
	ConfigIds()
	ConfigRedis()
	ConfigMgo(ctx)
}

func ConfigIds() {
	ids.SetNodeID(int64(tools.GetEnvInt("SN_SNOW_NODE", 1)))
}

func ConfigRedis() {
	err := redis.InitRedis(redis.Config{
		Addr:     Global.RedisAddr,
		Password: Global.RedisPassword,
		DB:       Global.RedisDB,
	})
	if err != nil {
		// 缓存不可用只降级，不阻塞启动
		logger.Warnf("[config] redis init failed, running without cache: %v", err)
	}
}

func ConfigMgo(ctx context.Context) {
	mgo.StartAsync(ctx, &mgo.Config{
		URI:         Global.MongoURI,
		Database:    Global.MongoDatabase,
		Username:    Global.MongoUser,
		Password:    Global.MongoPassword,
		MaxPoolSize: 20,
	})

	wctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := mgo.WaitReady(wctx); err != nil {
		logger.Errorf("[config] mongo not ready: %v", err)
	}
}
