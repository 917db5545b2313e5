package config

// AppConfig 进程级配置。
type AppConfig struct {
	NodeId string // 节点的Id（雪花ID的node位 + 日志标识）
	Port   int    // http 启动端口

	MongoURI      string
	MongoDatabase string
	MongoUser     string
	MongoPassword string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
}
