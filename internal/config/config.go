package config

import (
	"os"
	"strconv"

	commoncfg "owl-history/common/config"
)

// Config owl-history（节点历史 HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}

	// DB_ENABLED=false 时使用内存 repo，数据来自 MemorySeedFile（联调/演示用）
	DBEnabled      bool
	Database       commoncfg.DatabaseConfig
	MemorySeedFile string

	RedisEnabled bool
	Redis        commoncfg.RedisConfig

	MQTTEnabled bool
	MQTT        commoncfg.MQTTConfig

	History struct {
		// 全部节点查询时并发拉取每个节点历史的上限
		FetchConcurrency int
		// tagnames 目录缓存 TTL（秒），0 表示不缓存
		CatalogCacheTTL int
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8000")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "postgres",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")
	cfg.MemorySeedFile = getEnv("MEMORY_SEED_FILE", "")

	// Redis 默认关闭：目录缓存是可选优化
	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	// MQTT 用于接收写入端的"有新数据"通知，从而让目录缓存失效（默认禁用）
	cfg.MQTTEnabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "owl-history",
		Topic:    "owl/history/ingested",
		QoS:      1,
	}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.History.FetchConcurrency = parseInt(getEnv("HISTORY_FETCH_CONCURRENCY", "4"), 4)
	if cfg.History.FetchConcurrency <= 0 {
		cfg.History.FetchConcurrency = 1
	}
	cfg.History.CatalogCacheTTL = parseInt(getEnv("CATALOG_CACHE_TTL", "30"), 30)
	if cfg.History.CatalogCacheTTL < 0 {
		cfg.History.CatalogCacheTTL = 0
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
