package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"owl-history/common/database"
	"owl-history/common/logger"
	commonmqtt "owl-history/common/mqtt"
	commonredis "owl-history/common/redis"
	"owl-history/internal/config"
	httpapi "owl-history/internal/http"
	ingest "owl-history/internal/mqtt"
	"owl-history/internal/repository"
	"owl-history/internal/service"
	"owl-history/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "owl-history")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 节点目录 / 读数
	// DB 启用时始终使用 Postgres：启动时 ping 失败只记录，连接在请求时重建，
	// 期间请求按失败返回空列表处理
	var db *sql.DB
	var repo repository.NodesRepository
	if cfg.DBEnabled {
		d, err := database.OpenPostgresDB(&cfg.Database)
		if err != nil {
			log.Fatal("Failed to open database", zap.Error(err))
		}
		db = d
		if err := database.Ping(db); err != nil {
			log.Warn("Database unreachable at startup, requests return empty results until it recovers",
				zap.String("host", cfg.Database.Host),
				zap.Error(err),
			)
		} else {
			log.Info("DB enabled for owl-history",
				zap.String("host", cfg.Database.Host),
				zap.String("database", cfg.Database.Database),
			)
		}
		repo = repository.NewPostgresNodesRepository(db)
	} else {
		mem := repository.NewMemoryNodesRepository()
		if cfg.MemorySeedFile != "" {
			nodes, readings, err := repository.LoadMemorySeedFile(mem, cfg.MemorySeedFile)
			if err != nil {
				log.Fatal("Failed to load memory seed", zap.String("file", cfg.MemorySeedFile), zap.Error(err))
			}
			log.Info("DB disabled, serving memory seed",
				zap.String("file", cfg.MemorySeedFile),
				zap.Int("nodes", nodes),
				zap.Int("readings", readings),
			)
		} else {
			log.Warn("DB disabled and MEMORY_SEED_FILE not set, serving an empty catalog")
		}
		repo = mem
	}

	// 可选：Redis 目录缓存
	var redisClient *commonredis.Client
	var catalogCache service.CatalogCache
	if cfg.RedisEnabled && cfg.History.CatalogCacheTTL > 0 {
		rc := commonredis.NewRedisClient(&cfg.Redis)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := commonredis.Ping(pingCtx, rc)
		pingCancel()
		if err == nil {
			redisClient = rc
			ttl := time.Duration(cfg.History.CatalogCacheTTL) * time.Second
			catalogCache = service.NewCatalogCache(store.NewRedisKV(rc, "owl-history:"), ttl, log)
			log.Info("Catalog cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", ttl))
		} else {
			_ = commonredis.Close(rc)
			log.Warn("Redis enabled but unreachable, catalog cache disabled", zap.Error(err))
		}
	}

	svc := service.NewNodeHistoryService(repo, catalogCache, cfg.History.FetchConcurrency, log)

	// 可选：MQTT 写入通知 -> 目录缓存失效
	var mqttClient *commonmqtt.Client
	var listener *ingest.IngestListener
	if cfg.MQTTEnabled && catalogCache != nil {
		if mc, err := commonmqtt.NewClient(&cfg.MQTT, log); err == nil {
			l := ingest.NewIngestListener(catalogCache, cfg.MQTT.Topic, cfg.MQTT.QoS, log)
			if err := l.Start(mc); err == nil {
				mqttClient = mc
				listener = l
			} else {
				mc.Disconnect()
				log.Warn("Failed to start ingest listener", zap.Error(err))
			}
		} else {
			log.Warn("MQTT enabled but connection failed, cache relies on TTL only", zap.Error(err))
		}
	}

	router := httpapi.NewRouter(log)
	router.RegisterHistoryRoutes(httpapi.NewNodeHistoryHandler(svc, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server stopped unexpectedly", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if listener != nil {
		listener.Stop(mqttClient)
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = commonredis.Close(redisClient)
	_ = database.Close(db)
}
