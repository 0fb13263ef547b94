package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"owl-history/common/database"
	"owl-history/common/logger"
	"owl-history/internal/config"
	"owl-history/internal/repository"

	"go.uber.org/zap"
)

// init-db 创建 nodes / nodes_history 表和索引（已存在则跳过）
// 服务本身从不建表，由运维手动执行
func main() {
	cfg := config.Load()

	log, err := logger.NewDevelopmentLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := repository.ApplySchema(ctx, db); err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}
	log.Info("Schema applied",
		zap.String("database", cfg.Database.Database),
		zap.Strings("tables", repository.RequiredTables),
	)
}
