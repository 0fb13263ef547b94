package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"owl-history/common/database"
	"owl-history/common/logger"
	"owl-history/internal/config"
	"owl-history/internal/models"
	"owl-history/internal/repository"

	"go.uber.org/zap"
)

// check-tables 检查数据库连接、nodes / nodes_history 表结构、行数并打印样例数据
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
		log.Fatal("Failed to connect to database",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Database),
			zap.Error(err),
		)
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := repository.InspectSchema(ctx, db)
	if err != nil {
		log.Fatal("Schema inspection failed", zap.Error(err))
	}
	log.Info("Database connection OK", zap.String("database", cfg.Database.Database))

	for _, t := range report.Tables {
		if !t.Exists {
			fmt.Printf("=== %s: MISSING ===\n\n", t.Name)
			continue
		}
		fmt.Printf("=== %s (%d rows) ===\n", t.Name, t.RowCount)
		fmt.Printf("%-20s %-30s %-8s\n", "column", "type", "nullable")
		fmt.Println(strings.Repeat("-", 60))
		for _, c := range t.Columns {
			fmt.Printf("%-20s %-30s %-8t\n", c.Name, c.DataType, c.Nullable)
		}
		fmt.Println()
	}

	if missing := report.Missing(); len(missing) > 0 {
		log.Error("Required tables are missing, run init-db", zap.Strings("tables", missing))
		os.Exit(1)
	}

	fmt.Println("=== sample nodes ===")
	for _, n := range report.SampleNodes {
		fmt.Printf("%-12d %s\n", n.NodeID, n.TagName)
	}
	fmt.Println()

	fmt.Println("=== latest readings ===")
	for _, r := range report.SampleReadings {
		fmt.Printf("%-12d %s\n", r.NodeID, models.FormatTime(r.RecordedTime))
	}
}
