package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SchemaStatements nodes / nodes_history 建表语句（幂等）
// 表结构由外部系统拥有，这里只用于本地环境和集成测试初始化
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		nodeid      BIGINT PRIMARY KEY,
		tagname     TEXT,
		description TEXT,
		unit        TEXT,
		appid       UUID
	)`,
	`CREATE TABLE IF NOT EXISTS nodes_history (
		nodeid     BIGINT NOT NULL,
		actualtime TIMESTAMP,
		time       TIMESTAMP NOT NULL,
		valint     BIGINT,
		valuint    BIGINT,
		valdouble  DOUBLE PRECISION,
		valbool    BOOLEAN,
		valstring  TEXT,
		quality    BIGINT,
		recordtype TEXT,
		appid      UUID,
		PRIMARY KEY (nodeid, time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_history_nodeid_time ON nodes_history (nodeid, time)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_history_time ON nodes_history (time)`,
}

// RequiredTables 服务依赖的表
var RequiredTables = []string{"nodes", "nodes_history"}

// ApplySchema 在一个事务中执行建表语句
func ApplySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range SchemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

// ColumnInfo information_schema.columns 中的一列
type ColumnInfo struct {
	Name     string
	DataType string
	Nullable bool
}

// TableReport 单表检查结果
type TableReport struct {
	Name     string
	Exists   bool
	Columns  []ColumnInfo
	RowCount int64
}

// SampleNode / SampleReading 抽样行
type SampleNode struct {
	NodeID  int64
	TagName string
}

type SampleReading struct {
	NodeID       int64
	RecordedTime time.Time
}

// SchemaReport 表结构与数据概况
type SchemaReport struct {
	Tables         []TableReport
	SampleNodes    []SampleNode
	SampleReadings []SampleReading
}

// Missing 返回不存在的必需表
func (r *SchemaReport) Missing() []string {
	var missing []string
	for _, t := range r.Tables {
		if !t.Exists {
			missing = append(missing, t.Name)
		}
	}
	return missing
}

const sampleSize = 5

// InspectSchema 检查 nodes / nodes_history：是否存在、列、行数、抽样
func InspectSchema(ctx context.Context, db *sql.DB) (*SchemaReport, error) {
	if _, err := db.ExecContext(ctx, "SELECT 1"); err != nil {
		return nil, fmt.Errorf("database connection check failed: %w", err)
	}

	report := &SchemaReport{}
	for _, table := range RequiredTables {
		tr, err := inspectTable(ctx, db, table)
		if err != nil {
			return nil, err
		}
		report.Tables = append(report.Tables, *tr)
	}
	if len(report.Missing()) > 0 {
		return report, nil
	}

	nodes, err := sampleNodes(ctx, db)
	if err != nil {
		return nil, err
	}
	report.SampleNodes = nodes

	readings, err := sampleReadings(ctx, db)
	if err != nil {
		return nil, err
	}
	report.SampleReadings = readings

	return report, nil
}

func inspectTable(ctx context.Context, db *sql.DB, table string) (*TableReport, error) {
	tr := &TableReport{Name: table}

	err := db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)",
		table,
	).Scan(&tr.Exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	if !tr.Exists {
		return tr, nil
	}

	rows, err := db.QueryContext(ctx,
		"SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position",
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var col ColumnInfo
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		col.Nullable = nullable == "YES"
		tr.Columns = append(tr.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate columns of %s: %w", table, err)
	}

	// 表名来自 RequiredTables 常量，不是外部输入
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&tr.RowCount); err != nil {
		return nil, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}

	return tr, nil
}

func sampleNodes(ctx context.Context, db *sql.DB) ([]SampleNode, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT nodeid, COALESCE(tagname, '') FROM nodes ORDER BY nodeid LIMIT $1", sampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to sample nodes: %w", err)
	}
	defer rows.Close()

	var out []SampleNode
	for rows.Next() {
		var s SampleNode
		if err := rows.Scan(&s.NodeID, &s.TagName); err != nil {
			return nil, fmt.Errorf("failed to scan node sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func sampleReadings(ctx context.Context, db *sql.DB) ([]SampleReading, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT nodeid, time FROM nodes_history ORDER BY time DESC LIMIT $1", sampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to sample readings: %w", err)
	}
	defer rows.Close()

	var out []SampleReading
	for rows.Next() {
		var s SampleReading
		if err := rows.Scan(&s.NodeID, &s.RecordedTime); err != nil {
			return nil, fmt.Errorf("failed to scan reading sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
