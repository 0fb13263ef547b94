package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"owl-history/internal/domain"

	"github.com/lib/pq"
)

const (
	nodeColumns    = "n.nodeid, COALESCE(n.tagname, ''), n.description, n.unit, n.appid"
	readingColumns = "nh.nodeid, nh.time, nh.actualtime, nh.valdouble, nh.valint, nh.valuint, nh.valbool, nh.valstring, nh.quality, nh.recordtype, nh.appid"
)

// PostgresNodesRepository 节点目录/读数 Repository 实现（nodes + nodes_history）
type PostgresNodesRepository struct {
	db *sql.DB
}

// NewPostgresNodesRepository 创建 Repository
func NewPostgresNodesRepository(db *sql.DB) *PostgresNodesRepository {
	return &PostgresNodesRepository{db: db}
}

// 确保实现了接口
var _ NodesRepository = (*PostgresNodesRepository)(nil)

// rowScanner 同时适配 *sql.Row 和 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*domain.Node, error) {
	var n domain.Node
	var description, unit sql.NullString
	if err := row.Scan(&n.NodeID, &n.TagName, &description, &unit, &n.AppID); err != nil {
		return nil, err
	}
	n.Description = nullStringPtr(description)
	n.Unit = nullStringPtr(unit)
	return &n, nil
}

func scanReading(row rowScanner) (*domain.Reading, error) {
	var r domain.Reading
	var actualTime sql.NullTime
	var valDouble sql.NullFloat64
	var valInt, valUint, quality sql.NullInt64
	var valBool sql.NullBool
	var valString, recordType sql.NullString

	if err := row.Scan(
		&r.NodeID,
		&r.RecordedTime,
		&actualTime,
		&valDouble,
		&valInt,
		&valUint,
		&valBool,
		&valString,
		&quality,
		&recordType,
		&r.AppID,
	); err != nil {
		return nil, err
	}

	r.ActualTime = nullTimePtr(actualTime)
	r.ValDouble = nullFloat64Ptr(valDouble)
	r.ValInt = nullInt64Ptr(valInt)
	r.ValUint = nullInt64Ptr(valUint)
	r.ValBool = nullBoolPtr(valBool)
	r.ValString = nullStringPtr(valString)
	r.Quality = nullInt64Ptr(quality)
	r.RecordType = nullStringPtr(recordType)
	return &r, nil
}

// ListNodeIDsWithHistory 时间窗内有读数的 nodeid
func (r *PostgresNodesRepository) ListNodeIDsWithHistory(ctx context.Context, window Window) ([]int64, error) {
	var args []interface{}
	argN := 1

	query := "SELECT DISTINCT nh.nodeid FROM nodes_history nh"
	if where := window.Where("nh.time", &args, &argN); len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY nh.nodeid"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query node ids with history: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan node id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate node ids: %w", err)
	}
	return ids, nil
}

// GetNode 按 nodeid 查询单个节点
func (r *PostgresNodesRepository) GetNode(ctx context.Context, nodeID int64) (*domain.Node, error) {
	query := "SELECT " + nodeColumns + " FROM nodes n WHERE n.nodeid = $1"

	node, err := scanNode(r.db.QueryRowContext(ctx, query, nodeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("failed to get node %d: %w", nodeID, err)
	}
	return node, nil
}

// GetNodesByIDs 按 nodeid 集合批量查询
func (r *PostgresNodesRepository) GetNodesByIDs(ctx context.Context, nodeIDs []int64) ([]domain.Node, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}

	query := "SELECT " + nodeColumns + " FROM nodes n WHERE n.nodeid = ANY($1) ORDER BY n.nodeid"

	rows, err := r.db.QueryContext(ctx, query, pq.Array(nodeIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes by ids: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}
	return nodes, nil
}

// GetReadings 查询单个节点时间窗内最近的读数（time 倒序）
func (r *PostgresNodesRepository) GetReadings(ctx context.Context, nodeID int64, window Window, limit int) ([]domain.Reading, error) {
	if limit <= 0 {
		limit = domain.HistoryLimit
	}

	args := []interface{}{nodeID}
	argN := 2
	where := append([]string{"nh.nodeid = $1"}, window.Where("nh.time", &args, &argN)...)

	query := "SELECT " + readingColumns + " FROM nodes_history nh" +
		" WHERE " + strings.Join(where, " AND ") +
		" ORDER BY nh.time DESC" +
		" LIMIT $" + fmt.Sprintf("%d", argN)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings for node %d: %w", nodeID, err)
	}
	defer rows.Close()

	var readings []domain.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}
	return readings, nil
}
