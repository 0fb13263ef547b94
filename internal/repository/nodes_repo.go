package repository

import (
	"context"
	"errors"

	"owl-history/internal/domain"
)

// ErrNodeNotFound 节点目录中不存在该 nodeid
var ErrNodeNotFound = errors.New("node not found")

// NodesRepository 节点目录 + 读数的只读访问接口
// 注意：此Repository只提供查询方法，数据写入由外部采集链路负责
type NodesRepository interface {
	// ListNodeIDsWithHistory 时间窗内至少有一条读数的 nodeid（去重，升序）
	ListNodeIDsWithHistory(ctx context.Context, window Window) ([]int64, error)

	// GetNode 按 nodeid 查询单个节点，不存在返回 ErrNodeNotFound
	GetNode(ctx context.Context, nodeID int64) (*domain.Node, error)

	// GetNodesByIDs 按 nodeid 集合批量查询（升序），目录中缺失的 id 直接忽略
	GetNodesByIDs(ctx context.Context, nodeIDs []int64) ([]domain.Node, error)

	// GetReadings 查询单个节点在时间窗内的读数，按 time 倒序，最多 limit 条
	GetReadings(ctx context.Context, nodeID int64, window Window, limit int) ([]domain.Reading, error)
}
