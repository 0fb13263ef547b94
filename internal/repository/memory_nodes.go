package repository

import (
	"context"
	"sort"
	"sync"

	"owl-history/internal/domain"
)

// MemoryNodesRepository DB_ENABLED=false 时的内存实现（联调/演示，数据来自种子文件）
// 查询语义与 PostgresNodesRepository 一致，时间窗谓词为 Window.Contains
type MemoryNodesRepository struct {
	mu       sync.RWMutex
	nodes    map[int64]domain.Node
	readings map[int64]map[int64]domain.Reading // nodeid -> recorded time (unix nanos) -> reading
}

func NewMemoryNodesRepository() *MemoryNodesRepository {
	return &MemoryNodesRepository{
		nodes:    map[int64]domain.Node{},
		readings: map[int64]map[int64]domain.Reading{},
	}
}

var _ NodesRepository = (*MemoryNodesRepository)(nil)

// PutNode 写入目录行（同 nodeid 覆盖）
func (r *MemoryNodesRepository) PutNode(n domain.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[n.NodeID] = n
}

// PutReading 写入读数；(nodeid, time) 为自然键，同一时刻的后一条覆盖前一条
// nodeid 不要求在目录中存在
func (r *MemoryNodesRepository) PutReading(reading domain.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	series, ok := r.readings[reading.NodeID]
	if !ok {
		series = map[int64]domain.Reading{}
		r.readings[reading.NodeID] = series
	}
	series[reading.RecordedTime.UnixNano()] = reading
}

func (r *MemoryNodesRepository) ListNodeIDsWithHistory(_ context.Context, window Window) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64
	for nodeID, series := range r.readings {
		for _, reading := range series {
			if window.Contains(reading.RecordedTime) {
				ids = append(ids, nodeID)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *MemoryNodesRepository) GetNode(_ context.Context, nodeID int64) (*domain.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[nodeID]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return &n, nil
}

func (r *MemoryNodesRepository) GetNodesByIDs(_ context.Context, nodeIDs []int64) ([]domain.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[int64]bool, len(nodeIDs))
	var out []domain.Node
	for _, id := range nodeIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if n, ok := r.nodes[id]; ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

func (r *MemoryNodesRepository) GetReadings(_ context.Context, nodeID int64, window Window, limit int) ([]domain.Reading, error) {
	if limit <= 0 {
		limit = domain.HistoryLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Reading
	for _, reading := range r.readings[nodeID] {
		if window.Contains(reading.RecordedTime) {
			out = append(out, reading)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedTime.After(out[j].RecordedTime)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
