package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"owl-history/internal/domain"
	"owl-history/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NodeHistoryService 节点目录与历史读数查询服务
//
// Fetch* 返回显式的 (结果, error)；
// List* / GetHistory 是对外边界：出错时记录日志并返回空列表
type NodeHistoryService interface {
	// ListAllNodes 有过任意读数的节点目录（可走缓存）
	ListAllNodes(ctx context.Context) []domain.NodeSummary
	// ListNodesWithHistory 时间窗内有读数的节点目录
	ListNodesWithHistory(ctx context.Context, window repository.Window) []domain.NodeSummary
	// GetHistory 单个或全部节点的历史信封
	GetHistory(ctx context.Context, q HistoryQuery) []domain.NodeHistory

	FetchNodesWithHistory(ctx context.Context, window repository.Window) ([]domain.NodeSummary, error)
	FetchHistory(ctx context.Context, q HistoryQuery) ([]domain.NodeHistory, error)
}

// HistoryQuery 历史查询条件
// 条数上限固定为 domain.HistoryLimit，不随请求变化
type HistoryQuery struct {
	NodeID *int64 // nil 表示全部节点
	Window repository.Window
}

type nodeHistoryService struct {
	repo        repository.NodesRepository
	cache       CatalogCache // 可为 nil
	concurrency int
	logger      *zap.Logger
}

// NewNodeHistoryService 创建服务；cache 为 nil 时不使用目录缓存
func NewNodeHistoryService(
	repo repository.NodesRepository,
	cache CatalogCache,
	concurrency int,
	logger *zap.Logger,
) NodeHistoryService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &nodeHistoryService{
		repo:        repo,
		cache:       cache,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (s *nodeHistoryService) ListAllNodes(ctx context.Context) []domain.NodeSummary {
	var gen uint64
	if s.cache != nil {
		if nodes, ok := s.cache.Get(ctx); ok {
			return nodes
		}
		gen = s.cache.Generation()
	}

	nodes, err := s.FetchNodesWithHistory(ctx, repository.Window{})
	if err != nil {
		s.logger.Error("Failed to list nodes", zap.Error(err))
		return []domain.NodeSummary{}
	}

	if s.cache != nil {
		s.cache.Put(ctx, gen, nodes)
	}
	return nodes
}

func (s *nodeHistoryService) ListNodesWithHistory(ctx context.Context, window repository.Window) []domain.NodeSummary {
	nodes, err := s.FetchNodesWithHistory(ctx, window)
	if err != nil {
		s.logger.Error("Failed to list nodes with history", zap.Error(err))
		return []domain.NodeSummary{}
	}
	return nodes
}

func (s *nodeHistoryService) GetHistory(ctx context.Context, q HistoryQuery) []domain.NodeHistory {
	histories, err := s.FetchHistory(ctx, q)
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		if q.NodeID != nil {
			fields = append(fields, zap.Int64("nodeid", *q.NodeID))
		}
		s.logger.Error("Failed to get node history", fields...)
		return []domain.NodeHistory{}
	}
	return histories
}

// FetchNodesWithHistory 发现时间窗内有读数的 nodeid，再按 id 集合取目录行
// 没有目录行的 nodeid（悬空引用）直接丢弃；结果按 nodeid 升序
func (s *nodeHistoryService) FetchNodesWithHistory(ctx context.Context, window repository.Window) ([]domain.NodeSummary, error) {
	ids, err := s.repo.ListNodeIDsWithHistory(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to discover nodes: %w", err)
	}
	if len(ids) == 0 {
		return []domain.NodeSummary{}, nil
	}

	nodes, err := s.repo.GetNodesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load node catalog: %w", err)
	}

	out := make([]domain.NodeSummary, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

// FetchHistory 历史查询
func (s *nodeHistoryService) FetchHistory(ctx context.Context, q HistoryQuery) ([]domain.NodeHistory, error) {
	if q.NodeID != nil {
		return s.fetchOne(ctx, *q.NodeID, q.Window)
	}

	nodes, err := s.FetchNodesWithHistory(ctx, q.Window)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return []domain.NodeHistory{}, nil
	}
	return s.fetchAll(ctx, nodes, q.Window)
}

func (s *nodeHistoryService) fetchOne(ctx context.Context, nodeID int64, window repository.Window) ([]domain.NodeHistory, error) {
	node, err := s.repo.GetNode(ctx, nodeID)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			return []domain.NodeHistory{}, nil
		}
		return nil, fmt.Errorf("failed to get node %d: %w", nodeID, err)
	}

	readings, err := s.repo.GetReadings(ctx, nodeID, window, domain.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for node %d: %w", nodeID, err)
	}
	if len(readings) == 0 {
		return []domain.NodeHistory{}, nil
	}

	return []domain.NodeHistory{{Node: node.Summary(), History: readings}}, nil
}

// fetchAll 并发拉取每个节点的读数，按目录顺序组装，没有读数的节点不输出
func (s *nodeHistoryService) fetchAll(ctx context.Context, nodes []domain.NodeSummary, window repository.Window) ([]domain.NodeHistory, error) {
	slots := make([][]domain.Reading, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			readings, err := s.repo.GetReadings(gctx, n.NodeID, window, domain.HistoryLimit)
			if err != nil {
				return fmt.Errorf("failed to fetch history for node %d: %w", n.NodeID, err)
			}
			slots[i] = readings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.NodeHistory, 0, len(nodes))
	for i, n := range nodes {
		if len(slots[i]) == 0 {
			continue
		}
		out = append(out, domain.NodeHistory{Node: n, History: slots[i]})
	}
	return out, nil
}
