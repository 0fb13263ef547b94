package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"owl-history/internal/domain"
	"owl-history/internal/store"

	"go.uber.org/zap"
)

// CatalogCacheKey 全量目录（无时间窗）的缓存 key
const CatalogCacheKey = "catalog:all"

// CatalogCache 全量节点目录缓存
// 只缓存成功结果；读写失败一律当作未命中，不影响查询本身
//
// 回填流程：查库前取 Generation，查完用同一个值 Put。
// 期间发生过 Invalidate 时 Put 放弃写入，避免把失效前读到的目录重新写回缓存
type CatalogCache interface {
	Get(ctx context.Context) ([]domain.NodeSummary, bool)
	Generation() uint64
	Put(ctx context.Context, gen uint64, nodes []domain.NodeSummary)
	Invalidate(ctx context.Context) error
}

type cachedNode struct {
	NodeID  int64  `json:"nodeid"`
	TagName string `json:"tagname"`
}

type kvCatalogCache struct {
	kv     store.KV
	ttl    time.Duration
	logger *zap.Logger

	// mu 串行化 Put 的检查+写入 与 Invalidate 的递增+删除
	mu  sync.Mutex
	gen uint64
}

// NewCatalogCache 基于 KV（Redis）的目录缓存
func NewCatalogCache(kv store.KV, ttl time.Duration, logger *zap.Logger) CatalogCache {
	return &kvCatalogCache{kv: kv, ttl: ttl, logger: logger}
}

func (c *kvCatalogCache) Get(ctx context.Context) ([]domain.NodeSummary, bool) {
	raw, err := c.kv.Get(ctx, CatalogCacheKey)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			c.logger.Warn("Failed to read catalog cache", zap.Error(err))
		}
		return nil, false
	}

	var cached []cachedNode
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		c.logger.Warn("Discarding malformed catalog cache entry", zap.Error(err))
		return nil, false
	}

	nodes := make([]domain.NodeSummary, 0, len(cached))
	for _, n := range cached {
		nodes = append(nodes, domain.NodeSummary{NodeID: n.NodeID, TagName: n.TagName})
	}
	return nodes, true
}

func (c *kvCatalogCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *kvCatalogCache) Put(ctx context.Context, gen uint64, nodes []domain.NodeSummary) {
	cached := make([]cachedNode, 0, len(nodes))
	for _, n := range nodes {
		cached = append(cached, cachedNode{NodeID: n.NodeID, TagName: n.TagName})
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		c.logger.Warn("Failed to encode catalog cache entry", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("Skipping catalog cache fill, invalidated during read",
			zap.Uint64("read_generation", gen),
			zap.Uint64("current_generation", c.gen),
		)
		return
	}
	if err := c.kv.Set(ctx, CatalogCacheKey, string(raw), c.ttl); err != nil {
		c.logger.Warn("Failed to write catalog cache", zap.Error(err))
	}
}

func (c *kvCatalogCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.kv.Del(ctx, CatalogCacheKey)
}
