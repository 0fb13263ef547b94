package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	commonmqtt "owl-history/common/mqtt"
	"owl-history/internal/service"

	"go.uber.org/zap"
)

// Subscriber MQTT 订阅能力（owl-history/common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	Unsubscribe(topics ...string) error
}

var _ Subscriber = (*commonmqtt.Client)(nil)

// IngestNotice 写入端发布的"新数据"通知
// 字段全部可选，只用于日志
type IngestNotice struct {
	NodeID *int64 `json:"nodeid"`
	Time   string `json:"time"`
	Count  int    `json:"count"`
}

// IngestListener 订阅写入通知，使全量目录缓存失效
// 新节点第一次有读数时，下一次 /api/v1/tagnames 就能看到
type IngestListener struct {
	cache  service.CatalogCache
	topic  string
	qos    byte
	logger *zap.Logger
}

// NewIngestListener 创建监听器
func NewIngestListener(cache service.CatalogCache, topic string, qos byte, logger *zap.Logger) *IngestListener {
	return &IngestListener{
		cache:  cache,
		topic:  topic,
		qos:    qos,
		logger: logger,
	}
}

// Start 订阅通知主题
func (l *IngestListener) Start(sub Subscriber) error {
	if err := sub.Subscribe(l.topic, l.qos, l.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to ingest topic: %w", err)
	}
	l.logger.Info("Ingest listener started", zap.String("topic", l.topic))
	return nil
}

// Stop 取消订阅
func (l *IngestListener) Stop(sub Subscriber) {
	if err := sub.Unsubscribe(l.topic); err != nil {
		l.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	l.logger.Info("Ingest listener stopped")
}

// HandleMessage 处理一条通知：载荷无法解析也照样失效缓存
func (l *IngestListener) HandleMessage(topic string, payload []byte) error {
	fields := []zap.Field{
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	}

	var notice IngestNotice
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &notice); err != nil {
			fields = append(fields, zap.NamedError("decode_error", err))
		} else {
			if notice.NodeID != nil {
				fields = append(fields, zap.Int64("nodeid", *notice.NodeID))
			}
			if notice.Time != "" {
				fields = append(fields, zap.String("time", notice.Time))
			}
		}
	}
	l.logger.Debug("Received ingest notice", fields...)

	if l.cache == nil {
		return nil
	}
	if err := l.cache.Invalidate(context.Background()); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}
