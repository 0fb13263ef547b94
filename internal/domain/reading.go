package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryLimit 每个节点每次请求最多返回的读数条数
const HistoryLimit = 50

// Reading 读数领域模型（对应 nodes_history 表）
// 主键 (nodeid, time)；与 nodes 之间没有外键约束，nodeid 可能悬空
// 五个 val* 字段同一时刻通常只有一个有值，本服务不做解释或转换
type Reading struct {
	NodeID       int64      `db:"nodeid"`     // BIGINT
	RecordedTime time.Time  `db:"time"`       // TIMESTAMP, 排序与时间窗过滤字段
	ActualTime   *time.Time `db:"actualtime"` // TIMESTAMP, nullable, 原样透传

	ValDouble *float64 `db:"valdouble"` // DOUBLE PRECISION, nullable
	ValInt    *int64   `db:"valint"`    // BIGINT, nullable
	ValUint   *int64   `db:"valuint"`   // BIGINT, nullable
	ValBool   *bool    `db:"valbool"`   // BOOLEAN, nullable
	ValString *string  `db:"valstring"` // TEXT, nullable

	Quality    *int64        `db:"quality"`    // BIGINT, nullable
	RecordType *string       `db:"recordtype"` // TEXT, nullable
	AppID      uuid.NullUUID `db:"appid"`      // UUID, nullable
}

// NodeHistory 单个节点的历史信封（不落库，每次请求生成）
// History 按 RecordedTime 严格倒序，长度不超过 HistoryLimit
type NodeHistory struct {
	Node    NodeSummary
	History []Reading
}
