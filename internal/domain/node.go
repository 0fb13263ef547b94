package domain

import "github.com/google/uuid"

// Node 测点领域模型（对应 nodes 表）
// 目录由外部维护，本服务只读
type Node struct {
	NodeID      int64         `db:"nodeid"`      // BIGINT, PK
	TagName     string        `db:"tagname"`     // TEXT, nullable（读出时 NULL 视为 ""）
	Description *string       `db:"description"` // TEXT, nullable
	Unit        *string       `db:"unit"`        // TEXT, nullable
	AppID       uuid.NullUUID `db:"appid"`       // UUID, nullable
}

// Summary 返回节点标识（nodeid + tagname）
func (n Node) Summary() NodeSummary {
	return NodeSummary{NodeID: n.NodeID, TagName: n.TagName}
}

// NodeSummary 节点标识
type NodeSummary struct {
	NodeID  int64
	TagName string
}
