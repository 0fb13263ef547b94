package models

import (
	"time"

	"owl-history/internal/domain"
)

// 注意：json 字段名与原 dashboard（App.js / dash_test.py）使用的接口保持一致

// NodeShort /api/v1/tagnames 的元素
type NodeShort struct {
	NodeID  int64  `json:"nodeid"`
	TagName string `json:"tagname"`
}

// ReadingItem 单条读数的对外表示
// 缺失值一律输出 null（不使用 omitempty）
type ReadingItem struct {
	Time       string   `json:"time"`
	ActualTime *string  `json:"actualtime"`
	ValDouble  *float64 `json:"valdouble"`
	ValInt     *int64   `json:"valint"`
	ValUint    *int64   `json:"valuint"`
	ValBool    *bool    `json:"valbool"`
	ValString  *string  `json:"valstring"`
	Quality    *int64   `json:"quality"`
	RecordType *string  `json:"recordtype"`
	AppID      *string  `json:"appid"`
}

// NodeHistory /api/v1/data 的元素
type NodeHistory struct {
	NodeID  int64         `json:"nodeid"`
	TagName string        `json:"tagname"`
	History []ReadingItem `json:"history"`
}

// FormatTime 时间戳的标准文本形式（UTC, RFC 3339）
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewNodeShort 从领域模型转换
func NewNodeShort(n domain.NodeSummary) NodeShort {
	return NodeShort{NodeID: n.NodeID, TagName: n.TagName}
}

// NewNodeShortList 转换列表，nil 输入返回空切片（JSON 输出 [] 而不是 null）
func NewNodeShortList(nodes []domain.NodeSummary) []NodeShort {
	out := make([]NodeShort, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NewNodeShort(n))
	}
	return out
}

// NewReadingItem 从领域模型转换
func NewReadingItem(r domain.Reading) ReadingItem {
	item := ReadingItem{
		Time:       FormatTime(r.RecordedTime),
		ValDouble:  r.ValDouble,
		ValInt:     r.ValInt,
		ValUint:    r.ValUint,
		ValBool:    r.ValBool,
		ValString:  r.ValString,
		Quality:    r.Quality,
		RecordType: r.RecordType,
	}
	if r.ActualTime != nil {
		s := FormatTime(*r.ActualTime)
		item.ActualTime = &s
	}
	if r.AppID.Valid {
		s := r.AppID.UUID.String()
		item.AppID = &s
	}
	return item
}

// NewNodeHistory 从领域模型转换
func NewNodeHistory(h domain.NodeHistory) NodeHistory {
	items := make([]ReadingItem, 0, len(h.History))
	for _, r := range h.History {
		items = append(items, NewReadingItem(r))
	}
	return NodeHistory{
		NodeID:  h.Node.NodeID,
		TagName: h.Node.TagName,
		History: items,
	}
}

// NewNodeHistoryList 转换列表，nil 输入返回空切片
func NewNodeHistoryList(histories []domain.NodeHistory) []NodeHistory {
	out := make([]NodeHistory, 0, len(histories))
	for _, h := range histories {
		out = append(out, NewNodeHistory(h))
	}
	return out
}
