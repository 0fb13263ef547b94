package repository

import (
	"fmt"
	"time"
)

// Window 读数时间窗（闭区间，两端都可省略）
// 每个请求只构造一次，同时传给"发现节点"和"拉取节点历史"两步，
// 两步共用同一个谓词，避免过滤条件不一致
type Window struct {
	From *time.Time
	To   *time.Time
}

// NewWindow 创建时间窗；from > to 不报错，结果为空
// 两端统一换算成 UTC：nodes_history.time 是 TIMESTAMP（无时区），按 UTC 墙钟存储
func NewWindow(from, to *time.Time) Window {
	return Window{From: utcPtr(from), To: utcPtr(to)}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Unbounded 两端都未设置
func (w Window) Unbounded() bool {
	return w.From == nil && w.To == nil
}

// Contains 内存实现使用的谓词，与 Where 生成的 SQL 等价
func (w Window) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}

// Where 生成 SQL 条件（col >= $n / col <= $m），参数按 UTC 追加到 args，argN 递增
func (w Window) Where(column string, args *[]interface{}, argN *int) []string {
	var where []string
	if w.From != nil {
		where = append(where, column+" >= $"+fmt.Sprintf("%d", *argN))
		*args = append(*args, w.From.UTC())
		*argN++
	}
	if w.To != nil {
		where = append(where, column+" <= $"+fmt.Sprintf("%d", *argN))
		*args = append(*args, w.To.UTC())
		*argN++
	}
	return where
}
