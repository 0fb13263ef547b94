package httpapi

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"owl-history/internal/domain"
	"owl-history/internal/repository"
	"owl-history/internal/service"

	"github.com/relvacode/iso8601"
)

var errLimitRange = fmt.Errorf("Limit must be between 1 and %d", domain.HistoryLimit)

// parseHistoryQuery 解析 /api/v1/data 的查询参数
//   - nodeid?    整数
//   - date_from? ISO 8601（无时区按 UTC）
//   - date_to?   ISO 8601
//   - limit?     1..50；只做校验，每个节点始终最多返回 domain.HistoryLimit 条
func parseHistoryQuery(values url.Values) (service.HistoryQuery, error) {
	var q service.HistoryQuery

	if raw := strings.TrimSpace(values.Get("nodeid")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, errors.New("nodeid must be an integer")
		}
		q.NodeID = &id
	}

	from, err := parseTimeParam(values, "date_from")
	if err != nil {
		return q, err
	}
	to, err := parseTimeParam(values, "date_to")
	if err != nil {
		return q, err
	}
	q.Window = repository.NewWindow(from, to)

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("limit must be an integer")
		}
		if limit < 1 || limit > domain.HistoryLimit {
			return q, errLimitRange
		}
	}

	return q, nil
}

func parseTimeParam(values url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	if len(raw) == len(time.DateOnly) {
		if t, err := time.Parse(time.DateOnly, raw); err == nil {
			return &t, nil
		}
	}
	t, err := iso8601.ParseString(normalizeTimeParam(raw))
	if err != nil {
		return nil, fmt.Errorf("%s must be an ISO 8601 datetime", name)
	}
	return &t, nil
}

// normalizeTimeParam "2024-03-01 08:00:00" 形式的日期时间分隔符换成 T；
// 未编码的 "+02:00" 在查询串里会被解码成空格，这里还原
func normalizeTimeParam(raw string) string {
	b := []byte(raw)
	if len(b) > 10 && b[10] == ' ' {
		b[10] = 'T'
	}
	return strings.ReplaceAll(string(b), " ", "+")
}
