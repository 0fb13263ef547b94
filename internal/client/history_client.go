package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"owl-history/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// APIError 服务端返回的非 2xx 响应（{"detail": "..."}）
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("owl-history API error (status: %d)", e.StatusCode)
	}
	return fmt.Sprintf("owl-history API error: %s (status: %d)", e.Detail, e.StatusCode)
}

type errorBody struct {
	Detail string `json:"detail"`
}

// DataParams /api/v1/data 查询参数，零值表示不传
type DataParams struct {
	NodeID *int64
	From   *time.Time
	To     *time.Time
	Limit  int
}

func (p DataParams) query() map[string]string {
	q := map[string]string{}
	if p.NodeID != nil {
		q["nodeid"] = strconv.FormatInt(*p.NodeID, 10)
	}
	if p.From != nil {
		q["date_from"] = models.FormatTime(*p.From)
	}
	if p.To != nil {
		q["date_to"] = models.FormatTime(*p.To)
	}
	if p.Limit != 0 {
		q["limit"] = strconv.Itoa(p.Limit)
	}
	return q
}

// HistoryClient owl-history HTTP API 客户端（运维 CLI 使用）
type HistoryClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHistoryClient 创建客户端
func NewHistoryClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HistoryClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HistoryClient{
		httpClient: client,
		logger:     logger,
	}
}

func (c *HistoryClient) get(ctx context.Context, path string, query map[string]string, result interface{}) (*resty.Response, error) {
	var apiErr errorBody
	req := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetError(&apiErr)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Get(path)
	if err != nil {
		c.logger.Error("owl-history API call failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to call %s: %w", path, err)
	}
	if resp.IsError() {
		c.logger.Warn("owl-history API returned error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("detail", apiErr.Detail),
		)
		return nil, &APIError{StatusCode: resp.StatusCode(), Detail: apiErr.Detail}
	}
	return resp, nil
}

// Ping GET /，返回服务的 message
func (c *HistoryClient) Ping(ctx context.Context) (string, error) {
	var body struct {
		Message string `json:"message"`
	}
	if _, err := c.get(ctx, "/", nil, &body); err != nil {
		return "", err
	}
	return body.Message, nil
}

// ListTagnames GET /api/v1/tagnames
func (c *HistoryClient) ListTagnames(ctx context.Context) ([]models.NodeShort, error) {
	var nodes []models.NodeShort
	if _, err := c.get(ctx, "/api/v1/tagnames", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetData GET /api/v1/data
func (c *HistoryClient) GetData(ctx context.Context, p DataParams) ([]models.NodeHistory, error) {
	var histories []models.NodeHistory
	if _, err := c.get(ctx, "/api/v1/data", p.query(), &histories); err != nil {
		return nil, err
	}
	return histories, nil
}

// Export GET /api/v1/data/export，返回 xlsx 文件内容
func (c *HistoryClient) Export(ctx context.Context, p DataParams) ([]byte, error) {
	resp, err := c.get(ctx, "/api/v1/data/export", p.query(), nil)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
