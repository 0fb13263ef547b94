package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
// 外层统一处理 CORS、panic 恢复和访问日志
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// statusRecorder 记录响应状态码和字节数，用于访问日志
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic while serving request",
				zap.Any("panic", p),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
			)
			if rec.status == 0 {
				writeDetail(rec, http.StatusInternalServerError, "internal server error")
			}
		}
		r.logger.Info("HTTP request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("query", req.URL.RawQuery),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	// CORS: 允许任意来源（dashboard 直接从浏览器调用）
	h := rec.Header()
	if origin := req.Header.Get("Origin"); origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
	} else {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	if req.Method == http.MethodOptions {
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		if reqHeaders := req.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			h.Set("Access-Control-Allow-Headers", reqHeaders)
		} else {
			h.Set("Access-Control-Allow-Headers", "*")
		}
		h.Set("Access-Control-Max-Age", "600")
		rec.WriteHeader(http.StatusNoContent)
		return
	}

	r.mux.ServeHTTP(rec, req)
}

// getOnly 非 GET 请求返回 405
func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		h(w, req)
	}
}

// RegisterHistoryRoutes 注册节点目录 / 历史读数路由
func (r *Router) RegisterHistoryRoutes(h *NodeHistoryHandler) {
	r.Handle("/", getOnly(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			writeDetail(w, http.StatusNotFound, "Not Found")
			return
		}
		h.Root(w, req)
	}))
	r.Handle("/api/v1/tagnames", getOnly(h.GetTagnames))
	r.Handle("/api/v1/data", getOnly(h.GetData))
	r.Handle("/api/v1/data/export", getOnly(h.ExportData))
}
