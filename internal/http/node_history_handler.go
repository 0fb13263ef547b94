package httpapi

import (
	"net/http"

	"owl-history/internal/models"
	"owl-history/internal/service"

	"go.uber.org/zap"
)

// NodeHistoryHandler 节点目录与历史读数 API
type NodeHistoryHandler struct {
	svc    service.NodeHistoryService
	logger *zap.Logger
}

func NewNodeHistoryHandler(svc service.NodeHistoryService, logger *zap.Logger) *NodeHistoryHandler {
	return &NodeHistoryHandler{svc: svc, logger: logger}
}

// GET /
func (h *NodeHistoryHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sensor Monitoring API is running"})
}

// GET /api/v1/tagnames
// 有过读数的节点目录；查询失败时返回 []
func (h *NodeHistoryHandler) GetTagnames(w http.ResponseWriter, r *http.Request) {
	nodes := h.svc.ListAllNodes(r.Context())
	writeJSON(w, http.StatusOK, models.NewNodeShortList(nodes))
}

// GET /api/v1/data
// params:
// - nodeid? int
// - date_from? / date_to? ISO 8601
// - limit? 1..50
func (h *NodeHistoryHandler) GetData(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r.URL.Query())
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	histories := h.svc.GetHistory(r.Context(), q)
	writeJSON(w, http.StatusOK, models.NewNodeHistoryList(histories))
}

// GET /api/v1/data/export
// 与 /api/v1/data 相同的参数，输出 xlsx（每条读数一行）
func (h *NodeHistoryHandler) ExportData(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r.URL.Query())
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	histories := h.svc.GetHistory(r.Context(), q)
	excelData, err := GenerateHistoryExport(models.NewNodeHistoryList(histories))
	if err != nil {
		h.logger.Error("GenerateHistoryExport failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "failed to generate export")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=node-history-export.xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(excelData)
}
