package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/bukulele/beontrack-portal-sub001/internal/service"
	"github.com/bukulele/beontrack-portal-sub001/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportBoard 导出周工时报表
// GET /api/v1/export/board
func (h *ExportHandler) ExportBoard(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportBoard(c.Request.Context())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

// ExportDriverShifts 导出司机班次日历
// GET /api/v1/drivers/:id/shifts.ics
func (h *ExportHandler) ExportDriverShifts(c *gin.Context) {
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportDriverShifts(c.Request.Context(), id)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeICS, buf.Bytes())
}

// attachment 设置下载响应头
func attachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDriverNotFound):
		response.NotFound(c, 22001, "司机不存在")
	case errors.Is(err, service.ErrBoardUnavailable):
		response.Error(c, http.StatusServiceUnavailable, 23001, "看板数据暂不可用，请稍后重试")
	default:
		response.InternalError(c)
	}
}
