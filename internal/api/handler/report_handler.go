package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/service"
	"github.com/leonard05717/appointment/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler 报表模块 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// Report 日期区间内的预约统计
// GET /api/v1/reports/appointments?from=&to=&status=
func (h *ReportHandler) Report(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "from and to must be YYYY-MM-DD")
		return
	}

	result, err := h.reportSvc.Report(c.Request.Context(), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, result)
}

// Export 导出 Excel
// GET /api/v1/reports/appointments/export?from=&to=&status=
func (h *ReportHandler) Export(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "from and to must be YYYY-MM-DD")
		return
	}

	buf, filename, err := h.reportSvc.Export(c.Request.Context(), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ReportHandler) handleReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRange):
		response.BadRequest(c, 40001, err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 31004, err.Error())
	default:
		response.InternalError(c)
	}
}
