package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/service"
	"github.com/leonard05717/appointment/pkg/response"
	"github.com/leonard05717/appointment/pkg/table"
)

// QueueReader 今日排队看板
type QueueReader interface {
	Snapshot(ctx context.Context) (*dto.QueueResponse, error)
}

// AppointmentHandler 预约管理 HTTP 处理器
type AppointmentHandler struct {
	appointmentSvc service.AppointmentService
	queue          QueueReader
}

// NewAppointmentHandler 创建 AppointmentHandler
func NewAppointmentHandler(appointmentSvc service.AppointmentService, queue QueueReader) *AppointmentHandler {
	return &AppointmentHandler{appointmentSvc: appointmentSvc, queue: queue}
}

// ──────────────────── 员工 ────────────────────

// List 按日期与状态过滤的预约表格
// GET /api/v1/appointments
func (h *AppointmentHandler) List(c *gin.Context) {
	var req dto.AppointmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	view, err := h.appointmentSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, view)
}

// Scan 按二维码内容查找预约
// GET /api/v1/appointments/scan/:code
func (h *AppointmentHandler) Scan(c *gin.Context) {
	appt, err := h.appointmentSvc.Scan(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// Get 预约详情
// GET /api/v1/appointments/:id
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// ChangeStatus 完成 / 取消 / 改约
// PUT /api/v1/appointments/:id/status
func (h *AppointmentHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.ChangeStatus(c.Request.Context(), id, actorID, &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// Cursor 扫码台键盘选择
// POST /api/v1/appointments/cursor
func (h *AppointmentHandler) Cursor(c *gin.Context) {
	var req dto.CursorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.appointmentSvc.Cursor(c.Request.Context(), actorID, &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, result)
}

// ReleaseCursor 离开扫码台
// DELETE /api/v1/appointments/cursor
func (h *AppointmentHandler) ReleaseCursor(c *gin.Context) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	h.appointmentSvc.ReleaseCursor(actorID)
	response.OK(c, nil)
}

// Queue 今日待处理预约按时间段分组
// GET /api/v1/queue
func (h *AppointmentHandler) Queue(c *gin.Context) {
	board, err := h.queue.Snapshot(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, board)
}

// ──────────────────── 学生 ────────────────────

// History 本人预约记录
// GET /api/v1/appointments/mine
func (h *AppointmentHandler) History(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.appointmentSvc.History(c.Request.Context(), userID)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Update 修改本人待处理的预约
// PUT /api/v1/appointments/mine/:id
func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// Cancel 取消本人待处理的预约
// POST /api/v1/appointments/mine/:id/cancel
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.Cancel(c.Request.Context(), userID, id)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// handleAppointmentError 统一处理预约管理业务错误
func (h *AppointmentHandler) handleAppointmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAppointmentNotFound):
		response.NotFound(c, 31001, err.Error())
	case errors.Is(err, service.ErrAppointmentClosed):
		response.Conflict(c, 31002, err.Error())
	case errors.Is(err, service.ErrAppointmentNotPending):
		response.Conflict(c, 31003, err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 31004, err.Error())
	case errors.Is(err, service.ErrReturnDateRequired):
		response.BadRequest(c, 31005, err.Error())
	case errors.Is(err, service.ErrNoSelection):
		response.NotFound(c, 31006, err.Error())
	case errors.Is(err, table.ErrUnsupportedKey):
		response.BadRequest(c, 31007, err.Error())
	case errors.Is(err, service.ErrDateUnavailable):
		response.BadRequest(c, 30004, err.Error())
	case errors.Is(err, service.ErrTimeUnavailable):
		response.Conflict(c, 30005, err.Error())
	case errors.Is(err, service.ErrUnknownTime):
		response.BadRequest(c, 30006, err.Error())
	case errors.Is(err, service.ErrUnknownReason):
		response.BadRequest(c, 30007, err.Error())
	case errors.Is(err, service.ErrReasonEmpty):
		response.BadRequest(c, 22002, err.Error())
	case errors.Is(err, service.ErrSectionNotFound):
		response.BadRequest(c, 21001, err.Error())
	default:
		response.InternalError(c)
	}
}
