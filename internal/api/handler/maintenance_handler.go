package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/service"
	"github.com/leonard05717/appointment/pkg/response"
)

// MaintenanceHandler 班级、事由、时间段与停约日期维护
type MaintenanceHandler struct {
	sectionSvc  service.SectionService
	reasonSvc   service.ReasonService
	settingsSvc service.SettingsService
}

// NewMaintenanceHandler 创建 MaintenanceHandler
func NewMaintenanceHandler(sectionSvc service.SectionService, reasonSvc service.ReasonService, settingsSvc service.SettingsService) *MaintenanceHandler {
	return &MaintenanceHandler{sectionSvc: sectionSvc, reasonSvc: reasonSvc, settingsSvc: settingsSvc}
}

// ──────────────────── 班级 ────────────────────

// ListSections 班级列表
// GET /api/v1/sections
func (h *MaintenanceHandler) ListSections(c *gin.Context) {
	list, err := h.sectionSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateSection 新建班级
// POST /api/v1/sections
func (h *MaintenanceHandler) CreateSection(c *gin.Context) {
	var req dto.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	section, err := h.sectionSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.Created(c, section)
}

// UpdateSection 修改班级
// PUT /api/v1/sections/:id
func (h *MaintenanceHandler) UpdateSection(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	section, err := h.sectionSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.OK(c, section)
}

// DeleteSection 删除班级
// DELETE /api/v1/sections/:id
func (h *MaintenanceHandler) DeleteSection(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.sectionSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ──────────────────── 事由 ────────────────────

// ListReasons 事由列表
// GET /api/v1/reasons
func (h *MaintenanceHandler) ListReasons(c *gin.Context) {
	list, err := h.reasonSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateReason 新建事由
// POST /api/v1/reasons
func (h *MaintenanceHandler) CreateReason(c *gin.Context) {
	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	reason, err := h.reasonSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.Created(c, reason)
}

// UpdateReason 修改事由
// PUT /api/v1/reasons/:id
func (h *MaintenanceHandler) UpdateReason(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	reason, err := h.reasonSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.OK(c, reason)
}

// DeleteReason 删除事由
// DELETE /api/v1/reasons/:id
func (h *MaintenanceHandler) DeleteReason(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.reasonSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ──────────────────── 时间段 ────────────────────

// ListTimes 时间段列表
// GET /api/v1/appointment-times
func (h *MaintenanceHandler) ListTimes(c *gin.Context) {
	list, err := h.settingsSvc.ListTimes(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateTime 新建时间段
// POST /api/v1/appointment-times
func (h *MaintenanceHandler) CreateTime(c *gin.Context) {
	var req dto.CreateAppointmentTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	slot, err := h.settingsSvc.CreateTime(c.Request.Context(), &req)
	if err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.Created(c, slot)
}

// UpdateTime 修改时间段容量
// PUT /api/v1/appointment-times/:id
func (h *MaintenanceHandler) UpdateTime(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateAppointmentTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	slot, err := h.settingsSvc.UpdateTime(c.Request.Context(), id, &req)
	if err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.OK(c, slot)
}

// DeleteTime 删除时间段
// DELETE /api/v1/appointment-times/:id
func (h *MaintenanceHandler) DeleteTime(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.settingsSvc.DeleteTime(c.Request.Context(), id); err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ──────────────────── 停约日期 ────────────────────

// ListDisabledDates 停约日期列表
// GET /api/v1/disabled-dates
func (h *MaintenanceHandler) ListDisabledDates(c *gin.Context) {
	list, err := h.settingsSvc.ListDisabledDates(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateDisabledDate 新增停约日期
// POST /api/v1/disabled-dates
func (h *MaintenanceHandler) CreateDisabledDate(c *gin.Context) {
	var req dto.DisabledDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	date, err := h.settingsSvc.CreateDisabledDate(c.Request.Context(), &req)
	if err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.Created(c, date)
}

// UpdateDisabledDate 修改停约日期
// PUT /api/v1/disabled-dates/:id
func (h *MaintenanceHandler) UpdateDisabledDate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.DisabledDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	date, err := h.settingsSvc.UpdateDisabledDate(c.Request.Context(), id, &req)
	if err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.OK(c, date)
}

// DeleteDisabledDate 删除停约日期
// DELETE /api/v1/disabled-dates/:id
func (h *MaintenanceHandler) DeleteDisabledDate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.settingsSvc.DeleteDisabledDate(c.Request.Context(), id); err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportDisabledDates 从上传的 .ics 日历导入假期
// POST /api/v1/disabled-dates/import
func (h *MaintenanceHandler) ImportDisabledDates(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "Calendar file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "Calendar file could not be opened")
		return
	}
	defer f.Close()

	result, err := h.settingsSvc.ImportDisabledDates(c.Request.Context(), f)
	if err != nil {
		h.handleMaintenanceError(c, err)
		return
	}

	response.OK(c, result)
}

// handleMaintenanceError 统一处理维护模块业务错误
func (h *MaintenanceHandler) handleMaintenanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSectionNotFound):
		response.NotFound(c, 21001, err.Error())
	case errors.Is(err, service.ErrReasonNotFound):
		response.NotFound(c, 22001, err.Error())
	case errors.Is(err, service.ErrReasonEmpty):
		response.BadRequest(c, 22002, err.Error())
	case errors.Is(err, service.ErrAppointmentTimeNotFound):
		response.NotFound(c, 23001, err.Error())
	case errors.Is(err, service.ErrAppointmentTimeExists):
		response.Conflict(c, 23002, err.Error())
	case errors.Is(err, service.ErrDisabledDateNotFound):
		response.NotFound(c, 23003, err.Error())
	case errors.Is(err, service.ErrDisabledDateExists):
		response.Conflict(c, 23004, err.Error())
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 23005, err.Error())
	case errors.Is(err, service.ErrInvalidCalendar):
		response.BadRequest(c, 23006, service.ErrInvalidCalendar.Error())
	default:
		response.InternalError(c)
	}
}
