package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/leonard05717/appointment/internal/booking"
	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/service"
	pkgerrors "github.com/leonard05717/appointment/pkg/errors"
	"github.com/leonard05717/appointment/pkg/response"
)

// BookingHandler 学生预约向导 HTTP 处理器
type BookingHandler struct {
	bookingSvc service.BookingService
}

// NewBookingHandler 创建 BookingHandler
func NewBookingHandler(bookingSvc service.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

// Availability 可约日期范围与某日时间段余量
// GET /api/v1/booking/availability?date=YYYY-MM-DD
func (h *BookingHandler) Availability(c *gin.Context) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.bookingSvc.Availability(c.Request.Context(), userID, req.Date)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, result)
}

// GetDraft 当前向导草稿
// GET /api/v1/booking/draft
func (h *BookingHandler) GetDraft(c *gin.Context) {
	h.draftAction(c, h.bookingSvc.GetDraft)
}

// UpdateDraft 修改草稿字段
// PUT /api/v1/booking/draft
func (h *BookingHandler) UpdateDraft(c *gin.Context) {
	var req dto.DraftUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	draft, err := h.bookingSvc.UpdateDraft(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, draft)
}

// Next 进入下一步
// POST /api/v1/booking/draft/next
func (h *BookingHandler) Next(c *gin.Context) {
	h.draftAction(c, h.bookingSvc.Next)
}

// Back 返回上一步
// POST /api/v1/booking/draft/back
func (h *BookingHandler) Back(c *gin.Context) {
	h.draftAction(c, h.bookingSvc.Back)
}

// Reset 丢弃草稿
// DELETE /api/v1/booking/draft
func (h *BookingHandler) Reset(c *gin.Context) {
	h.draftAction(c, h.bookingSvc.Reset)
}

// Commit 在确认步骤保存预约
// POST /api/v1/booking/draft/commit
func (h *BookingHandler) Commit(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.bookingSvc.Commit(c.Request.Context(), userID)
	h.writeBooking(c, result, err)
}

// Book 一次性提交全部字段
// POST /api/v1/booking
func (h *BookingHandler) Book(c *gin.Context) {
	var req dto.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.bookingSvc.Book(c.Request.Context(), userID, &req)
	h.writeBooking(c, result, err)
}

// QRCode 重新下载本人预约的二维码图片
// GET /api/v1/booking/appointments/:id/qrcode
func (h *BookingHandler) QRCode(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.bookingSvc.QRCode(c.Request.Context(), userID, id)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	writePNG(c, http.StatusOK, result.FileName, result.PNG)
}

// ── 内部方法 ──

func (h *BookingHandler) draftAction(c *gin.Context, fn func(context.Context, uint) (*dto.DraftResponse, error)) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	draft, err := fn(c.Request.Context(), userID)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, draft)
}

// writeBooking 保存成功时返回预约与二维码；?format=png 时直接下载图片
func (h *BookingHandler) writeBooking(c *gin.Context, result *dto.BookingResult, err error) {
	if err != nil {
		var side *pkgerrors.SideEffectError
		if errors.As(err, &side) && result != nil {
			response.SideEffectFailed(c,
				"Appointment saved, but the QR code could not be generated. Download it again from My Appointments.",
				result.Appointment)
			return
		}
		h.handleBookingError(c, err)
		return
	}

	if c.Query("format") == "png" {
		writePNG(c, http.StatusCreated, result.FileName, result.PNG)
		return
	}

	response.Created(c, gin.H{
		"appointment": result.Appointment,
		"file_name":   result.FileName,
		"qrcode_png":  base64.StdEncoding.EncodeToString(result.PNG),
	})
}

// writePNG 以附件形式输出图片
func writePNG(c *gin.Context, status int, fileName string, png []byte) {
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(fileName))
	c.Data(status, "image/png", png)
}

// handleBookingError 统一处理预约向导业务错误
func (h *BookingHandler) handleBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrFirstStep), errors.Is(err, booking.ErrLastStep):
		response.BadRequest(c, 30001, err.Error())
	case errors.Is(err, booking.ErrInactiveAccount):
		response.Forbidden(c, 30002, err.Error())
	case errors.Is(err, booking.ErrNotIdentified),
		errors.Is(err, booking.ErrReasonRequired),
		errors.Is(err, booking.ErrSectionRequired),
		errors.Is(err, booking.ErrDateRequired),
		errors.Is(err, booking.ErrTimeRequired),
		errors.Is(err, booking.ErrNotConfirmStep):
		response.BadRequest(c, 30003, err.Error())
	case errors.Is(err, service.ErrDateUnavailable):
		response.BadRequest(c, 30004, err.Error())
	case errors.Is(err, service.ErrTimeUnavailable):
		response.Conflict(c, 30005, err.Error())
	case errors.Is(err, service.ErrUnknownTime):
		response.BadRequest(c, 30006, err.Error())
	case errors.Is(err, service.ErrUnknownReason):
		response.BadRequest(c, 30007, err.Error())
	case errors.Is(err, service.ErrQRCodeExhausted):
		response.Conflict(c, 30008, err.Error())
	case errors.Is(err, service.ErrSectionNotFound):
		response.BadRequest(c, 21001, err.Error())
	case errors.Is(err, service.ErrAppointmentNotFound):
		response.NotFound(c, 31001, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, err.Error())
	default:
		response.InternalError(c)
	}
}
