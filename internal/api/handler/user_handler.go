package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/service"
	"github.com/leonard05717/appointment/pkg/response"
)

// UserHandler 账号维护 HTTP 处理器（员工与学生）
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ListStaff 员工账号列表
// GET /api/v1/users
func (h *UserHandler) ListStaff(c *gin.Context) {
	var q dto.TableQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	view, err := h.userSvc.ListStaff(c.Request.Context(), q)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, view)
}

// ListStudents 学生账号列表
// GET /api/v1/students
func (h *UserHandler) ListStudents(c *gin.Context) {
	var q dto.TableQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	view, err := h.userSvc.ListStudents(c.Request.Context(), q)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, view)
}

// GenerateStudentID 生成一个未占用的学号
// GET /api/v1/students/generate-id
func (h *UserHandler) GenerateStudentID(c *gin.Context) {
	result, err := h.userSvc.GenerateStudentID(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// CreateUser 创建账号
// POST /api/v1/users
// POST /api/v1/students
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	user, err := h.userSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.Created(c, user)
}

// GetUser 账号详情
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateUser 修改账号
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// SetStatus 启用/禁用账号
// PUT /api/v1/users/:id/status
func (h *UserHandler) SetStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid parameters")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.SetStatus(c.Request.Context(), id, *req.Status, callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// DeleteUser 删除账号
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// ResetPassword 重置为默认密码
// POST /api/v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.userSvc.ResetPassword(c.Request.Context(), id)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, result)
}

// handleUserError 统一处理账号模块业务错误
func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, err.Error())
	case errors.Is(err, service.ErrUserSelfDelete):
		response.Forbidden(c, 20002, err.Error())
	case errors.Is(err, service.ErrUserSelfStatus):
		response.Forbidden(c, 20003, err.Error())
	case errors.Is(err, service.ErrInvalidRole):
		response.BadRequest(c, 20004, err.Error())
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 11003, err.Error())
	case errors.Is(err, service.ErrStudentIDExists):
		response.Conflict(c, 11004, err.Error())
	case errors.Is(err, service.ErrInvalidStudentID):
		response.BadRequest(c, 11005, err.Error())
	default:
		response.InternalError(c)
	}
}
