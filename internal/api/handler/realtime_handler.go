package handler

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/service"
	"github.com/leonard05717/appointment/pkg/response"
)

const heartbeatInterval = 25 * time.Second

// RealtimeHandler 表变更推送（Server-Sent Events）
type RealtimeHandler struct {
	realtimeSvc service.RealtimeService
}

// NewRealtimeHandler 创建 RealtimeHandler
func NewRealtimeHandler(realtimeSvc service.RealtimeService) *RealtimeHandler {
	return &RealtimeHandler{realtimeSvc: realtimeSvc}
}

// Stream 订阅某张表的变更，连接断开即取消订阅。
// 学生只能收到自己的预约变更，且不能订阅账号表。
// GET /api/v1/realtime/:table
func (h *RealtimeHandler) Stream(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	table := c.Param("table")
	if !role.IsStaff() && table == realtime.TableUsers {
		response.Forbidden(c, 10003, "Insufficient permissions")
		return
	}

	events, err := h.realtimeSvc.Subscribe(c.Request.Context(), table)
	if err != nil {
		if errors.Is(err, service.ErrUnknownTable) {
			response.NotFound(c, 41001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	ownOnly := !role.IsStaff() && table == realtime.TableAppointments

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-events:
			if !open {
				return false
			}
			if ownOnly && !ownedBy(ev, userID) {
				return true
			}
			c.SSEvent("change", ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// ownedBy 事件的新行或旧行属于该学生
func ownedBy(ev realtime.Event, userID uint) bool {
	var row struct {
		StudentID uint `json:"student_id"`
	}
	for _, raw := range []json.RawMessage{ev.New, ev.Old} {
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, &row); err == nil && row.StudentID == userID {
			return true
		}
	}
	return false
}
