package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/metrics"
)

// ErrUnknownTable 不支持订阅的表
var ErrUnknownTable = errors.New("Unknown realtime table")

// RealtimeService 向浏览器推送表变更
type RealtimeService interface {
	// Subscribe 订阅单表变更，ctx 结束后通道关闭；users 表事件补充邮箱，
	// 触发器裁剪过的预约行按主键补全
	Subscribe(ctx context.Context, table string) (<-chan realtime.Event, error)
}

type realtimeService struct {
	repo    *repository.Repository
	broker  realtime.Broker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRealtimeService 创建 RealtimeService 实例
func NewRealtimeService(repo *repository.Repository, broker realtime.Broker, m *metrics.Metrics, logger *zap.Logger) RealtimeService {
	return &realtimeService{repo: repo, broker: broker, metrics: m, logger: logger}
}

func (s *realtimeService) Subscribe(ctx context.Context, table string) (<-chan realtime.Event, error) {
	if !realtime.KnownTable(table) {
		return nil, ErrUnknownTable
	}
	events, err := s.broker.Subscribe(ctx, table)
	if err != nil {
		s.logger.Error("订阅变更失败", zap.String("table", table), zap.Error(err))
		return nil, err
	}

	out := make(chan realtime.Event, 16)
	s.metrics.StreamOpened()
	go func() {
		defer close(out)
		defer s.metrics.StreamClosed()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				switch ev.Table {
				case realtime.TableUsers:
					ev = s.withEmail(ctx, ev)
				case realtime.TableAppointments:
					ev = s.withAppointment(ctx, ev)
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// withEmail 用户行只带 auth_id，邮箱从凭证表补回
func (s *realtimeService) withEmail(ctx context.Context, ev realtime.Event) realtime.Event {
	if len(ev.New) == 0 {
		return ev
	}
	var row map[string]any
	if err := json.Unmarshal(ev.New, &row); err != nil {
		return ev
	}
	if email, _ := row["email"].(string); email != "" {
		return ev
	}
	authID, _ := row["auth_id"].(string)
	if authID == "" {
		return ev
	}
	identity, err := s.repo.Account.GetIdentityByID(ctx, authID)
	if err != nil {
		s.logger.Warn("补充用户邮箱失败", zap.String("auth_id", authID), zap.Error(err))
		return ev
	}
	row["email"] = identity.Email
	if b, err := json.Marshal(row); err == nil {
		ev.New = b
	}
	return ev
}

// withAppointment 触发器推送的预约行不含 note，按主键读取完整行（含学生与班级）
func (s *realtimeService) withAppointment(ctx context.Context, ev realtime.Event) realtime.Event {
	if len(ev.New) == 0 {
		return ev
	}
	var row map[string]json.RawMessage
	if err := json.Unmarshal(ev.New, &row); err != nil {
		return ev
	}
	if _, full := row["note"]; full {
		return ev
	}
	var key struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(ev.New, &key); err != nil || key.ID == 0 {
		return ev
	}
	a, err := s.repo.Appointment.GetByID(ctx, key.ID)
	if err != nil {
		if !isNotFound(err) {
			s.logger.Warn("补全预约行失败", zap.Uint("id", key.ID), zap.Error(err))
		}
		return ev
	}
	if b, err := json.Marshal(a); err == nil {
		ev.New = b
	}
	return ev
}
