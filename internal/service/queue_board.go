package service

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/format"
)

// QueueBoard 排队屏：今日待处理预约按时间段分组
// 数据来自本地 Store，由变更推送保持最新，跨天时重新加载
type QueueBoard struct {
	repo   *repository.Repository
	clock  *clock
	store  *realtime.Store[model.Appointment]
	logger *zap.Logger

	mu  sync.Mutex
	day string
}

// NewQueueBoard 创建排队屏
func NewQueueBoard(repo *repository.Repository, clock *clock, logger *zap.Logger) *QueueBoard {
	b := &QueueBoard{repo: repo, clock: clock, logger: logger}
	b.store = realtime.NewStore(
		func(a model.Appointment) uint { return a.ID },
		realtime.WithEnrich(b.enrich),
		realtime.WithAdmit(b.isToday),
	)
	return b
}

// Store 供 Reconciler 注册
func (b *QueueBoard) Store() *realtime.Store[model.Appointment] {
	return b.store
}

// Load 拉取今天的全部预约
func (b *QueueBoard) Load(ctx context.Context) error {
	today := format.Date(b.clock.Today())
	list, err := b.repo.Appointment.List(ctx, repository.AppointmentFilter{Date: today})
	if err != nil {
		b.logger.Error("加载排队屏失败", zap.String("date", today), zap.Error(err))
		return err
	}
	b.store.Load(list)

	b.mu.Lock()
	b.day = today
	b.mu.Unlock()
	return nil
}

// Snapshot 当前排队情况；分组顺序与时间段表一致
func (b *QueueBoard) Snapshot(ctx context.Context) (*dto.QueueResponse, error) {
	today := format.Date(b.clock.Today())
	b.mu.Lock()
	stale := b.day != today
	b.mu.Unlock()
	if stale {
		if err := b.Load(ctx); err != nil {
			return nil, err
		}
	}

	pending := b.store.View(func(a model.Appointment) bool {
		return a.IsPending() && a.AppointmentDate == today
	})

	times, err := b.repo.AppointmentTime.List(ctx)
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, len(times))
	for _, t := range times {
		order = append(order, t.Time)
	}

	groups := make(map[string]*dto.QueueGroup)
	for i := range pending {
		a := &pending[i]
		g, ok := groups[a.AppointmentTime]
		if !ok {
			g = &dto.QueueGroup{Time: a.AppointmentTime, Appointments: []dto.AppointmentResponse{}}
			groups[a.AppointmentTime] = g
			if !slices.Contains(order, a.AppointmentTime) {
				order = append(order, a.AppointmentTime)
			}
		}
		g.Appointments = append(g.Appointments, toAppointmentResponse(a))
		g.Count++
	}

	resp := &dto.QueueResponse{Date: today, Total: len(pending), Groups: []dto.QueueGroup{}}
	for _, label := range order {
		if g, ok := groups[label]; ok {
			resp.Groups = append(resp.Groups, *g)
		}
	}
	return resp, nil
}

// isToday 只保留今天的预约；改期到今天的行经 UPDATE 进入排队屏
func (b *QueueBoard) isToday(a model.Appointment) bool {
	return a.AppointmentDate == format.Date(b.clock.Today())
}

// enrich 触发器推送的行不带学生与班级，按主键补全
func (b *QueueBoard) enrich(ctx context.Context, a *model.Appointment) error {
	if a.Student != nil {
		return nil
	}
	full, err := b.repo.Appointment.GetByID(ctx, a.ID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	*a = *full
	return nil
}
