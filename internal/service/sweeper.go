package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/format"
	"github.com/leonard05717/appointment/pkg/metrics"
)

// DefaultSweepInterval 过期预约清理周期
const DefaultSweepInterval = 10 * time.Second

// Sweeper 定时把日期已过的待处理预约改为已取消
// 多实例同时运行时条件更新保证结果一致，重复发布的 UPDATE 事件可被幂等应用
type Sweeper struct {
	repo     *repository.Repository
	pub      *publisher
	clock    *clock
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewSweeper 创建 Sweeper
func NewSweeper(
	repo *repository.Repository,
	pub *publisher,
	clock *clock,
	interval time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{repo: repo, pub: pub, clock: clock, interval: interval, metrics: m, logger: logger}
}

// Run 启动后立即清理一次，之后按周期运行，ctx 结束时返回
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("清理过期预约失败", zap.Error(err))
	}
}

// Sweep 执行一次清理，返回本次取消的数量
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	today := format.Date(s.clock.Today())
	changed, err := s.repo.Appointment.CancelExpired(ctx, today, s.clock.Now())
	if err != nil {
		return 0, err
	}
	for i := range changed {
		s.pub.updated(ctx, realtime.TableAppointments, &changed[i])
	}
	if n := len(changed); n > 0 {
		s.metrics.AddSwept(n)
		s.logger.Info("已自动取消过期预约", zap.Int("count", n), zap.String("today", today))
	}
	return len(changed), nil
}
