package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leonard05717/appointment/config"
	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/jwt"
	"github.com/leonard05717/appointment/pkg/mail"
	"github.com/leonard05717/appointment/pkg/metrics"
	"github.com/leonard05717/appointment/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth        AuthService
	User        UserService
	Section     SectionService
	Reason      ReasonService
	Settings    SettingsService
	Booking     BookingService
	Appointment AppointmentService
	Report      ReportService
	Realtime    RealtimeService
	Queue       *QueueBoard
	Sweeper     *Sweeper
	Tokens      TokenBlacklist
}

// Dependencies 外部组件；Redis 为 nil 时草稿与黑名单退回进程内实现
type Dependencies struct {
	Redis   *redis.Client
	Broker  realtime.Broker
	Mailer  mail.Sender
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	deps Dependencies,
	logger *zap.Logger,
) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Mailer == nil {
		deps.Mailer = mail.NewSender(&cfg.Mail, logger)
	}
	if deps.Broker == nil {
		deps.Broker = realtime.NewMemoryBroker(logger)
	}

	var drafts DraftStore
	var blacklist TokenBlacklist
	if deps.Redis != nil {
		drafts = NewRedisDraftStore(deps.Redis, cfg.Booking.DraftTTL)
		blacklist = deps.Redis
	} else {
		drafts = NewMemoryDraftStore(cfg.Booking.DraftTTL, deps.Now)
		blacklist = NewMemoryBlacklist(deps.Now)
	}

	clock := newClock(deps.Now, cfg.Booking.TimeLocation())
	pub := newPublisher(deps.Broker, deps.Metrics, logger)

	return &Service{
		Auth:        NewAuthService(cfg, repo, jwtMgr, blacklist, deps.Mailer, logger),
		User:        NewUserService(cfg, repo, pub, logger),
		Section:     NewSectionService(repo, pub, logger),
		Reason:      NewReasonService(repo, pub, logger),
		Settings:    NewSettingsService(repo, pub, clock, logger),
		Booking:     NewBookingService(cfg, repo, drafts, pub, clock, deps.Metrics, logger),
		Appointment: NewAppointmentService(cfg, repo, pub, clock, deps.Metrics, logger),
		Report:      NewReportService(repo, logger),
		Realtime:    NewRealtimeService(repo, deps.Broker, deps.Metrics, logger),
		Queue:       NewQueueBoard(repo, clock, logger),
		Sweeper:     NewSweeper(repo, pub, clock, cfg.Booking.SweepInterval, deps.Metrics, logger),
		Tokens:      blacklist,
	}
}

// ── 时钟 ──

// clock 计算预约时区下的"今天"
type clock struct {
	now func() time.Time
	loc *time.Location
}

func newClock(now func() time.Time, loc *time.Location) *clock {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &clock{now: now, loc: loc}
}

// Now 当前时刻
func (c *clock) Now() time.Time {
	return c.now()
}

// Today 预约时区的今天零点
func (c *clock) Today() time.Time {
	n := c.now().In(c.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

// ── 变更发布 ──

// publisher 写入成功后发布表变更；发布失败只记日志，不影响已提交的写入
type publisher struct {
	broker  realtime.Broker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func newPublisher(broker realtime.Broker, m *metrics.Metrics, logger *zap.Logger) *publisher {
	return &publisher{broker: broker, metrics: m, logger: logger}
}

func (p *publisher) inserted(ctx context.Context, table string, row any) {
	p.publish(ctx, table, realtime.EventInsert, row, nil)
}

func (p *publisher) updated(ctx context.Context, table string, row any) {
	p.publish(ctx, table, realtime.EventUpdate, row, nil)
}

func (p *publisher) deleted(ctx context.Context, table string, old any) {
	p.publish(ctx, table, realtime.EventDelete, nil, old)
}

func (p *publisher) publish(ctx context.Context, table string, typ realtime.EventType, newRow, oldRow any) {
	if p == nil || p.broker == nil {
		return
	}
	ev, err := realtime.NewEvent(table, typ, newRow, oldRow)
	if err != nil {
		p.logger.Warn("构造变更事件失败", zap.String("table", table), zap.Error(err))
		return
	}
	if err := p.broker.Publish(ctx, ev); err != nil {
		p.logger.Warn("发布变更事件失败",
			zap.String("table", table),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
		return
	}
	p.metrics.IncEvent(table, string(typ))
}
