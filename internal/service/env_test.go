package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/leonard05717/appointment/config"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/metrics"
)

// 测试基准时间：2026-03-02 周一 09:00（Asia/Manila）
var (
	testLoc, _ = time.LoadLocation("Asia/Manila")
	testNow    = time.Date(2026, 3, 2, 9, 0, 0, 0, testLoc)
)

const (
	testToday    = "2026-03-02"
	testTomorrow = "2026-03-03"
	testSunday   = "2026-03-08"
)

var testSlotLabels = []string{"8 AM - 10 AM", "10 AM - 12 PM", "1 PM - 3 PM", "3 PM - 5 PM"}

// recordingBroker 记录发布的事件，同时保留内存广播
type recordingBroker struct {
	*realtime.MemoryBroker
	mu     sync.Mutex
	events []realtime.Event
}

func newRecordingBroker() *recordingBroker {
	return &recordingBroker{MemoryBroker: realtime.NewMemoryBroker(zap.NewNop())}
}

func (b *recordingBroker) Publish(ctx context.Context, ev realtime.Event) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	return b.MemoryBroker.Publish(ctx, ev)
}

func (b *recordingBroker) count(table string, typ realtime.EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ev := range b.events {
		if ev.Table == table && ev.Type == typ {
			n++
		}
	}
	return n
}

type testEnv struct {
	cfg     *config.Config
	repo    *repository.Repository
	mocks   *mockRepos
	broker  *recordingBroker
	clock   *clock
	pub     *publisher
	metrics *metrics.Metrics
	now     time.Time
}

func newTestEnv() *testEnv {
	repo, mocks := newMockRepos()
	e := &testEnv{
		cfg: &config.Config{
			Auth: config.AuthConfig{
				JWTSecret:       "test-secret-key-for-unit-testing-2026",
				AccessTokenTTL:  15 * time.Minute,
				ResetTokenTTL:   30 * time.Minute,
				DefaultPassword: "12345678",
			},
			Mail: config.MailConfig{ResetURL: "http://localhost:5173/forgot"},
			Booking: config.BookingConfig{
				WindowMonths:  3,
				SweepInterval: 10 * time.Second,
				QRCodeLength:  6,
				QRSize:        256,
				DraftTTL:      time.Hour,
				PageSize:      50,
				Location:      "Asia/Manila",
			},
		},
		repo:    repo,
		mocks:   mocks,
		broker:  newRecordingBroker(),
		metrics: metrics.New(),
		now:     testNow,
	}
	e.clock = newClock(func() time.Time { return e.now }, testLoc)
	e.pub = newPublisher(e.broker, e.metrics, zap.NewNop())
	return e
}

// ── 种子数据 ──

func (e *testEnv) seedUser(role model.Role, firstname, lastname, email, studentID string, active bool) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &model.User{
		Firstname: firstname,
		Lastname:  lastname,
		StudentID: studentID,
		Role:      role,
		Status:    active,
	}
	_ = e.mocks.account.CreateAccount(context.Background(), &model.AuthIdentity{Email: email, PasswordHash: string(hash)}, user)
	return user
}

func (e *testEnv) seedStudent() *model.User {
	return e.seedUser(model.RoleStudent, "juan", "dela cruz", "juan@school.edu", "GC-482913", true)
}

func (e *testEnv) seedStaff() *model.User {
	return e.seedUser(model.RoleAdmin, "maria", "santos", "maria@school.edu", "", true)
}

func (e *testEnv) seedSection() *model.Section {
	s := &model.Section{Course: "BSIT", YearLevel: "1st Year", Section: "A"}
	_ = e.mocks.section.Create(context.Background(), s)
	return s
}

func (e *testEnv) seedReason(text string) {
	_ = e.mocks.reason.Create(context.Background(), &model.Reason{Reason: text})
}

func (e *testEnv) seedTimes(capacity int) {
	for _, label := range testSlotLabels {
		_ = e.mocks.times.Create(context.Background(), &model.AppointmentTime{Time: label, Max: capacity})
	}
}

func (e *testEnv) seedDisabled(date, description string) {
	_ = e.mocks.disabled.Create(context.Background(), &model.DisabledDate{Date: date, Description: description})
}

func (e *testEnv) seedAppointment(studentID uint, qr, date, slot string, status model.Status) *model.Appointment {
	a := &model.Appointment{
		UserID:          studentID,
		Reasons:         []string{"Enrollment"},
		Status:          status,
		QRCode:          qr,
		AppointmentDate: date,
		AppointmentTime: slot,
	}
	a.CreatedAt = e.now
	a.UpdatedAt = e.now
	_ = e.mocks.appointment.Create(context.Background(), a)
	return a
}

// bookingFixture 常用的预约场景：一名学生、一个班级、一个事由、四个时间段
func (e *testEnv) bookingFixture(capacity int) (*model.User, *model.Section) {
	student := e.seedStudent()
	section := e.seedSection()
	e.seedReason("Enrollment")
	e.seedTimes(capacity)
	return student, section
}
