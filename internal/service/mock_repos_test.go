package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/repository"
)

// ── Mock Repositories（内存实现，按 ID 自增） ──

type mockRepos struct {
	account     *mockAccountRepo
	user        *mockUserRepo
	section     *mockSectionRepo
	reason      *mockReasonRepo
	times       *mockAppointmentTimeRepo
	disabled    *mockDisabledDateRepo
	appointment *mockAppointmentRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	sections := newMockSectionRepo()
	m := &mockRepos{
		account:     newMockAccountRepo(users),
		user:        users,
		section:     sections,
		reason:      newMockReasonRepo(),
		times:       newMockAppointmentTimeRepo(),
		disabled:    newMockDisabledDateRepo(),
		appointment: newMockAppointmentRepo(users, sections),
	}
	repo := &repository.Repository{
		Account:         m.account,
		User:            m.user,
		Section:         m.section,
		Reason:          m.reason,
		AppointmentTime: m.times,
		DisabledDate:    m.disabled,
		Appointment:     m.appointment,
	}
	return repo, m
}

// ──── Account ────

type mockAccountRepo struct {
	identities map[string]*model.AuthIdentity
	users      *mockUserRepo
}

func newMockAccountRepo(users *mockUserRepo) *mockAccountRepo {
	return &mockAccountRepo{identities: make(map[string]*model.AuthIdentity), users: users}
}

func (m *mockAccountRepo) CreateAccount(_ context.Context, identity *model.AuthIdentity, user *model.User) error {
	for _, existing := range m.identities {
		if strings.EqualFold(existing.Email, identity.Email) {
			return errors.New("duplicate email")
		}
	}
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	m.identities[identity.ID] = identity
	id := identity.ID
	user.AuthID = &id
	user.Auth = identity
	m.users.add(user)
	return nil
}

func (m *mockAccountRepo) DeleteAccount(_ context.Context, userID uint) error {
	u, ok := m.users.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users.users, userID)
	if u.AuthID != nil {
		delete(m.identities, *u.AuthID)
	}
	return nil
}

func (m *mockAccountRepo) GetIdentityByID(_ context.Context, id string) (*model.AuthIdentity, error) {
	if i, ok := m.identities[id]; ok {
		return i, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccountRepo) GetIdentityByEmail(_ context.Context, email string) (*model.AuthIdentity, error) {
	for _, i := range m.identities {
		if strings.EqualFold(i.Email, email) {
			return i, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccountRepo) ListIdentities(_ context.Context) ([]model.AuthIdentity, error) {
	list := make([]model.AuthIdentity, 0, len(m.identities))
	for _, i := range m.identities {
		list = append(list, *i)
	}
	return list, nil
}

func (m *mockAccountRepo) UpdatePassword(_ context.Context, identityID, passwordHash string) error {
	i, ok := m.identities[identityID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	i.PasswordHash = passwordHash
	return nil
}

func (m *mockAccountRepo) UpdateEmail(_ context.Context, identityID, email string) error {
	i, ok := m.identities[identityID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	i.Email = email
	return nil
}

// ──── User ────

type mockUserRepo struct {
	users  map[uint]*model.User
	nextID uint
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*model.User)}
}

func (m *mockUserRepo) add(u *model.User) {
	if u.ID == 0 {
		m.nextID++
		u.ID = m.nextID
	}
	m.users[u.ID] = u
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByAuthID(_ context.Context, authID string) (*model.User, error) {
	for _, u := range m.users {
		if u.AuthID != nil && *u.AuthID == authID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByStudentID(_ context.Context, studentID string) (*model.User, error) {
	for _, u := range m.users {
		if studentID != "" && u.StudentID == studentID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateStatus(_ context.Context, id uint, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Status = active
	return nil
}

func (m *mockUserRepo) ListStaff(_ context.Context) ([]model.User, error) {
	return m.list(func(u *model.User) bool { return u.Role != model.RoleStudent }), nil
}

func (m *mockUserRepo) ListStudents(_ context.Context) ([]model.User, error) {
	return m.list(func(u *model.User) bool { return u.Role == model.RoleStudent }), nil
}

// list 与 GORM 实现一致，按 id 倒序
func (m *mockUserRepo) list(keep func(*model.User) bool) []model.User {
	var list []model.User
	for _, u := range m.users {
		if keep(u) {
			list = append(list, *u)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list
}

// ──── Section ────

type mockSectionRepo struct {
	sections map[uint]*model.Section
	nextID   uint
}

func newMockSectionRepo() *mockSectionRepo {
	return &mockSectionRepo{sections: make(map[uint]*model.Section)}
}

func (m *mockSectionRepo) Create(_ context.Context, s *model.Section) error {
	m.nextID++
	s.ID = m.nextID
	m.sections[s.ID] = s
	return nil
}

func (m *mockSectionRepo) GetByID(_ context.Context, id uint) (*model.Section, error) {
	if s, ok := m.sections[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSectionRepo) List(_ context.Context) ([]model.Section, error) {
	list := make([]model.Section, 0, len(m.sections))
	for _, s := range m.sections {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code() < list[j].Code() })
	return list, nil
}

func (m *mockSectionRepo) Update(_ context.Context, s *model.Section) error {
	if _, ok := m.sections[s.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *s
	m.sections[s.ID] = &c
	return nil
}

func (m *mockSectionRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.sections[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.sections, id)
	return nil
}

// ──── Reason ────

type mockReasonRepo struct {
	reasons map[uint]*model.Reason
	nextID  uint
}

func newMockReasonRepo() *mockReasonRepo {
	return &mockReasonRepo{reasons: make(map[uint]*model.Reason)}
}

func (m *mockReasonRepo) Create(_ context.Context, r *model.Reason) error {
	m.nextID++
	r.ID = m.nextID
	c := *r
	m.reasons[r.ID] = &c
	return nil
}

func (m *mockReasonRepo) GetByID(_ context.Context, id uint) (*model.Reason, error) {
	if r, ok := m.reasons[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReasonRepo) List(_ context.Context) ([]model.Reason, error) {
	list := make([]model.Reason, 0, len(m.reasons))
	for _, r := range m.reasons {
		list = append(list, *r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockReasonRepo) Update(_ context.Context, r *model.Reason) error {
	if _, ok := m.reasons[r.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *r
	m.reasons[r.ID] = &c
	return nil
}

func (m *mockReasonRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.reasons[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.reasons, id)
	return nil
}

// ──── AppointmentTime ────

type mockAppointmentTimeRepo struct {
	times  map[uint]*model.AppointmentTime
	nextID uint
}

func newMockAppointmentTimeRepo() *mockAppointmentTimeRepo {
	return &mockAppointmentTimeRepo{times: make(map[uint]*model.AppointmentTime)}
}

func (m *mockAppointmentTimeRepo) Create(_ context.Context, t *model.AppointmentTime) error {
	m.nextID++
	t.ID = m.nextID
	c := *t
	m.times[t.ID] = &c
	return nil
}

func (m *mockAppointmentTimeRepo) GetByID(_ context.Context, id uint) (*model.AppointmentTime, error) {
	if t, ok := m.times[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAppointmentTimeRepo) List(_ context.Context) ([]model.AppointmentTime, error) {
	list := make([]model.AppointmentTime, 0, len(m.times))
	for _, t := range m.times {
		list = append(list, *t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockAppointmentTimeRepo) UpdateMax(_ context.Context, id uint, capacity int) error {
	t, ok := m.times[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.Max = capacity
	return nil
}

func (m *mockAppointmentTimeRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.times[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.times, id)
	return nil
}

// ──── DisabledDate ────

type mockDisabledDateRepo struct {
	dates  map[uint]*model.DisabledDate
	nextID uint
}

func newMockDisabledDateRepo() *mockDisabledDateRepo {
	return &mockDisabledDateRepo{dates: make(map[uint]*model.DisabledDate)}
}

func (m *mockDisabledDateRepo) Create(_ context.Context, d *model.DisabledDate) error {
	for _, existing := range m.dates {
		if existing.Date == d.Date {
			return errors.New("duplicate date")
		}
	}
	m.nextID++
	d.ID = m.nextID
	c := *d
	m.dates[d.ID] = &c
	return nil
}

func (m *mockDisabledDateRepo) GetByID(_ context.Context, id uint) (*model.DisabledDate, error) {
	if d, ok := m.dates[id]; ok {
		c := *d
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDisabledDateRepo) GetByDate(_ context.Context, date string) (*model.DisabledDate, error) {
	for _, d := range m.dates {
		if d.Date == date {
			c := *d
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDisabledDateRepo) List(ctx context.Context) ([]model.DisabledDate, error) {
	return m.ListBetween(ctx, "", "9999-12-31")
}

func (m *mockDisabledDateRepo) ListBetween(_ context.Context, from, to string) ([]model.DisabledDate, error) {
	var list []model.DisabledDate
	for _, d := range m.dates {
		if d.Date >= from && d.Date <= to {
			list = append(list, *d)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Date < list[j].Date })
	return list, nil
}

func (m *mockDisabledDateRepo) Update(_ context.Context, d *model.DisabledDate) error {
	if _, ok := m.dates[d.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *d
	m.dates[d.ID] = &c
	return nil
}

func (m *mockDisabledDateRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.dates[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.dates, id)
	return nil
}

// ──── Appointment ────

type mockAppointmentRepo struct {
	items    map[uint]*model.Appointment
	nextID   uint
	users    *mockUserRepo
	sections *mockSectionRepo
	failGet  bool // GetByID 返回错误，模拟插入后读取失败
}

func newMockAppointmentRepo(users *mockUserRepo, sections *mockSectionRepo) *mockAppointmentRepo {
	return &mockAppointmentRepo{items: make(map[uint]*model.Appointment), users: users, sections: sections}
}

// withRelations 返回带学生与班级的副本
func (m *mockAppointmentRepo) withRelations(a *model.Appointment) model.Appointment {
	c := *a
	c.Reasons = append([]string{}, a.Reasons...)
	c.Student = nil
	c.Section = nil
	if u, ok := m.users.users[a.UserID]; ok {
		c.Student = u
	}
	if a.SectionID != nil {
		if s, ok := m.sections.sections[*a.SectionID]; ok {
			sc := *s
			c.Section = &sc
		}
	}
	return c
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	for _, existing := range m.items {
		if existing.QRCode == a.QRCode {
			return errors.New("duplicate qrcode")
		}
	}
	m.nextID++
	a.ID = m.nextID
	c := *a
	c.Student, c.Section = nil, nil
	m.items[a.ID] = &c
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uint) (*model.Appointment, error) {
	if m.failGet {
		return nil, errors.New("connection reset")
	}
	if a, ok := m.items[id]; ok {
		c := m.withRelations(a)
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAppointmentRepo) GetByQRCode(_ context.Context, code string) (*model.Appointment, error) {
	for _, a := range m.items {
		if a.QRCode == code {
			c := m.withRelations(a)
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAppointmentRepo) ExistsQRCode(_ context.Context, code string) (bool, error) {
	for _, a := range m.items {
		if a.QRCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAppointmentRepo) List(_ context.Context, f repository.AppointmentFilter) ([]model.Appointment, error) {
	var list []model.Appointment
	for _, a := range m.items {
		switch {
		case f.Date != "" && a.AppointmentDate != f.Date:
			continue
		case f.From != "" && a.AppointmentDate < f.From:
			continue
		case f.To != "" && a.AppointmentDate > f.To:
			continue
		case f.Status != "" && !a.Status.Is(f.Status):
			continue
		case f.StudentID != 0 && a.UserID != f.StudentID:
			continue
		}
		list = append(list, m.withRelations(a))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AppointmentDate != list[j].AppointmentDate {
			return list[i].AppointmentDate < list[j].AppointmentDate
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (m *mockAppointmentRepo) ListByStudent(_ context.Context, studentID uint) ([]model.Appointment, error) {
	var list []model.Appointment
	for _, a := range m.items {
		if a.UserID == studentID {
			list = append(list, m.withRelations(a))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (m *mockAppointmentRepo) CountBySlot(_ context.Context, date string) (map[string]int, error) {
	out := make(map[string]int)
	for _, a := range m.items {
		if a.AppointmentDate == date {
			out[a.AppointmentTime]++
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) PendingDates(_ context.Context, studentID uint, from string) ([]string, error) {
	seen := make(map[string]bool)
	var dates []string
	for _, a := range m.items {
		if a.UserID == studentID && a.IsPending() && a.AppointmentDate >= from && !seen[a.AppointmentDate] {
			seen[a.AppointmentDate] = true
			dates = append(dates, a.AppointmentDate)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

func (m *mockAppointmentRepo) UpdateStatus(ctx context.Context, id uint, c repository.StatusChange) (*model.Appointment, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	a.Status = model.Status(c.Status)
	a.StaffName = c.StaffName
	a.Message = c.Message
	a.UpdatedAt = c.UpdatedAt
	if c.AppointmentDate != "" {
		a.AppointmentDate = c.AppointmentDate
		a.AppointmentTime = c.AppointmentTime
	}
	return m.GetByID(ctx, id)
}

func (m *mockAppointmentRepo) UpdateDetails(ctx context.Context, id uint, c repository.DetailsChange) (*model.Appointment, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	a.Reasons = append([]string{}, c.Reasons...)
	sectionID := c.SectionID
	a.SectionID = &sectionID
	a.Note = c.Note
	a.AppointmentDate = c.AppointmentDate
	a.AppointmentTime = c.AppointmentTime
	a.UpdatedAt = c.UpdatedAt
	return m.GetByID(ctx, id)
}

func (m *mockAppointmentRepo) CancelExpired(_ context.Context, today string, now time.Time) ([]model.Appointment, error) {
	var changed []model.Appointment
	for _, a := range m.items {
		if a.AppointmentDate < today && a.IsPending() {
			a.Status = model.StatusCancelled
			a.UpdatedAt = now
			changed = append(changed, m.withRelations(a))
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].ID < changed[j].ID })
	return changed, nil
}
