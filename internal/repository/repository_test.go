package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

func setupRepo(t *testing.T) (*repository.Repository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	return repository.NewRepository(db), db
}

func createStudent(t *testing.T, repo *repository.Repository, email, studentID string) *model.User {
	t.Helper()
	identity := &model.AuthIdentity{Email: email, PasswordHash: "hash"}
	user := &model.User{
		Firstname: "ana",
		Lastname:  "cruz",
		StudentID: studentID,
		Role:      model.RoleStudent,
		Status:    true,
	}
	if err := repo.Account.CreateAccount(context.Background(), identity, user); err != nil {
		t.Fatalf("CreateAccount 失败: %v", err)
	}
	return user
}

func createAppointment(t *testing.T, repo *repository.Repository, studentID uint, code, date, slot, status string) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		UserID:          studentID,
		Reasons:         []string{"Enrollment"},
		Status:          model.Status(status),
		QRCode:          code,
		AppointmentDate: date,
		AppointmentTime: slot,
	}
	if err := repo.Appointment.Create(context.Background(), a); err != nil {
		t.Fatalf("创建预约失败: %v", err)
	}
	return a
}

// ═══════════════════════════════════════════════════════════
// Accounts
// ═══════════════════════════════════════════════════════════

func TestAccount_CreateAndResolveEmail(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	user := createStudent(t, repo, "ana@school.edu", "GC-482913")
	if user.ID == 0 || user.AuthID == nil {
		t.Fatalf("创建后应回填 ID 与 AuthID: %+v", user)
	}

	got, err := repo.User.GetByAuthID(ctx, *user.AuthID)
	if err != nil {
		t.Fatalf("GetByAuthID 失败: %v", err)
	}
	if got.Email() != "ana@school.edu" {
		t.Errorf("应预加载凭证邮箱，实际=%q", got.Email())
	}

	identity, err := repo.Account.GetIdentityByEmail(ctx, "ANA@school.edu")
	if err != nil || identity.ID != *user.AuthID {
		t.Errorf("邮箱查找应大小写无关: %v", err)
	}
}

func TestAccount_ListByRole(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	createStudent(t, repo, "s1@school.edu", "GC-100001")
	staff := &model.User{Firstname: "staff", Lastname: "one", Role: model.RoleAdmin, Status: true}
	if err := repo.Account.CreateAccount(ctx, &model.AuthIdentity{Email: "admin@school.edu", PasswordHash: "h"}, staff); err != nil {
		t.Fatalf("创建管理员失败: %v", err)
	}

	students, _ := repo.User.ListStudents(ctx)
	staffList, _ := repo.User.ListStaff(ctx)
	if len(students) != 1 || len(staffList) != 1 {
		t.Fatalf("期望 1 学生 1 职员，实际 %d/%d", len(students), len(staffList))
	}
	if staffList[0].Email() != "admin@school.edu" {
		t.Errorf("职员列表应带邮箱，实际=%q", staffList[0].Email())
	}
}

func TestAccount_UpdateStatusAndDelete(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	user := createStudent(t, repo, "del@school.edu", "GC-200002")

	if err := repo.User.UpdateStatus(ctx, user.ID, false); err != nil {
		t.Fatalf("UpdateStatus 失败: %v", err)
	}
	got, _ := repo.User.GetByID(ctx, user.ID)
	if got.Status {
		t.Error("状态应被停用")
	}

	if err := repo.Account.DeleteAccount(ctx, user.ID); err != nil {
		t.Fatalf("DeleteAccount 失败: %v", err)
	}
	if _, err := repo.User.GetByID(ctx, user.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("用户应被删除，实际 err=%v", err)
	}
	if _, err := repo.Account.GetIdentityByID(ctx, *user.AuthID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("凭证应被删除，实际 err=%v", err)
	}
	if err := repo.User.UpdateStatus(ctx, 9999, true); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("不存在的用户应返回 ErrRecordNotFound，实际=%v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Appointments
// ═══════════════════════════════════════════════════════════

func TestAppointment_LookupAndCounts(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	user := createStudent(t, repo, "a@school.edu", "GC-300003")

	section := &model.Section{Course: "BSIT", YearLevel: "1st Year", Section: "A"}
	if err := repo.Section.Create(ctx, section); err != nil {
		t.Fatalf("创建班级失败: %v", err)
	}

	createAppointment(t, repo, user.ID, "AB12CD", "2026-10-20", "8 AM - 10 AM", "Pending")
	createAppointment(t, repo, user.ID, "ZZ99YY", "2026-10-20", "8 AM - 10 AM", "completed")
	createAppointment(t, repo, user.ID, "QQ11WW", "2026-10-20", "1 PM - 3 PM", "cancelled")
	createAppointment(t, repo, user.ID, "PP22OO", "2026-10-21", "8 AM - 10 AM", "Pending")

	got, err := repo.Appointment.GetByQRCode(ctx, "AB12CD")
	if err != nil {
		t.Fatalf("GetByQRCode 失败: %v", err)
	}
	if got.Student == nil || got.Student.Email() != "a@school.edu" {
		t.Errorf("应嵌入学生及邮箱: %+v", got.Student)
	}
	if len(got.Reasons) != 1 || got.Reasons[0] != "Enrollment" {
		t.Errorf("reasons 往返错误: %v", got.Reasons)
	}

	counts, err := repo.Appointment.CountBySlot(ctx, "2026-10-20")
	if err != nil {
		t.Fatalf("CountBySlot 失败: %v", err)
	}
	if counts["8 AM - 10 AM"] != 2 || counts["1 PM - 3 PM"] != 1 {
		t.Errorf("时间段计数应不分状态，实际=%v", counts)
	}

	dates, err := repo.Appointment.PendingDates(ctx, user.ID, "2026-10-01")
	if err != nil {
		t.Fatalf("PendingDates 失败: %v", err)
	}
	if len(dates) != 2 {
		t.Errorf("期望 2 个待处理日期，实际=%v", dates)
	}

	pending, _ := repo.Appointment.List(ctx, repository.AppointmentFilter{Date: "2026-10-20", Status: model.StatusPending})
	if len(pending) != 1 || pending[0].QRCode != "AB12CD" {
		t.Errorf("状态过滤应大小写无关，实际=%v", pending)
	}

	exists, _ := repo.Appointment.ExistsQRCode(ctx, "ZZ99YY")
	if !exists {
		t.Error("ExistsQRCode 应返回 true")
	}
}

func TestAppointment_StudentIsBelongsTo(t *testing.T) {
	s, err := schema.Parse(&model.Appointment{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("解析 schema 失败: %v", err)
	}
	tests := []struct {
		name     string
		relation string
		column   string
	}{
		{"学生", "Student", "student_id"},
		{"班级", "Section", "section_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, ok := s.Relationships.Relations[tt.relation]
			if !ok {
				t.Fatalf("缺少关联 %s", tt.relation)
			}
			if rel.Type != schema.BelongsTo {
				t.Errorf("%s 应为 belongs_to，实际=%s", tt.relation, rel.Type)
			}
			if len(rel.References) != 1 || rel.References[0].ForeignKey.DBName != tt.column {
				t.Errorf("%s 外键列应为 %s", tt.relation, tt.column)
			}
		})
	}
}

func TestAppointment_RelationsLoaded(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	user := createStudent(t, repo, "rel@school.edu", "GC-300013")

	section := &model.Section{Course: "BSIT", YearLevel: "2nd Year", Section: "B"}
	if err := repo.Section.Create(ctx, section); err != nil {
		t.Fatalf("创建班级失败: %v", err)
	}
	a := createAppointment(t, repo, user.ID, "RL01RL", "2026-10-22", "8 AM - 10 AM", "Pending")
	db.Model(&model.Appointment{}).Where("id = ?", a.ID).Update("section_id", section.ID)

	got, err := repo.Appointment.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if got.Student == nil {
		t.Fatal("GetByID 应嵌入学生")
	}
	if got.Student.ID != user.ID || got.Student.StudentID != "GC-300013" {
		t.Errorf("嵌入的学生错误: id=%d student_id=%q", got.Student.ID, got.Student.StudentID)
	}
	if got.Student.Email() != "rel@school.edu" {
		t.Errorf("学生应带凭证邮箱，实际=%q", got.Student.Email())
	}
	if got.Section == nil || got.Section.Code() != section.Code() {
		t.Errorf("应嵌入班级: %+v", got.Section)
	}

	list, err := repo.Appointment.List(ctx, repository.AppointmentFilter{StudentID: user.ID})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if len(list) != 1 || list[0].Student == nil || list[0].Student.StudentID != "GC-300013" {
		t.Errorf("List 行应嵌入学生: %+v", list)
	}

	// 删除账号级联删除预约
	if err := repo.Account.DeleteAccount(ctx, user.ID); err != nil {
		t.Fatalf("DeleteAccount 失败: %v", err)
	}
	if _, err := repo.Appointment.GetByID(ctx, a.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("预约应随学生删除，实际 err=%v", err)
	}
}

func TestAppointment_UpdateStatus(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	user := createStudent(t, repo, "b@school.edu", "GC-400004")
	a := createAppointment(t, repo, user.ID, "RT55RT", "2026-10-20", "8 AM - 10 AM", "Pending")

	now := time.Now()
	got, err := repo.Appointment.UpdateStatus(ctx, a.ID, repository.StatusChange{
		Status:          "return",
		StaffName:       "Staff One",
		Message:         "bring your ID",
		AppointmentDate: "2026-10-27",
		AppointmentTime: "1 PM - 3 PM",
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("UpdateStatus 失败: %v", err)
	}
	if got.Status != "return" || got.AppointmentDate != "2026-10-27" || got.StaffName != "Staff One" {
		t.Errorf("字段未正确写入: %+v", got)
	}

	if _, err := repo.Appointment.UpdateStatus(ctx, 9999, repository.StatusChange{Status: "completed", UpdatedAt: now}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("不存在的预约应返回 ErrRecordNotFound，实际=%v", err)
	}
}

func TestAppointment_CancelExpired(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	user := createStudent(t, repo, "c@school.edu", "GC-500005")

	createAppointment(t, repo, user.ID, "OLD001", "2026-10-18", "8 AM - 10 AM", "Pending")
	createAppointment(t, repo, user.ID, "OLD002", "2026-10-17", "8 AM - 10 AM", "pending")
	createAppointment(t, repo, user.ID, "OLD003", "2026-10-17", "8 AM - 10 AM", "completed")
	createAppointment(t, repo, user.ID, "NOW001", "2026-10-19", "8 AM - 10 AM", "Pending")

	changed, err := repo.Appointment.CancelExpired(ctx, "2026-10-19", time.Now())
	if err != nil {
		t.Fatalf("CancelExpired 失败: %v", err)
	}
	if len(changed) != 2 {
		t.Fatalf("期望取消 2 条，实际=%d", len(changed))
	}
	for _, a := range changed {
		if a.Status != model.StatusCancelled {
			t.Errorf("状态应为 cancelled，实际=%s", a.Status)
		}
	}

	again, err := repo.Appointment.CancelExpired(ctx, "2026-10-19", time.Now())
	if err != nil || len(again) != 0 {
		t.Errorf("重复清理应为空操作，实际=%d err=%v", len(again), err)
	}

	today, _ := repo.Appointment.GetByQRCode(ctx, "NOW001")
	if !today.IsPending() {
		t.Error("当天的预约不应被取消")
	}
}

func TestAppointment_ListByStudentNewestFirst(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	user := createStudent(t, repo, "d@school.edu", "GC-600006")

	first := createAppointment(t, repo, user.ID, "HIS001", "2026-10-20", "8 AM - 10 AM", "Pending")
	second := createAppointment(t, repo, user.ID, "HIS002", "2026-10-21", "8 AM - 10 AM", "Pending")
	db.Model(&model.Appointment{}).Where("id = ?", first.ID).Update("updated_at", time.Now().Add(time.Hour))

	list, err := repo.Appointment.ListByStudent(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByStudent 失败: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Errorf("应按更新时间倒序，实际=%v", []uint{list[0].ID, list[1].ID})
	}
}

// ═══════════════════════════════════════════════════════════
// Maintenance
// ═══════════════════════════════════════════════════════════

func TestDisabledDate_UniqueAndRange(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	if err := repo.DisabledDate.Create(ctx, &model.DisabledDate{Date: "2026-12-25", Description: "Christmas"}); err != nil {
		t.Fatalf("创建停约日期失败: %v", err)
	}
	if err := repo.DisabledDate.Create(ctx, &model.DisabledDate{Date: "2026-12-25"}); err == nil {
		t.Error("重复日期应违反唯一约束")
	}
	repo.DisabledDate.Create(ctx, &model.DisabledDate{Date: "2027-03-01"})

	list, _ := repo.DisabledDate.ListBetween(ctx, "2026-10-19", "2027-01-19")
	if len(list) != 1 || list[0].Date != "2026-12-25" {
		t.Errorf("ListBetween 结果错误: %v", list)
	}

	if err := repo.DisabledDate.Delete(ctx, 9999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("删除不存在的记录应返回 ErrRecordNotFound，实际=%v", err)
	}
}

func TestAppointmentTime_UpdateMax(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	slot := &model.AppointmentTime{Time: "8 AM - 10 AM", Max: 10}
	if err := repo.AppointmentTime.Create(ctx, slot); err != nil {
		t.Fatalf("创建时间段失败: %v", err)
	}
	if err := repo.AppointmentTime.UpdateMax(ctx, slot.ID, 5); err != nil {
		t.Fatalf("UpdateMax 失败: %v", err)
	}
	got, _ := repo.AppointmentTime.GetByID(ctx, slot.ID)
	if got.Max != 5 {
		t.Errorf("期望 max=5，实际=%d", got.Max)
	}
}
