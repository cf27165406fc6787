package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/leonard05717/appointment/config"
	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/table"
)

// ── 用户模块业务错误 ──

var (
	ErrUserSelfDelete = errors.New("You cannot delete your own account")
	ErrUserSelfStatus = errors.New("You cannot disable your own account")
	ErrInvalidRole    = errors.New("Unknown role")
)

// UserService 账号管理业务接口
type UserService interface {
	ListStaff(ctx context.Context, q dto.TableQuery) (*table.View, error)
	ListStudents(ctx context.Context, q dto.TableQuery) (*table.View, error)
	Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.UserResponse, error)
	Update(ctx context.Context, id uint, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	SetStatus(ctx context.Context, id uint, active bool, callerID uint) (*dto.UserResponse, error)
	Delete(ctx context.Context, id uint, callerID uint) error
	ResetPassword(ctx context.Context, id uint) (*dto.PasswordResetResponse, error)
	GenerateStudentID(ctx context.Context) (*dto.StudentIDResponse, error)
}

type userService struct {
	cfg    *config.Config
	repo   *repository.Repository
	pub    *publisher
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(cfg *config.Config, repo *repository.Repository, pub *publisher, logger *zap.Logger) UserService {
	return &userService{cfg: cfg, repo: repo, pub: pub, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *userService) ListStaff(ctx context.Context, q dto.TableQuery) (*table.View, error) {
	users, err := s.repo.User.ListStaff(ctx)
	if err != nil {
		s.logger.Error("列出员工失败", zap.Error(err))
		return nil, err
	}
	return s.view(users, q), nil
}

func (s *userService) ListStudents(ctx context.Context, q dto.TableQuery) (*table.View, error) {
	users, err := s.repo.User.ListStudents(ctx)
	if err != nil {
		s.logger.Error("列出学生失败", zap.Error(err))
		return nil, err
	}
	return s.view(users, q), nil
}

// view 邮箱无法解析的用户不出现在列表中
func (s *userService) view(users []model.User, q dto.TableQuery) *table.View {
	rows := make([]table.Row, 0, len(users))
	for i := range users {
		if users[i].Email() == "" {
			continue
		}
		rows = append(rows, userRow(&users[i]))
	}
	v := tableView(userColumns, rows, q, s.cfg.Booking.PageSize)
	return &v
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := ensureEmailFree(ctx, s.repo, email, ""); err != nil {
		return nil, err
	}

	studentID := strings.ToUpper(strings.TrimSpace(req.StudentID))
	switch {
	case studentID != "":
		if err := ensureStudentIDFree(ctx, s.repo, studentID, 0); err != nil {
			return nil, err
		}
	case role == model.RoleStudent:
		if studentID, err = newStudentID(ctx, s.repo); err != nil {
			s.logger.Error("生成学号失败", zap.Error(err))
			return nil, err
		}
	}

	password := req.Password
	if password == "" {
		password = s.cfg.Auth.DefaultPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	identity := &model.AuthIdentity{Email: email, PasswordHash: string(hash)}
	user := &model.User{
		Firstname: strings.TrimSpace(req.Firstname),
		Lastname:  strings.TrimSpace(req.Lastname),
		Gender:    req.Gender,
		Address:   req.Address,
		Birthday:  req.Birthday,
		StudentID: studentID,
		Role:      role,
		Status:    true,
	}
	if err := s.repo.Account.CreateAccount(ctx, identity, user); err != nil {
		s.logger.Error("创建账号失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.pub.inserted(ctx, realtime.TableUsers, user)
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id uint) (*dto.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id uint, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && user.Auth != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Auth.Email {
			if err := ensureEmailFree(ctx, s.repo, email, user.Auth.ID); err != nil {
				return nil, err
			}
			if err := s.repo.Account.UpdateEmail(ctx, user.Auth.ID, email); err != nil {
				s.logger.Error("更新邮箱失败", zap.Uint("id", id), zap.Error(err))
				return nil, err
			}
			user.Auth.Email = email
		}
	}
	if req.StudentID != nil {
		studentID := strings.ToUpper(strings.TrimSpace(*req.StudentID))
		if studentID != "" && studentID != user.StudentID {
			if err := ensureStudentIDFree(ctx, s.repo, studentID, user.ID); err != nil {
				return nil, err
			}
		}
		user.StudentID = studentID
	}
	if req.Role != nil {
		role, err := model.ParseRole(*req.Role)
		if err != nil {
			return nil, ErrInvalidRole
		}
		user.Role = role
	}
	if req.Firstname != nil {
		user.Firstname = strings.TrimSpace(*req.Firstname)
	}
	if req.Lastname != nil {
		user.Lastname = strings.TrimSpace(*req.Lastname)
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.Birthday != nil {
		user.Birthday = *req.Birthday
	}

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新账号失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	s.pub.updated(ctx, realtime.TableUsers, user)
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── Status ──────────────────────

func (s *userService) SetStatus(ctx context.Context, id uint, active bool, callerID uint) (*dto.UserResponse, error) {
	if id == callerID && !active {
		return nil, ErrUserSelfStatus
	}
	if err := s.repo.User.UpdateStatus(ctx, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("修改账号状态失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.pub.updated(ctx, realtime.TableUsers, user)
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, id uint, callerID uint) error {
	if id == callerID {
		return ErrUserSelfDelete
	}
	user, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Account.DeleteAccount(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("删除账号失败", zap.Uint("id", id), zap.Error(err))
		return err
	}

	s.pub.deleted(ctx, realtime.TableUsers, user)
	return nil
}

// ────────────────────── ResetPassword ──────────────────────

// ResetPassword 恢复为默认密码
func (s *userService) ResetPassword(ctx context.Context, id uint) (*dto.PasswordResetResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.AuthID == nil {
		return nil, ErrUserNotFound
	}

	password := s.cfg.Auth.DefaultPassword
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}
	if err := s.repo.Account.UpdatePassword(ctx, *user.AuthID, string(hash)); err != nil {
		s.logger.Error("重置密码失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return &dto.PasswordResetResponse{Password: password}, nil
}

// ────────────────────── GenerateStudentID ──────────────────────

func (s *userService) GenerateStudentID(ctx context.Context) (*dto.StudentIDResponse, error) {
	id, err := newStudentID(ctx, s.repo)
	if err != nil {
		s.logger.Error("生成学号失败", zap.Error(err))
		return nil, err
	}
	return &dto.StudentIDResponse{StudentID: id}, nil
}

// ── 内部辅助方法 ──

func (s *userService) get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}
