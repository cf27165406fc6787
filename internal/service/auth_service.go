package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/leonard05717/appointment/config"
	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/format"
	"github.com/leonard05717/appointment/pkg/jwt"
	"github.com/leonard05717/appointment/pkg/mail"
)

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrAccountDisabled    = errors.New("Account is Disabled")
	ErrUserNotFound       = errors.New("User not found")
	ErrEmailExists        = errors.New("Email is already registered")
	ErrStudentIDExists    = errors.New("Student ID is already registered")
	ErrInvalidStudentID   = errors.New("Student ID must look like GC-123456")
	ErrWrongPassword      = errors.New("Current password is incorrect")
	ErrInvalidResetToken  = errors.New("Reset link is invalid or has expired")
)

// TokenBlacklist 注销时作废 Token，认证中间件据此拒绝已注销的 Token
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthService 认证业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	Me(ctx context.Context, userID uint) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	mailer    mail.Sender
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例，blacklist 可为 nil
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	mailer mail.Sender,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		mailer:    mailer,
		logger:    logger,
	}
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	studentID := strings.ToUpper(strings.TrimSpace(req.StudentID))
	if studentID == "" {
		id, err := newStudentID(ctx, s.repo)
		if err != nil {
			s.logger.Error("生成学号失败", zap.Error(err))
			return nil, err
		}
		studentID = id
	} else if err := ensureStudentIDFree(ctx, s.repo, studentID, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
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
		Role:      model.RoleStudent,
		Status:    true,
	}
	if err := s.repo.Account.CreateAccount(ctx, identity, user); err != nil {
		s.logger.Error("注册失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	// 1. 查询凭证
	identity, err := s.repo.Account.GetIdentityByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询凭证失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 加载资料，停用账号不签发 Token
	user, err := s.repo.User.GetByAuthID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	if !user.Status {
		return nil, ErrAccountDisabled
	}

	// 4. 生成 Token
	token, err := s.jwtMgr.GenerateAccessToken(user.ID, identity.ID, string(user.Role))
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		Redirect:    user.Role.HomePath(),
		User:        toUserResponse(user),
	}, nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("加入 Token 黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Me / Profile ──────────────────────

func (s *authService) Me(ctx context.Context, userID uint) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
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
		s.logger.Error("更新资料失败", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}

	if req.Password != nil && *req.Password != "" && user.AuthID != nil {
		if err := s.setPassword(ctx, *user.AuthID, *req.Password); err != nil {
			return nil, err
		}
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── Password ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Auth == nil {
		return ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Auth.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongPassword
	}
	return s.setPassword(ctx, user.Auth.ID, req.NewPassword)
}

// ForgotPassword 未注册的邮箱同样返回成功，不暴露账号是否存在
func (s *authService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	identity, err := s.repo.Account.GetIdentityByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		s.logger.Error("查询凭证失败", zap.Error(err))
		return err
	}
	user, err := s.repo.User.GetByAuthID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token, err := s.jwtMgr.GenerateResetToken(user.ID, identity.ID)
	if err != nil {
		s.logger.Error("生成重置令牌失败", zap.Error(err))
		return err
	}

	link := fmt.Sprintf("%s?token=%s", s.cfg.Mail.ResetURL, token)
	body := fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password:\n%s\n\nIf you did not request this, you can ignore this email.\n",
		format.FullName(user.Firstname, user.Lastname), link)
	if err := s.mailer.Send(ctx, identity.Email, "Reset your password", body); err != nil {
		return err
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	claims, err := s.jwtMgr.ParseToken(req.Token)
	if err != nil || claims.TokenType != jwt.TokenTypeReset || claims.AuthID == "" {
		return ErrInvalidResetToken
	}
	if _, err := s.repo.Account.GetIdentityByID(ctx, claims.AuthID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	return s.setPassword(ctx, claims.AuthID, req.Password)
}

// ── 内部辅助方法 ──

func (s *authService) getUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *authService) setPassword(ctx context.Context, identityID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	if err := s.repo.Account.UpdatePassword(ctx, identityID, string(hash)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("更新密码失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) ensureEmailFree(ctx context.Context, email string) error {
	return ensureEmailFree(ctx, s.repo, email, "")
}

// ensureEmailFree 邮箱未被其他凭证占用；ownID 为当前凭证时视为可用
func ensureEmailFree(ctx context.Context, repo *repository.Repository, email, ownID string) error {
	existing, err := repo.Account.GetIdentityByEmail(ctx, email)
	if err == nil {
		if existing.ID == ownID {
			return nil
		}
		return ErrEmailExists
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// ensureStudentIDFree 学号格式正确且未被其他用户占用
func ensureStudentIDFree(ctx context.Context, repo *repository.Repository, studentID string, ownID uint) error {
	if !format.ValidStudentID(studentID) {
		return ErrInvalidStudentID
	}
	existing, err := repo.User.GetByStudentID(ctx, studentID)
	if err == nil {
		if existing.ID == ownID {
			return nil
		}
		return ErrStudentIDExists
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

const studentIDAttempts = 10

// newStudentID 生成未被占用的学号
func newStudentID(ctx context.Context, repo *repository.Repository) (string, error) {
	for range studentIDAttempts {
		id := format.GenerateStudentID()
		_, err := repo.User.GetByStudentID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("连续 %d 次生成的学号均已被占用", studentIDAttempts)
}
