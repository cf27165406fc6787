package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest 学生自助注册
type RegisterRequest struct {
	Firstname string `json:"firstname"  binding:"required,max=100"`
	Lastname  string `json:"lastname"   binding:"required,max=100"`
	Gender    string `json:"gender"     binding:"omitempty,max=20"`
	Birthday  string `json:"birthday"   binding:"omitempty,datetime=2006-01-02"`
	Address   string `json:"address"    binding:"omitempty,max=255"`
	StudentID string `json:"student_id" binding:"omitempty,max=20"` // 为空时自动生成
	Email     string `json:"email"      binding:"required,email"`
	Password  string `json:"password"   binding:"required,min=6,max=72"`
}

// UpdateProfileRequest 修改个人资料，未提供的字段不变
type UpdateProfileRequest struct {
	Firstname *string `json:"firstname" binding:"omitempty,min=1,max=100"`
	Lastname  *string `json:"lastname"  binding:"omitempty,min=1,max=100"`
	Gender    *string `json:"gender"    binding:"omitempty,max=20"`
	Address   *string `json:"address"   binding:"omitempty,max=255"`
	Birthday  *string `json:"birthday"  binding:"omitempty,datetime=2006-01-02"`
	Password  *string `json:"password"  binding:"omitempty,min=6,max=72"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// ForgotPasswordRequest 找回密码
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest 通过邮件中的令牌重设密码
type ResetPasswordRequest struct {
	Token    string `json:"token"    binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// ── 认证模块响应 ──

// LoginResponse 登录成功
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int          `json:"expires_in"` // 秒
	Redirect    string       `json:"redirect"`   // 按角色的落地页
	User        UserResponse `json:"user"`
}
