package dto

// ── 用户模块 DTO ──

// CreateUserRequest 管理员创建账号
type CreateUserRequest struct {
	Email     string `json:"email"      binding:"required,email"`
	Password  string `json:"password"   binding:"omitempty,min=6,max=72"` // 为空时使用默认密码
	Firstname string `json:"firstname"  binding:"required,max=100"`
	Lastname  string `json:"lastname"   binding:"required,max=100"`
	Gender    string `json:"gender"     binding:"omitempty,max=20"`
	Address   string `json:"address"    binding:"omitempty,max=255"`
	Birthday  string `json:"birthday"   binding:"omitempty,datetime=2006-01-02"`
	StudentID string `json:"student_id" binding:"omitempty,max=20"`
	Role      string `json:"role"       binding:"required,oneof=student admin superadmin"`
}

// UpdateUserRequest 管理员修改账号，未提供的字段不变
type UpdateUserRequest struct {
	Email     *string `json:"email"      binding:"omitempty,email"`
	Firstname *string `json:"firstname"  binding:"omitempty,min=1,max=100"`
	Lastname  *string `json:"lastname"   binding:"omitempty,min=1,max=100"`
	Gender    *string `json:"gender"     binding:"omitempty,max=20"`
	Address   *string `json:"address"    binding:"omitempty,max=255"`
	Birthday  *string `json:"birthday"   binding:"omitempty,datetime=2006-01-02"`
	StudentID *string `json:"student_id" binding:"omitempty,max=20"`
	Role      *string `json:"role"       binding:"omitempty,oneof=student admin superadmin"`
}

// UpdateStatusRequest 启用/停用账号
type UpdateStatusRequest struct {
	Status *bool `json:"status" binding:"required"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息（含邮箱）
type UserResponse struct {
	ID        uint   `json:"id"`
	AuthID    string `json:"auth_id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	Address   string `json:"address"`
	Birthday  string `json:"birthday"`
	StudentID string `json:"student_id"`
	Role      string `json:"role"`
	Status    bool   `json:"status"`
	CreatedAt string `json:"created_at"`
}

// PasswordResetResponse 管理员重置密码结果
type PasswordResetResponse struct {
	Password string `json:"password"`
}

// StudentIDResponse 生成的学号
type StudentIDResponse struct {
	StudentID string `json:"student_id"`
}
