package model

import "fmt"

// Role 用户角色
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole 解析角色字符串
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleAdmin, RoleSuperAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Capability 功能权限
type Capability int

const (
	CapBook               Capability = iota + 1 // 预约、查看/修改自己的预约
	CapManageAppointments                       // 预约列表、扫码、改状态、排队屏
	CapMaintenance                              // 班级、事由、时间段
	CapManageStudents
	CapManageUsers
	CapReports
	CapSettings // 停约日期
)

// Can 角色是否具备某项权限
func (r Role) Can(c Capability) bool {
	switch r {
	case RoleStudent:
		return c == CapBook
	case RoleAdmin:
		return c == CapManageAppointments
	case RoleSuperAdmin:
		return c != CapBook
	}
	return false
}

// IsStaff 非学生角色
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return true
	case RoleStudent:
		return false
	}
	return false
}

// HomePath 登录后的落地页
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return "/admin/appointment"
	case RoleStudent:
		return "/"
	}
	return "/"
}
