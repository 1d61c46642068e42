package models

import "time"

// RoleAdmin 管理员角色，目前系统仅此一种角色
const RoleAdmin = "admin"

// AdminUser 后台登录用户
type AdminUser struct {
	ID           string     `gorm:"primaryKey;size:26" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"` // 密码哈希，不返回给前端
	Nickname     string     `gorm:"size:100" json:"nickname"`
	Role         string     `gorm:"size:20;not null;default:'admin'" json:"role"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"` // 停用后禁止登录
	LastLoginAt  *time.Time `json:"last_login_at"`
	LastLoginIP  string     `gorm:"size:45" json:"last_login_ip"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (AdminUser) TableName() string {
	return "admin_user"
}
