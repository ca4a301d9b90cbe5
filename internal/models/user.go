package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 用户模型，归属于唯一租户
type User struct {
	ID             uint      `json:"id" gorm:"primarykey"`
	TenantID       uint      `json:"tenant_id" gorm:"not null;index:idx_users_tenant_email,unique"`
	Email          string    `json:"email" gorm:"not null;size:100;index:idx_users_tenant_email,unique"`
	PasswordHash   string    `json:"-" gorm:"not null;size:255"`
	UserName       string    `json:"user_name" gorm:"not null;size:100"`
	CreateDate     time.Time `json:"create_date"`
	TokenValidTime int64     `json:"-" gorm:"not null"`
	IsLocked       bool      `json:"is_locked" gorm:"default:false"`
	IsConfirmed    bool      `json:"is_confirmed" gorm:"default:false"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// SetPassword 设置密码
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
