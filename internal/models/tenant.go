package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Tenant 租户模型 - 租户数据分区的根。
// TokenValidTime是令牌有效性水位线：创建时间早于它的令牌一律视为已吊销。
type Tenant struct {
	ID             uint      `json:"id" gorm:"primarykey"`
	Email          string    `json:"email" gorm:"unique;not null;size:100;index"`
	PasswordHash   string    `json:"-" gorm:"not null;size:255"`
	TenantName     string    `json:"tenant_name" gorm:"unique;not null;size:100;index"`
	CreateDate     time.Time `json:"create_date"`
	TokenValidTime int64     `json:"-" gorm:"not null"`
	IsLocked       bool      `json:"is_locked" gorm:"default:false"`
	IsConfirmed    bool      `json:"is_confirmed" gorm:"default:false"`
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}

// SetPassword 设置密码
func (t *Tenant) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	t.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (t *Tenant) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password))
	return err == nil
}
