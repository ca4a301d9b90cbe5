package models

// UserClaim 用户权限claim，形如 "controller.action"，"*"为通配。
// 本身也是可同步实体，通过同步引擎管理。
type UserClaim struct {
	SyncModel
	UserID uint   `json:"user_id" gorm:"not null;index"`
	Claim  string `json:"claim" gorm:"not null;size:200"`
}

// TableName 表名
func (c *UserClaim) TableName() string {
	return "user_claims"
}
