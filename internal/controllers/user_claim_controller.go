package controllers

import (
	"time"

	"gorm.io/gorm"

	"syncgate/internal/engine"
	"syncgate/internal/models"
	"syncgate/pkg/apperrors"
	"syncgate/pkg/config"
	"syncgate/pkg/version"
)

// UserClaimDTO 用户权限claim传输对象
type UserClaimDTO struct {
	engine.BaseDTO
	UserID uint   `json:"user_id"`
	Claim  string `json:"claim"`
}

// UserClaimAdapter 用户claim实体转换器
type UserClaimAdapter struct{}

func (UserClaimAdapter) TableName() string            { return "user_claims" }
func (UserClaimAdapter) NewEntity() *models.UserClaim { return &models.UserClaim{} }
func (UserClaimAdapter) NewDTO() *UserClaimDTO        { return &UserClaimDTO{} }

func (UserClaimAdapter) ToDTO(c *models.UserClaim) *UserClaimDTO {
	return &UserClaimDTO{
		BaseDTO: engine.BaseDTO{
			ID:             c.ID,
			TenantID:       c.TenantID,
			CreateTime:     c.CreateTime,
			LastUpdateTime: c.LastUpdateTime,
		},
		UserID: c.UserID,
		Claim:  c.Claim,
	}
}

func (UserClaimAdapter) ToEntity(d *UserClaimDTO) *models.UserClaim {
	c := &models.UserClaim{
		UserID: d.UserID,
		Claim:  d.Claim,
	}
	c.ID = d.ID
	c.TenantID = d.TenantID
	c.CreateTime = d.CreateTime
	c.LastUpdateTime = d.LastUpdateTime
	return c
}

func (UserClaimAdapter) Columns() map[string]string {
	return map[string]string{
		"UserID": "user_id",
		"Claim":  "claim",
	}
}

// NewUserClaimController 组装用户claim表的同步引擎和控制器。
// claim变更直接影响权限，保存钩子在同一事务里推进受影响用户的水位线，
// 旧令牌里过时的claim立即失效。
func NewUserClaimController(db *gorm.DB, counter version.Counter, cfg *config.Config, notifier engine.Notifier) *EntityController[*models.UserClaim, *UserClaimDTO] {
	hooks := engine.Hooks[*models.UserClaim, *UserClaimDTO]{
		AfterSave: func(tx *gorm.DB, tenantID uint, dtos []*UserClaimDTO, entities []*models.UserClaim) error {
			affected := make(map[uint]bool)
			for _, dto := range dtos {
				if dto.UserID != 0 {
					affected[dto.UserID] = true
				}
			}
			for _, entity := range entities {
				if entity != nil && entity.UserID != 0 {
					affected[entity.UserID] = true
				}
			}
			if len(affected) == 0 {
				return nil
			}
			ids := make([]uint, 0, len(affected))
			for id := range affected {
				ids = append(ids, id)
			}
			err := tx.Model(&models.User{}).
				Where("id IN ? AND tenant_id = ?", ids, tenantID).
				Update("token_valid_time", time.Now().UnixNano()).Error
			if err != nil {
				return apperrors.Store(err)
			}
			return nil
		},
	}
	eng := engine.New[*models.UserClaim, *UserClaimDTO](db, UserClaimAdapter{}, counter, engineOptions(cfg, "user_claims", true)).
		WithHooks(hooks).
		WithNotifier(notifier)
	return NewEntityController(eng)
}
