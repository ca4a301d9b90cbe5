package dispatcher

import (
	"errors"

	"gorm.io/gorm"

	"syncgate/internal/models"
	"syncgate/pkg/apperrors"
)

// WatermarkSource 提供令牌水位线：签发时间早于水位的令牌一律失效
type WatermarkSource interface {
	TokenValidTime(isTenant bool, tenantID, userID uint) (int64, error)
}

type gormWatermarkSource struct {
	db *gorm.DB
}

// NewGormWatermarkSource 基于数据库的水位线来源
func NewGormWatermarkSource(db *gorm.DB) WatermarkSource {
	return &gormWatermarkSource{db: db}
}

func (s *gormWatermarkSource) TokenValidTime(isTenant bool, tenantID, userID uint) (int64, error) {
	if isTenant {
		var tenant models.Tenant
		err := s.db.Select("token_valid_time").Where("id = ?", tenantID).First(&tenant).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, apperrors.InvalidToken("租户不存在")
			}
			return 0, apperrors.Store(err)
		}
		return tenant.TokenValidTime, nil
	}
	var user models.User
	err := s.db.Select("token_valid_time").Where("id = ? AND tenant_id = ?", userID, tenantID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.InvalidToken("用户不存在")
		}
		return 0, apperrors.Store(err)
	}
	return user.TokenValidTime, nil
}
