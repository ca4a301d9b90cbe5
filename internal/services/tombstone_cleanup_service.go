package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"syncgate/internal/models"
	"syncgate/pkg/logger"
)

// TombstoneCleanupService 墓碑清理服务。
// 墓碑只追加不修改，按保留天数定期删除过老的记录；
// 离线超过保留期的客户端需要做一次全量同步。
type TombstoneCleanupService struct {
	db            *gorm.DB
	cron          *cron.Cron
	cronExpr      string
	retentionDays int
}

// NewTombstoneCleanupService 创建墓碑清理服务
func NewTombstoneCleanupService(db *gorm.DB, cronExpr string, retentionDays int) *TombstoneCleanupService {
	return &TombstoneCleanupService{
		db:            db,
		cron:          cron.New(),
		cronExpr:      cronExpr,
		retentionDays: retentionDays,
	}
}

// Start 启动定时清理，保留天数为0时不启动
func (s *TombstoneCleanupService) Start() error {
	if s.retentionDays <= 0 {
		logger.GetLogger().Info("墓碑清理未启用")
		return nil
	}
	_, err := s.cron.AddFunc(s.cronExpr, func() {
		if err := s.CleanupExpired(); err != nil {
			logger.GetLogger().WithError(err).Error("墓碑清理失败")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	logger.GetLogger().Infof("墓碑清理服务已启动: %s, 保留 %d 天", s.cronExpr, s.retentionDays)
	return nil
}

// Stop 停止定时清理
func (s *TombstoneCleanupService) Stop() {
	s.cron.Stop()
}

// CleanupExpired 删除超过保留期的墓碑记录
func (s *TombstoneCleanupService) CleanupExpired() error {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays).UnixNano()
	result := s.db.Where("create_time < ?", cutoff).Delete(&models.DeletedItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		logger.GetLogger().Infof("清理了 %d 条过期墓碑记录", result.RowsAffected)
	}
	return nil
}
