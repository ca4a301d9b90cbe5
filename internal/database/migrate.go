package database

import (
	"syncgate/internal/models"
	"syncgate/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.UserClaim{},
		&models.SyncTable{},
		&models.DeletedItem{},
		// 业务实体
		&models.Note{},
		&models.NoteItem{},
	)

	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}
