package main

import (
	"fmt"

	"gorm.io/gorm"

	"syncgate/internal/database"
	"syncgate/internal/models"
	"syncgate/pkg/logger"
)

// 支持增量同步的表，ID必须稳定：墓碑记录按它归档
var syncTables = []models.SyncTable{
	{ID: 1, Name: "notes"},
	{ID: 2, Name: "note_items"},
	{ID: 3, Name: "user_claims"},
}

// seedData 初始化种子数据
func seedData() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	db := database.GetDB()

	if err := registerSyncTables(db); err != nil {
		return fmt.Errorf("登记同步表失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// registerSyncTables 登记同步表，已存在的跳过
func registerSyncTables(db *gorm.DB) error {
	for _, table := range syncTables {
		var count int64
		if err := db.Model(&models.SyncTable{}).Where("id = ?", table.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		entry := table
		if err := db.Create(&entry).Error; err != nil {
			return err
		}
		logger.GetLogger().Infof("登记同步表: %s (id=%d)", table.Name, table.ID)
	}
	return nil
}
