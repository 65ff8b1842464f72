package settings

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/weight"
)

// PrimeDB 负责初始化settings模块：迁移表结构，并在表为空时写入默认参数
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&WeightSettings{}); err != nil {
		return fmt.Errorf("无法迁移weight_settings表: %w", err)
	}

	var row WeightSettings
	err := database.DB.Order("id asc").First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("无法读取weight_settings表: %w", err)
		}
		row.fromValue(weight.DefaultSettings())
		if err := database.DB.Create(&row).Error; err != nil {
			return fmt.Errorf("无法写入默认权重参数: %w", err)
		}
		fmt.Println("已写入默认权重参数。")
	}

	fmt.Println("Settings数据库表迁移成功。")
	return nil
}

// WarmupCache 将当前参数预热到Redis缓存中
func WarmupCache() error {
	s, err := getSettingsFromDB(database.DB)
	if err != nil {
		return fmt.Errorf("预热权重参数缓存失败: %w", err)
	}
	fillCache(s)
	return nil
}
