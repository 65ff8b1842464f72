package settings

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/weight"
)

// CacheKey 是缓存当前权重参数的Redis String键
const CacheKey = "settings:weights"

// GetSettings 返回当前生效的权重公式参数。
// 读取顺序：Redis缓存 → SQLite → 硬编码默认值。
// 任何一层的故障都不会向上传播：配置存储暂时不可达时，
// 抽奖和报名必须照常进行，这是刻意的可用性优先设计。
func GetSettings() weight.Settings {
	// 1. 尝试Redis缓存
	if database.CacheAvailable() {
		cached, err := database.RDB.Get(database.Ctx, CacheKey).Result()
		if err == nil && cached != "" {
			var s weight.Settings
			if json.Unmarshal([]byte(cached), &s) == nil {
				return s
			}
		}
	}

	// 2. 回源SQLite
	s, err := getSettingsFromDB(database.DB)
	if err != nil {
		fmt.Printf("警告: 无法从数据库读取权重参数，使用默认值: %v\n", err)
		return weight.DefaultSettings()
	}

	// 3. 回填缓存（尽力而为）
	fillCache(s)

	return s
}

// GetSettingsTx 在一个已有的事务中读取权重参数，同样在失败时回退默认值。
// 供需要和其他写入保持同一事务视图的调用方使用。
func GetSettingsTx(tx *gorm.DB) weight.Settings {
	s, err := getSettingsFromDB(tx)
	if err != nil {
		return weight.DefaultSettings()
	}
	return s
}

// getSettingsFromDB 读取唯一的参数记录。记录不存在时返回默认值（不是错误）。
func getSettingsFromDB(db *gorm.DB) (weight.Settings, error) {
	var row WeightSettings
	err := db.Order("id asc").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return weight.DefaultSettings(), nil
		}
		return weight.Settings{}, err
	}
	return row.toValue(), nil
}

// UpdateSettings 用一组新的参数整体替换当前配置，并使缓存失效。
func UpdateSettings(s weight.Settings) error {
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var row WeightSettings
		err := tx.Order("id asc").First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		row.fromValue(s)
		return tx.Save(&row).Error
	})
	if err != nil {
		return fmt.Errorf("无法更新权重参数: %w", err)
	}

	// 写路径上主动刷新缓存；刷新失败只会导致下次读取回源
	fillCache(s)

	return nil
}

// fillCache 将参数写入Redis缓存，失败时仅打印警告
func fillCache(s weight.Settings) {
	if !database.CacheAvailable() {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := database.RDB.Set(database.Ctx, CacheKey, data, 0).Err(); err != nil {
		fmt.Printf("警告: 无法写入权重参数缓存: %v\n", err)
	}
}
