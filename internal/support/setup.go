package support

import (
	"fmt"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
)

// PrimeCachedDB 负责初始化support模块：迁移去重记录表并预热缓存
func PrimeCachedDB() error {
	if err := database.DB.AutoMigrate(&ProcessedEvent{}); err != nil {
		return fmt.Errorf("无法迁移processed_event表: %w", err)
	}
	fmt.Println("ProcessedEvent数据库表迁移成功。")

	if err := WarmupCache(); err != nil {
		return err
	}
	return nil
}
