package session

import (
	"fmt"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
)

// PrimeDB 负责初始化session模块：迁移表结构并确保SYSTEM哨兵场次存在
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Session{}); err != nil {
		return fmt.Errorf("无法迁移session表: %w", err)
	}
	fmt.Println("Session数据库表迁移成功。")

	if _, err := EnsureSystemSession(); err != nil {
		return fmt.Errorf("无法创建SYSTEM哨兵场次: %w", err)
	}

	return nil
}
