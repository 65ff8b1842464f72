package user

import (
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/internal/weight"
)

// migrateDB 负责自动迁移数据库表结构
func migrateDB() error {
	if err := database.DB.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("无法迁移user表: %w", err)
	}
	fmt.Println("User数据库表迁移成功。")
	return nil
}

// WarmupCache 从SQLite加载所有用户，并将权重明细与排行预热到Redis中
func WarmupCache() error {
	if !database.CacheAvailable() {
		fmt.Println("Redis不可用，跳过用户权重缓存预热。")
		return nil
	}

	var users []User
	if err := database.DB.Find(&users).Error; err != nil {
		return fmt.Errorf("无法从SQLite读取用户数据: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("无现有用户数据，无需预热用户缓存。")
		return nil
	}

	s := settings.GetSettings()

	// 使用Pipeline批量重建Hash和Sorted Set
	pipe := database.RDB.Pipeline()
	// 先清空旧的缓存，确保数据一致性
	pipe.Del(database.Ctx, WeightsKey)
	pipe.Del(database.Ctx, RankingKey)
	for i := range users {
		u := &users[i]
		b := weight.Compute(u.toWeightInput(), s)
		data, err := json.Marshal(b)
		if err != nil {
			continue
		}
		pipe.HSet(database.Ctx, WeightsKey, u.TwitchID, data)
		pipe.ZAdd(database.Ctx, RankingKey, redis.Z{Score: u.TotalWeight, Member: u.TwitchID})
	}

	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("预热用户权重到Redis失败: %w", err)
	}

	fmt.Printf("成功预热 %d 个用户的权重到Redis。\n", len(users))
	return nil
}

// PrimeCachedDB 是user模块的初始化总入口
func PrimeCachedDB() error {
	if err := migrateDB(); err != nil {
		return err
	}
	if err := WarmupCache(); err != nil {
		return err
	}
	return nil
}
