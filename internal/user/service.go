package user

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/internal/weight"
)

// ErrUserNotFound 表示指定的用户不存在
var ErrUserNotFound = errors.New("用户不存在")

// GetOrCreateForUpdate 在事务中按TwitchID查找用户并锁定其行。
// 用户不存在时创建一条新记录（同样处于锁定状态）。
// 这是所有按用户串行化的写路径（打赏事件、管理员调整）的入口。
func GetOrCreateForUpdate(tx *gorm.DB, twitchID, displayName string) (*User, error) {
	var u User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("twitch_id = ?", twitchID).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("无法查询用户 %s: %w", twitchID, err)
	}

	u = User{TwitchID: twitchID, DisplayName: displayName}
	if err := tx.Create(&u).Error; err != nil {
		// 并发创建时让位给已提交的一方，重新加锁读取
		if database.IsDuplicateKeyError(err) {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("twitch_id = ?", twitchID).First(&u).Error; err != nil {
				return nil, err
			}
			return &u, nil
		}
		return nil, fmt.Errorf("无法创建用户 %s: %w", twitchID, err)
	}
	return &u, nil
}

// GetForUpdateByID 在事务中按主键锁定并返回用户
func GetForUpdateByID(tx *gorm.DB, id uint) (*User, error) {
	var u User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Recompute 用给定参数重算用户的派生权重字段。
// TotalWeight和CurrentWeight总是成对更新，保证两者的不变式成立。
// 调用方负责随后将用户保存回数据库。
func Recompute(u *User, s weight.Settings) weight.Breakdown {
	b := weight.Compute(u.toWeightInput(), s)
	u.TotalWeight = b.TotalWeight
	u.CurrentWeight = b.TotalWeight - u.CarryOverWeight
	return b
}

// SaveWeights 将用户写回数据库。必须在Recompute之后调用，
// 使TotalWeight/CurrentWeight与计数字段在同一次写入中落盘。
func SaveWeights(tx *gorm.DB, u *User) error {
	return tx.Save(u).Error
}

// SetSessionBonus 设置用户的管理员手动加成并立即重算权重
func SetSessionBonus(userID uint, bonus float64, s weight.Settings) (*User, error) {
	if bonus < 0 {
		return nil, errors.New("加成不能为负数")
	}

	var updated *User
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		u, err := GetForUpdateByID(tx, userID)
		if err != nil {
			return err
		}
		u.SessionBonus = bonus
		Recompute(u, s)
		if err := SaveWeights(tx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	UpdateWeightCache(updated)
	return updated, nil
}

// GetWeightBreakdown 返回用户的权重构成明细（展示投影）。
// 优先使用Redis中的明细缓存，缓存不可用时从SQLite现算。
func GetWeightBreakdown(twitchID string) (weight.Breakdown, error) {
	if database.CacheAvailable() {
		RLockRepository()
		cached, err := database.RDB.HGet(database.Ctx, WeightsKey, twitchID).Result()
		RUnlockRepository()
		if err == nil && cached != "" {
			var b weight.Breakdown
			if json.Unmarshal([]byte(cached), &b) == nil {
				return b, nil
			}
		}
	}

	var u User
	err := database.DB.Where("twitch_id = ?", twitchID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return weight.Breakdown{}, ErrUserNotFound
		}
		return weight.Breakdown{}, err
	}

	// 现算不落库：展示投影允许与持久化字段存在瞬时偏差
	return weight.Compute(u.toWeightInput(), settings.GetSettings()), nil
}

// UpdateWeightCache 在事务提交后刷新用户的Redis权重缓存。
// 缓存写入是尽力而为的：失败只影响展示时效，不影响权威数据。
func UpdateWeightCache(u *User) {
	if !database.CacheAvailable() {
		return
	}

	b := weight.Compute(u.toWeightInput(), settings.GetSettings())
	data, err := json.Marshal(b)
	if err != nil {
		return
	}

	LockRepository()
	defer UnlockRepository()

	pipe := database.RDB.Pipeline()
	pipe.HSet(database.Ctx, WeightsKey, u.TwitchID, data)
	pipe.ZAdd(database.Ctx, RankingKey, redis.Z{Score: u.TotalWeight, Member: u.TwitchID})
	if _, err := pipe.Exec(database.Ctx); err != nil {
		fmt.Printf("警告: 刷新用户 %s 的权重缓存失败: %v\n", u.TwitchID, err)
	}
}
