package support

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/internal/user"
)

// dedupeCacheSetKey 是已处理DedupeKey的Redis Set缓存。
// 它只是重复投递的快速否决路径，SQLite中的去重记录才是权威来源。
const dedupeCacheSetKey = "support:dedupe_cache"

// errDuplicateEvent 是内部哨兵错误，用于把“去重键已存在”从事务中带出来
var errDuplicateEvent = errors.New("事件已处理")

// Apply 将一个打赏信号原子地应用到对应用户：
//  1. 锁定用户行，串行化同一用户的并发事件
//  2. 写入去重记录，键冲突则整个操作按无副作用的成功处理
//  3. 累加对应的原始计数
//  4. 用当前参数重算并持久化派生权重
//
// 步骤1-4在同一个事务中完成。返回值applied为false表示本次调用
// 没有产生任何状态变化（重复投递、匿名事件或非法数值）。
func Apply(ev Event) (applied bool, err error) {
	// 匿名打赏者主动放弃抽奖权重：不计数、不留去重记录
	if ev.IsAnonymous {
		return false, nil
	}
	if ev.TwitchID == "" || ev.DedupeKey == "" {
		return false, errors.New("事件缺少用户ID或去重键")
	}
	// 非正数按无副作用跳过处理（记录日志，不视为错误）
	if ev.Amount <= 0 {
		fmt.Printf("警告: 忽略非法打赏数值 %d (key: %s)\n", ev.Amount, ev.DedupeKey)
		return false, nil
	}
	if ev.Type != EventCheer && ev.Type != EventGiftedSub {
		return false, fmt.Errorf("未知的事件类型: %s", ev.Type)
	}

	// 快速否决路径：Redis缓存确认的重复投递直接返回
	if database.CacheAvailable() {
		isMember, err := database.RDB.SIsMember(database.Ctx, dedupeCacheSetKey, ev.DedupeKey).Result()
		if err == nil && isMember {
			return false, nil
		}
	}

	var updated *user.User
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		// 1. 锁定（或创建）用户行
		u, err := user.GetOrCreateForUpdate(tx, ev.TwitchID, ev.DisplayName)
		if err != nil {
			return err
		}

		// 2. 去重记录与后续写入同生共死
		if err := tx.Create(&ProcessedEvent{DedupeKey: ev.DedupeKey}).Error; err != nil {
			if database.IsDuplicateKeyError(err) {
				return errDuplicateEvent
			}
			return err
		}

		// 3. 累加原始计数
		switch ev.Type {
		case EventCheer:
			u.TotalCheerBits += ev.Amount
		case EventGiftedSub:
			u.TotalGiftedSubs += ev.Amount
		}

		// 4. 重算并成对落盘派生权重
		user.Recompute(u, settings.GetSettingsTx(tx))
		if err := user.SaveWeights(tx, u); err != nil {
			return err
		}

		updated = u
		return nil
	})
	if err != nil {
		if errors.Is(err, errDuplicateEvent) {
			// 重复投递按成功处理，上游无需区分
			fillDedupeCache(ev.DedupeKey)
			return false, nil
		}
		return false, err
	}

	// 事务提交后刷新缓存（尽力而为）
	fillDedupeCache(ev.DedupeKey)
	user.UpdateWeightCache(updated)

	return true, nil
}

// fillDedupeCache 将去重键写入Redis快速否决缓存
func fillDedupeCache(key string) {
	if !database.CacheAvailable() {
		return
	}
	if err := database.RDB.SAdd(database.Ctx, dedupeCacheSetKey, key).Err(); err != nil {
		fmt.Printf("警告: 写入去重缓存失败: %v\n", err)
	}
}

// WarmupCache 从SQLite分批读取所有去重记录并重建Redis快速否决缓存
func WarmupCache() error {
	if !database.CacheAvailable() {
		fmt.Println("Redis不可用，跳过去重缓存预热。")
		return nil
	}

	if err := database.RDB.Del(database.Ctx, dedupeCacheSetKey).Err(); err != nil {
		return fmt.Errorf("擦除旧的去重缓存失败: %w", err)
	}

	const batchSize = 10000

	keyCount := 0
	var lastProcessedKey string // 在字符串键上分页，按字母顺序
	var batch []string

	for i := 1; ; i++ {
		err := database.DB.Model(&ProcessedEvent{}).
			Where("dedupe_key > ?", lastProcessedKey).
			Order("dedupe_key asc").Limit(batchSize).
			Pluck("dedupe_key", &batch).Error
		if err != nil {
			return fmt.Errorf("分批读取去重记录失败 (batch %d): %w", i, err)
		}
		if len(batch) == 0 {
			break
		}

		interfaceBatch := make([]interface{}, len(batch))
		for j, key := range batch {
			interfaceBatch[j] = key
		}
		if err := database.RDB.SAdd(database.Ctx, dedupeCacheSetKey, interfaceBatch...).Err(); err != nil {
			return fmt.Errorf("批量写回去重缓存失败 (batch %d): %w", i, err)
		}

		keyCount += len(batch)
		if len(batch) < batchSize {
			break
		}
		lastProcessedKey = batch[len(batch)-1]
		batch = batch[:0]
	}

	fmt.Printf("成功预热 %d 个去重键到Redis。\n", keyCount)
	return nil
}
