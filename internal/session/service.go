package session

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/internal/user"
)

var (
	// ErrActiveSessionExists 表示已有进行中的场次，无法开启新场次
	ErrActiveSessionExists = errors.New("已存在进行中的场次")
	// ErrNoActiveSession 表示当前没有进行中的场次
	ErrNoActiveSession = errors.New("当前没有进行中的场次")
)

// GetCurrentSession 返回唯一的进行中场次，不存在时返回nil。
// 这是一个只读操作，没有任何副作用。
func GetCurrentSession() (*Session, error) {
	var s Session
	err := database.DB.Where("status = ?", StatusActive).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// GetLatestEndedSession 返回最近结束的场次，用于在无进行中场次时展示上一场结果。
func GetLatestEndedSession() (*Session, error) {
	var s Session
	err := database.DB.Where("status = ?", StatusEnded).Order("ended_at desc").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// StartNewSession 在一个事务中开启新场次：
//  1. 确认没有进行中的场次（有则失败，返回ErrActiveSessionExists）
//  2. 创建新的ACTIVE场次
//  3. 将上一个已结束场次中所有未获奖的条目迁移到新场次，
//     让未出结果的参与者跟随进入下一场，而不是凭空消失
//  4. 全局清零所有用户的易变打赏计数，并重算派生权重
//
// 第4步是刻意的全局清零，不限定在参与者范围内。
func StartNewSession(name string) (*Session, error) {
	var created *Session

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// 加锁检查，保证“至多一个ACTIVE场次”的全局不变式
		var existing Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ?", StatusActive).First(&existing).Error
		if err == nil {
			return ErrActiveSessionExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 定位上一个已结束的场次（可能不存在）
		var prev Session
		prevErr := tx.Where("status = ?", StatusEnded).Order("ended_at desc").First(&prev).Error
		if prevErr != nil && !errors.Is(prevErr, gorm.ErrRecordNotFound) {
			return prevErr
		}

		created = &Session{Name: name, Status: StatusActive}
		if err := tx.Create(created).Error; err != nil {
			return err
		}

		// 迁移未获奖条目。entries表由entry模块管理，这里只做
		// 跨模块的归属迁移，显式排除软删除行。
		if prevErr == nil {
			res := tx.Table("entries").
				Where("session_id = ? AND is_winner = ? AND deleted_at IS NULL", prev.ID, false).
				Update("session_id", created.ID)
			if res.Error != nil {
				return fmt.Errorf("迁移未获奖条目失败: %w", res.Error)
			}
			if res.RowsAffected > 0 {
				fmt.Printf("已将 %d 个未获奖条目迁移到新场次。\n", res.RowsAffected)
			}
		}

		// 全局清零易变计数
		if err := tx.Model(&user.User{}).Where("1 = 1").Updates(map[string]interface{}{
			"total_cheer_bits":  0,
			"total_donations":   0,
			"total_gifted_subs": 0,
		}).Error; err != nil {
			return fmt.Errorf("清零打赏计数失败: %w", err)
		}

		// 计数变化后必须在同一事务中重算派生权重，
		// 保证 CurrentWeight + CarryOverWeight == TotalWeight 落盘即成立
		s := settings.GetSettingsTx(tx)
		var users []user.User
		if err := tx.Find(&users).Error; err != nil {
			return err
		}
		for i := range users {
			user.Recompute(&users[i], s)
			if err := user.SaveWeights(tx, &users[i]); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// 事务提交后整体刷新权重缓存
	if err := user.WarmupCache(); err != nil {
		fmt.Printf("警告: 新场次开启后刷新权重缓存失败: %v\n", err)
	}

	fmt.Printf("新场次已开启 (ID: %d)。\n", created.ID)
	return created, nil
}

// EndCurrentSession 结束当前场次。
// 结转计算与状态翻转在同一个事务中完成：不存在“结转已应用但场次
// 仍为ACTIVE”的中间状态，崩溃后也无需恢复流程。
// resetWeights为true时，所有参与者的结转直接清零而不是累积。
func EndCurrentSession(resetWeights bool) (*Session, *CarryOverResult, error) {
	var ended *Session
	var result *CarryOverResult

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var cur Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ?", StatusActive).First(&cur).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveSession
			}
			return err
		}

		r, err := ApplyCarryOverTx(tx, cur.ID, resetWeights)
		if err != nil {
			return err
		}

		now := time.Now()
		cur.Status = StatusEnded
		cur.EndedAt = &now
		if err := tx.Save(&cur).Error; err != nil {
			return err
		}

		ended = &cur
		result = r
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// 事务提交后刷新受影响用户的权重缓存
	for i := range result.Users {
		user.UpdateWeightCache(&result.Users[i])
	}

	fmt.Printf("场次 %d 已结束，结转更新了 %d 个参与者。\n", ended.ID, result.UpdatedCount)
	return ended, result, nil
}

// EnsureSystemSession 幂等地获取或创建永久的SYSTEM哨兵场次。
func EnsureSystemSession() (*Session, error) {
	var s Session
	err := database.DB.Where("status = ?", StatusSystem).First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	s = Session{Name: "__system__", Status: StatusSystem}
	if err := database.DB.Create(&s).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			if err := database.DB.Where("status = ?", StatusSystem).First(&s).Error; err != nil {
				return nil, err
			}
			return &s, nil
		}
		return nil, err
	}
	return &s, nil
}

// SystemSessionID 返回SYSTEM场次的ID，供条目查询排除哨兵数据使用。
// 尚未初始化时返回0（不会匹配任何条目）。
func SystemSessionID() uint {
	var s Session
	if err := database.DB.Where("status = ?", StatusSystem).First(&s).Error; err != nil {
		return 0
	}
	return s.ID
}
