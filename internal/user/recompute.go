package user

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/metadata"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/pkg/lifecycle"
)

// StartRecomputeWorker 启动后台的权重巡检任务。
// 它周期性地用当前参数重算所有用户的派生权重字段，
// 修复可能的漂移并刷新Redis排行缓存。
func StartRecomputeWorker(handle *lifecycle.Handle, interval time.Duration) {
	go runRecomputeLoop(handle, interval)
}

func runRecomputeLoop(handle *lifecycle.Handle, interval time.Duration) {
	defer handle.Close()
	fmt.Println("权重巡检任务 (Recompute Worker) 已启动。")

	for {
		if err := handle.Sleep(interval); err != nil {
			fmt.Println("Recompute Worker: 收到停机信号，退出。")
			return
		}
		if err := RecomputeAllUsers(); err != nil {
			fmt.Printf("警告: 权重巡检执行失败: %v\n", err)
		}
	}
}

// RecomputeAllUsers 用当前参数重算全部用户的权重并逐个落盘。
// 每个用户在独立的小事务中处理并持有行锁，
// 避免与并发的打赏事件互相覆盖。
func RecomputeAllUsers() error {
	s := settings.GetSettings()

	var ids []uint
	if err := database.DB.Model(&User{}).Order("id asc").Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("无法读取用户ID列表: %w", err)
	}

	updated := 0
	for _, id := range ids {
		var saved *User
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			u, err := GetForUpdateByID(tx, id)
			if err != nil {
				return err
			}
			Recompute(u, s)
			if err := SaveWeights(tx, u); err != nil {
				return err
			}
			saved = u
			return nil
		})
		if err != nil {
			fmt.Printf("警告: 重算用户 %d 权重失败: %v\n", id, err)
			continue
		}
		UpdateWeightCache(saved)
		updated++
	}

	if err := metadata.SetLastRecomputeAt(database.DB, time.Now()); err != nil {
		fmt.Printf("警告: 无法记录巡检完成时间: %v\n", err)
	}

	fmt.Printf("权重巡检完成，共重算 %d 个用户。\n", updated)
	return nil
}
