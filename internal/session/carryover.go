package session

import (
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/internal/user"
)

// CarryOverResult 是一次结转计算的汇总结果
type CarryOverResult struct {
	// UpdatedCount 是本次被更新的参与者数量
	UpdatedCount int
	// Users 是更新后的用户快照，供调用方在事务提交后刷新缓存
	Users []user.User
}

// ApplyCarryOverTx 在给定事务中，把场次内每个参与者本场赚取的权重
// 折算为有上限的结转加成，带入下一场次。
//
// 规则：
//   - 获胜者的结转清零（获奖后从零开始，防止权重滚雪球）
//   - resetWeights为true时，所有参与者的结转清零
//   - 其余参与者: newCarry = min(旧结转 + 本场权重×CarryOverMultiplier,
//     CarryOverMaxBonus)，其中本场权重 = max(0, TotalWeight−CarryOverWeight)
//
// 这是一个累加折叠，不是幂等操作：对同一场次重复调用会重复累积。
// 它只被EndCurrentSession在结束事务中调用一次，由事务保证至多一次语义。
func ApplyCarryOverTx(tx *gorm.DB, sessionID uint, resetWeights bool) (*CarryOverResult, error) {
	s := settings.GetSettingsTx(tx)

	// 读取场次的全部条目，收集去重后的参与者与获胜者。
	// entries表由entry模块管理，这里显式排除软删除行与匿名条目。
	type entryRow struct {
		UserID   *uint
		IsWinner bool
	}
	var rows []entryRow
	err := tx.Table("entries").Select("user_id, is_winner").
		Where("session_id = ? AND deleted_at IS NULL", sessionID).
		Order("id asc").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("无法读取场次 %d 的条目: %w", sessionID, err)
	}

	// 一个场次可以连续抽取多次（多个奖项），获奖者因此可能不止一个，
	// 必须按集合排除而不是只记最后一个
	winnerIDs := make(map[uint]bool)
	seen := make(map[uint]bool)
	participantIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		if row.UserID == nil {
			continue
		}
		if row.IsWinner {
			winnerIDs[*row.UserID] = true
		}
		if !seen[*row.UserID] {
			seen[*row.UserID] = true
			participantIDs = append(participantIDs, *row.UserID)
		}
	}

	result := &CarryOverResult{}
	for _, id := range participantIDs {
		u, err := user.GetForUpdateByID(tx, id)
		if err != nil {
			if err == user.ErrUserNotFound {
				// 条目指向的用户行缺失。数据模型不变式下不应发生，
				// 防御性地跳过而不是中断整场结转。
				fmt.Printf("警告: 场次 %d 的参与者 %d 不存在，已跳过。\n", sessionID, id)
				continue
			}
			return nil, err
		}

		if resetWeights || winnerIDs[id] {
			u.CarryOverWeight = 0
		} else {
			sessionWeight := math.Max(0, u.TotalWeight-u.CarryOverWeight)
			newCarry := u.CarryOverWeight + sessionWeight*s.CarryOverMultiplier
			u.CarryOverWeight = math.Min(newCarry, s.CarryOverMaxBonus)
		}

		// 用新结转重算派生权重后成对落盘
		user.Recompute(u, s)
		if err := user.SaveWeights(tx, u); err != nil {
			return nil, err
		}

		result.Users = append(result.Users, *u)
		result.UpdatedCount++
	}

	return result, nil
}
