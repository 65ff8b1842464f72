package draw

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SlpAus/stream-raffle-backend/internal/entry"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/config"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/session"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/internal/user"
	"github.com/SlpAus/stream-raffle-backend/pkg/token"
)

var (
	// ErrNoParticipants 表示当前场次没有可抽取的条目
	ErrNoParticipants = errors.New("当前场次没有参与者")
	// ErrAlreadyProcessed 表示候选条目在提交前已被并发抽取处理，
	// 调用方可以直接重试
	ErrAlreadyProcessed = errors.New("条目已被处理，请重试")
)

const (
	defaultDrawTimeout  = 5 * time.Second
	defaultSpinListSize = 20
)

// WinnerInfo 是获胜条目的展示数据
type WinnerInfo struct {
	EntryID     uint    `json:"entryId"`
	DisplayName string  `json:"displayName"`
	TwitchID    string  `json:"twitchId,omitempty"`
	Weight      float64 `json:"weight"`
}

// Result 是一次抽取的完整结果
type Result struct {
	DrawID      string                 `json:"drawId"`
	Winner      WinnerInfo             `json:"winner"`
	TotalWeight float64                `json:"totalWeight"`
	SpinList    []entry.LeaderboardRow `json:"spinList"`
	Signature   string                 `json:"signature"`
}

// PickWinner 在当前场次的未获奖条目中做一次加权随机抽取，
// 并以“事务内重新校验”的方式保证恰好一次提交：
//
// 权重读取与随机游走发生在事务之外（步骤1-3），提交事务（步骤4）
// 重新取回候选条目并校验其仍未获奖，输掉并发竞争时中止并返回可重试
// 错误。这是刻意保留的窄竞争窗口，而不是整体可串行化的抽取——
// 抽奖由人工触发且频率很低，重试的代价远小于全局锁。
func PickWinner(ctx context.Context) (*Result, error) {
	cur, err := session.GetCurrentSession()
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, session.ErrNoActiveSession
	}

	// 1. 加载候选列表（固定按条目ID升序）
	candidates, names, err := loadCandidates(cur.ID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoParticipants
	}

	// 2. 加权随机游走
	total := sumWeights(candidates)
	r := rand.Float64() * total
	picked := candidates[pickIndex(candidates, r)]

	// 3. 事务内重新校验并提交，带短超时：
	// 事务跨越两次相互依赖的写入，超时后向上抛出可重试错误，
	// 绝不把条目留在“已选中但未标记”的状态
	txCtx, cancel := context.WithTimeout(ctx, drawTimeout())
	defer cancel()

	var winnerUser *user.User
	err = database.DB.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		var e entry.Entry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&e, picked.EntryID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 条目在抽取过程中被删除
				return ErrAlreadyProcessed
			}
			return err
		}
		if e.IsWinner {
			// 输给了并发的另一次抽取
			return ErrAlreadyProcessed
		}

		e.IsWinner = true
		if err := tx.Save(&e).Error; err != nil {
			return err
		}

		// 防鲸鱼清零：获奖者的易变打赏计数与结转在同一事务中归零
		if e.UserID != nil {
			u, err := user.GetForUpdateByID(tx, *e.UserID)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					return nil // 条目存在但用户行缺失，防御性放行
				}
				return err
			}
			u.TotalCheerBits = 0
			u.TotalGiftedSubs = 0
			u.CarryOverWeight = 0
			if err := tx.Save(u).Error; err != nil {
				return err
			}
			winnerUser = u
		}
		return nil
	})
	if err != nil {
		if txCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrAlreadyProcessed, txCtx.Err())
		}
		return nil, err
	}

	// 4. 事务之外重算获奖者权重（这里允许最终一致）
	if winnerUser != nil {
		s := settings.GetSettings()
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			u, err := user.GetForUpdateByID(tx, winnerUser.ID)
			if err != nil {
				return err
			}
			user.Recompute(u, s)
			if err := user.SaveWeights(tx, u); err != nil {
				return err
			}
			winnerUser = u
			return nil
		})
		if err != nil {
			fmt.Printf("警告: 重算获奖者 %d 权重失败，巡检任务稍后会修复: %v\n", winnerUser.ID, err)
		} else {
			user.UpdateWeightCache(winnerUser)
		}
	}

	// 5. 构建转盘动画列表（仅供展示，不具有权威性）
	spinList, err := entry.Leaderboard(cur.ID, spinListSize())
	if err != nil {
		fmt.Printf("警告: 生成转盘列表失败: %v\n", err)
		spinList = nil
	}

	// 6. 对结果签名，前端可验证抽取确实由服务器产生
	drawID := uuid.NewString()
	payload := token.DrawPayload{DrawID: drawID, SessionID: cur.ID, EntryID: picked.EntryID}
	signature, err := token.GenerateDrawSignature(payload)
	if err != nil {
		fmt.Printf("警告: 生成抽取签名失败: %v\n", err)
	}

	result := &Result{
		DrawID: drawID,
		Winner: WinnerInfo{
			EntryID:     picked.EntryID,
			DisplayName: names[picked.EntryID],
			Weight:      picked.Weight,
		},
		TotalWeight: total,
		SpinList:    spinList,
		Signature:   signature,
	}
	if winnerUser != nil {
		result.Winner.TwitchID = winnerUser.TwitchID
	}

	fmt.Printf("场次 %d 抽取完成，获胜条目: %d (权重 %.2f / %.2f)。\n",
		cur.ID, picked.EntryID, picked.Weight, total)
	return result, nil
}

// loadCandidates 加载场次内全部未获奖条目及其权重。
// 没有关联用户的匿名条目按默认权重1.0参与。
func loadCandidates(sessionID uint) ([]Candidate, map[uint]string, error) {
	entries, err := entry.ListEntries(sessionID)
	if err != nil {
		return nil, nil, err
	}

	candidates := make([]Candidate, 0, len(entries))
	names := make(map[uint]string, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.IsWinner {
			continue
		}

		c := Candidate{EntryID: e.ID, UserID: e.UserID, Weight: 1.0}
		if e.UserID != nil {
			var u user.User
			if err := database.DB.First(&u, *e.UserID).Error; err == nil {
				c.Weight = u.TotalWeight
			}
		}
		candidates = append(candidates, c)
		names[e.ID] = e.DisplayName
	}
	return candidates, names, nil
}

func drawTimeout() time.Duration {
	if config.Cfg != nil && config.Cfg.Raffle.DrawTimeout > 0 {
		return config.Cfg.Raffle.DrawTimeout
	}
	return defaultDrawTimeout
}

func spinListSize() int {
	if config.Cfg != nil && config.Cfg.Raffle.SpinListSize > 0 {
		return config.Cfg.Raffle.SpinListSize
	}
	return defaultSpinListSize
}
