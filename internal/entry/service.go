package entry

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/metadata"
	"github.com/SlpAus/stream-raffle-backend/internal/session"
	"github.com/SlpAus/stream-raffle-backend/internal/user"
)

var (
	// ErrSubmissionsClosed 表示报名当前未开放
	ErrSubmissionsClosed = errors.New("报名当前未开放")
	// ErrAlreadyEntered 表示用户在本场次已有未获奖条目
	ErrAlreadyEntered = errors.New("本场次已经报名过了")
	// ErrEntryNotFound 表示指定的条目不存在
	ErrEntryNotFound = errors.New("条目不存在")
)

// SubmitInput 是一次报名提交的输入
type SubmitInput struct {
	// TwitchID 为空表示匿名报名
	TwitchID    string
	DisplayName string
	Link        string
	Notes       string
}

// SubmitEntry 处理一次报名提交。
// 资格检查与创建在同一事务中完成；对有身份的报名，
// 先锁定用户行，使同一用户的并发提交串行化，
// 保证“每个(用户,场次)至多一条未获奖条目”的不变式。
func SubmitEntry(in SubmitInput) (*Entry, error) {
	if in.DisplayName == "" {
		return nil, errors.New("展示名称不能为空")
	}

	var created *Entry
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		open, err := metadata.GetSubmissionsOpen(tx)
		if err != nil {
			return err
		}
		if !open {
			return ErrSubmissionsClosed
		}

		var cur session.Session
		err = tx.Where("status = ?", session.StatusActive).First(&cur).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return session.ErrNoActiveSession
			}
			return err
		}

		e := Entry{
			SessionID:   cur.ID,
			DisplayName: in.DisplayName,
			Link:        in.Link,
			Notes:       in.Notes,
		}

		if in.TwitchID != "" {
			// 锁定用户行，串行化同一用户的并发报名
			u, err := user.GetOrCreateForUpdate(tx, in.TwitchID, in.DisplayName)
			if err != nil {
				return err
			}

			var count int64
			err = tx.Model(&Entry{}).
				Where("session_id = ? AND user_id = ? AND is_winner = ?", cur.ID, u.ID, false).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrAlreadyEntered
			}

			e.UserID = &u.ID
		}

		if err := tx.Create(&e).Error; err != nil {
			return err
		}
		created = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListEntries 返回指定场次的全部条目。
// SYSTEM哨兵场次的条目永远被排除，即使调用方误传其ID。
func ListEntries(sessionID uint) ([]Entry, error) {
	if sysID := session.SystemSessionID(); sysID != 0 && sessionID == sysID {
		return nil, nil
	}

	// 抽取游走依赖稳定的遍历顺序，created_at可能在同一时钟刻度内并列，
	// 追加主键作为决定性的次级排序
	var entries []Entry
	err := database.DB.Where("session_id = ?", sessionID).Order("created_at asc, id asc").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteEntry 软删除一条条目（管理员操作）
func DeleteEntry(id uint) error {
	res := database.DB.Delete(&Entry{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// LeaderboardRow 是排行榜的一行展示数据
type LeaderboardRow struct {
	EntryID     uint    `json:"entryId"`
	DisplayName string  `json:"displayName"`
	TwitchID    string  `json:"twitchId,omitempty"`
	Weight      float64 `json:"weight"`
	Probability float64 `json:"probability"`
}

// Leaderboard 返回场次内按权重排序的前N条未获奖条目，
// 附带按当前总权重计算的获奖概率（百分比）。
// 这是一个展示投影，权重来源与抽取流程相同的持久化字段。
func Leaderboard(sessionID uint, limit int) ([]LeaderboardRow, error) {
	entries, err := ListEntries(sessionID)
	if err != nil {
		return nil, err
	}

	rows := make([]LeaderboardRow, 0, len(entries))
	var totalWeight float64
	for i := range entries {
		e := &entries[i]
		if e.IsWinner {
			continue
		}

		row := LeaderboardRow{
			EntryID:     e.ID,
			DisplayName: e.DisplayName,
			Weight:      1.0, // 匿名条目的默认权重
		}
		if e.UserID != nil {
			var u user.User
			if err := database.DB.First(&u, *e.UserID).Error; err == nil {
				row.TwitchID = u.TwitchID
				row.Weight = u.TotalWeight
			}
		}
		totalWeight += row.Weight
		rows = append(rows, row)
	}

	if totalWeight > 0 {
		for i := range rows {
			rows[i].Probability = rows[i].Weight / totalWeight * 100
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Weight > rows[j].Weight
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// CountBySession 返回场次内未获奖条目数，供展示层使用
func CountBySession(sessionID uint) (int64, error) {
	var count int64
	err := database.DB.Model(&Entry{}).
		Where("session_id = ? AND is_winner = ?", sessionID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("无法统计场次条目: %w", err)
	}
	return count, nil
}
