package user

import (
	"gorm.io/gorm"

	"github.com/SlpAus/stream-raffle-backend/internal/weight"
)

// User 定义了观众在SQLite数据库中的持久化模型。
// 一个User对应一个平台身份，首次认证时创建，此后永不删除
// （软删除字段仅用于保留抽奖历史）。
type User struct {
	gorm.Model

	// TwitchID 是用户在直播平台上的唯一标识
	TwitchID string `gorm:"uniqueIndex;not null;type:varchar(64)"`

	// DisplayName 是用户的展示名称
	DisplayName string `gorm:"type:varchar(128)"`

	// --- 忠诚度计数（由平台身份数据同步，只读使用） ---
	IsSubscriber bool
	SubMonths    int
	ResubCount   int

	// --- 打赏计数（易变：用户获奖时清零，场次开始时全局清零） ---
	TotalCheerBits  int
	TotalDonations  int64 // 以最小货币单位计
	TotalGiftedSubs int

	// CarryOverWeight 是唯一跨场次存续的权重分量
	CarryOverWeight float64

	// SessionBonus 是管理员手动加成，位于所有封顶之外
	SessionBonus float64

	// --- 派生缓存字段 ---
	// 不变式: CurrentWeight + CarryOverWeight == TotalWeight 在每次写入后都成立。
	// 任何写路径都必须同时更新这两个字段，禁止单独修补其中一个。
	TotalWeight   float64
	CurrentWeight float64
}

// toWeightInput 将用户当前的原始计数转换为权重引擎的输入
func (u *User) toWeightInput() weight.Input {
	return weight.Input{
		IsSubscriber:    u.IsSubscriber,
		SubMonths:       u.SubMonths,
		ResubCount:      u.ResubCount,
		TotalCheerBits:  u.TotalCheerBits,
		TotalDonations:  u.TotalDonations,
		TotalGiftedSubs: u.TotalGiftedSubs,
		CarryOverWeight: u.CarryOverWeight,
		SessionBonus:    u.SessionBonus,
	}
}
