package settings

import (
	"gorm.io/gorm"

	"github.com/SlpAus/stream-raffle-backend/internal/weight"
)

// WeightSettings 定义了权重公式参数在SQLite中的持久化模型。
// 这张表中应该只有一条记录，updatedAt即为配置版本。
type WeightSettings struct {
	gorm.Model

	BaseWeight           float64
	SubMonthsMultiplier  float64
	SubMonthsCap         int
	ResubMultiplier      float64
	ResubCap             int
	CheerBitsDivisor     float64
	CheerBitsCap         float64
	DonationsDivisor     float64
	DonationsCap         float64
	GiftedSubsMultiplier float64
	GiftedSubsCap        float64
	CarryOverMultiplier  float64
	CarryOverMaxBonus    float64
	LoyaltyMaxBonus      float64
	SupportMaxBonus      float64
}

// toValue 将持久化模型转换为纯值对象
func (m *WeightSettings) toValue() weight.Settings {
	return weight.Settings{
		BaseWeight:           m.BaseWeight,
		SubMonthsMultiplier:  m.SubMonthsMultiplier,
		SubMonthsCap:         m.SubMonthsCap,
		ResubMultiplier:      m.ResubMultiplier,
		ResubCap:             m.ResubCap,
		CheerBitsDivisor:     m.CheerBitsDivisor,
		CheerBitsCap:         m.CheerBitsCap,
		DonationsDivisor:     m.DonationsDivisor,
		DonationsCap:         m.DonationsCap,
		GiftedSubsMultiplier: m.GiftedSubsMultiplier,
		GiftedSubsCap:        m.GiftedSubsCap,
		CarryOverMultiplier:  m.CarryOverMultiplier,
		CarryOverMaxBonus:    m.CarryOverMaxBonus,
		LoyaltyMaxBonus:      m.LoyaltyMaxBonus,
		SupportMaxBonus:      m.SupportMaxBonus,
	}
}

// fromValue 用纯值对象填充持久化模型的各参数字段
func (m *WeightSettings) fromValue(s weight.Settings) {
	m.BaseWeight = s.BaseWeight
	m.SubMonthsMultiplier = s.SubMonthsMultiplier
	m.SubMonthsCap = s.SubMonthsCap
	m.ResubMultiplier = s.ResubMultiplier
	m.ResubCap = s.ResubCap
	m.CheerBitsDivisor = s.CheerBitsDivisor
	m.CheerBitsCap = s.CheerBitsCap
	m.DonationsDivisor = s.DonationsDivisor
	m.DonationsCap = s.DonationsCap
	m.GiftedSubsMultiplier = s.GiftedSubsMultiplier
	m.GiftedSubsCap = s.GiftedSubsCap
	m.CarryOverMultiplier = s.CarryOverMultiplier
	m.CarryOverMaxBonus = s.CarryOverMaxBonus
	m.LoyaltyMaxBonus = s.LoyaltyMaxBonus
	m.SupportMaxBonus = s.SupportMaxBonus
}
