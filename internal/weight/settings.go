package weight

// Settings 定义了权重公式的全部可调参数。
// 它是一个纯值对象，由settings模块从数据库加载，或在数据库不可用时
// 回退到 DefaultSettings 提供的硬编码默认值。
type Settings struct {
	// 基础权重，所有参与者的保底权重
	BaseWeight float64 `json:"baseWeight"`

	// 订阅时长部分
	SubMonthsMultiplier float64 `json:"subMonthsMultiplier"`
	SubMonthsCap        int     `json:"subMonthsCap"`

	// 续订次数部分（当前公式中被刻意排除，保留参数以备将来启用）
	ResubMultiplier float64 `json:"resubMultiplier"`
	ResubCap        int     `json:"resubCap"`

	// Bits打赏部分
	CheerBitsDivisor float64 `json:"cheerBitsDivisor"`
	CheerBitsCap     float64 `json:"cheerBitsCap"`

	// 现金捐赠部分（当前公式中被刻意排除，保留参数以备将来启用）
	DonationsDivisor float64 `json:"donationsDivisor"`
	DonationsCap     float64 `json:"donationsCap"`

	// 赠订部分
	GiftedSubsMultiplier float64 `json:"giftedSubsMultiplier"`
	GiftedSubsCap        float64 `json:"giftedSubsCap"`

	// 跨场次结转部分
	CarryOverMultiplier float64 `json:"carryOverMultiplier"`
	CarryOverMaxBonus   float64 `json:"carryOverMaxBonus"`

	// 分组上限
	LoyaltyMaxBonus float64 `json:"loyaltyMaxBonus"`
	SupportMaxBonus float64 `json:"supportMaxBonus"`
}

// DefaultSettings 返回权重公式的硬编码默认参数。
// 当settings存储不可达或为空时，所有调用方都应使用这组值，
// 保证抽奖流程不会因为配置存储故障而阻塞。
func DefaultSettings() Settings {
	return Settings{
		BaseWeight:           1.0,
		SubMonthsMultiplier:  0.5,
		SubMonthsCap:         10,
		ResubMultiplier:      0.2,
		ResubCap:             5,
		CheerBitsDivisor:     100,
		CheerBitsCap:         120,
		DonationsDivisor:     1000,
		DonationsCap:         5,
		GiftedSubsMultiplier: 5,
		GiftedSubsCap:        120,
		CarryOverMultiplier:  0.5,
		CarryOverMaxBonus:    1.0,
		LoyaltyMaxBonus:      3.0,
		SupportMaxBonus:      120.0,
	}
}
