package weight

import "math"

// Input 是权重计算所需的全部原始输入。
// 各计数器应由调用方保证非负（负值和非法值在写入层被拒绝），
// 本模块不做输入修正。
type Input struct {
	IsSubscriber bool
	SubMonths    int
	ResubCount   int

	TotalCheerBits  int
	TotalDonations  int64
	TotalGiftedSubs int

	CarryOverWeight float64
	SessionBonus    float64
}

// Breakdown 是一次权重计算的完整结果。
// 各分量之和恒等于TotalWeight，供展示层直接呈现构成明细。
type Breakdown struct {
	BaseWeight      float64 `json:"baseWeight"`
	Loyalty         float64 `json:"loyalty"`
	Support         float64 `json:"support"`
	SessionBonus    float64 `json:"sessionBonus"`
	CarryOverWeight float64 `json:"carryOverWeight"`
	TotalWeight     float64 `json:"totalWeight"`
}

// Compute 根据原始计数和公式参数计算用户的总权重。
// 这是一个纯函数：不做I/O，永不失败，相同输入永远得到相同输出。
//
// 各分量按以下顺序计算并封顶：
//  1. 忠诚度 = min(订阅月数分量 + 续订分量, LoyaltyMaxBonus)
//  2. 打赏 = min(Bits分量 + 捐赠分量 + 赠订分量, SupportMaxBonus)
//  3. 总权重 = 基础 + 忠诚度 + 打赏 + SessionBonus + 结转
//
// SessionBonus是管理员手动加成，位于所有封顶之外。
func Compute(in Input, s Settings) Breakdown {
	// --- 忠诚度分量 ---

	// 订阅者即使原始月数为0（数据同步滞后）也至少按1个月计算
	var effectiveMonths float64
	if in.IsSubscriber {
		effectiveMonths = math.Max(1, float64(in.SubMonths))
	}
	monthsComponent := math.Min(
		effectiveMonths*s.SubMonthsMultiplier,
		float64(s.SubMonthsCap)*s.SubMonthsMultiplier,
	)

	// 续订次数被刻意排除出公式：计数照常记录，但不产生权重。
	// 不要删除这个分支，将来的参数调整可能重新启用它。
	resubComponent := 0.0
	_ = in.ResubCount

	loyalty := math.Min(monthsComponent+resubComponent, s.LoyaltyMaxBonus)

	// --- 打赏分量 ---

	cheerWeight := math.Min(float64(in.TotalCheerBits)/s.CheerBitsDivisor, s.CheerBitsCap)

	// 现金捐赠与续订同理：刻意排除，保留分支。
	donationsWeight := 0.0
	_ = in.TotalDonations

	giftedSubsWeight := math.Min(float64(in.TotalGiftedSubs)*s.GiftedSubsMultiplier, s.GiftedSubsCap)

	support := math.Min(cheerWeight+donationsWeight+giftedSubsWeight, s.SupportMaxBonus)

	// --- 汇总 ---

	total := s.BaseWeight + loyalty + support + in.SessionBonus + in.CarryOverWeight

	return Breakdown{
		BaseWeight:      s.BaseWeight,
		Loyalty:         loyalty,
		Support:         support,
		SessionBonus:    in.SessionBonus,
		CarryOverWeight: in.CarryOverWeight,
		TotalWeight:     total,
	}
}
