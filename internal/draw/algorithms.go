package draw

// Candidate 是一次加权抽取的候选项。
// 列表顺序必须固定（按条目ID升序），同样的输入和随机数
// 永远命中同一个候选。
type Candidate struct {
	EntryID uint
	UserID  *uint
	Weight  float64
}

// sumWeights 返回候选列表的总权重
func sumWeights(candidates []Candidate) float64 {
	var total float64
	for i := range candidates {
		total += candidates[i].Weight
	}
	return total
}

// pickIndex 在固定顺序的候选列表上执行减法游走：
// 从r中依次减去每个候选的权重，首个使r降到0及以下的候选即为命中。
// r应位于[0, 总权重)区间；浮点误差导致游走耗尽时回退到最后一项，
// 保证函数必然终止且返回值必然是列表成员。
func pickIndex(candidates []Candidate, r float64) int {
	for i := range candidates {
		r -= candidates[i].Weight
		if r <= 0 {
			return i
		}
	}
	return len(candidates) - 1
}
