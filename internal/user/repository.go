package user

import (
	"sync"
)

// --- Redis 键名常量 ---

const (
	// WeightsKey 是一个 Redis Hash 的键，用于存储每个用户的权重构成明细。
	// Field: 用户的TwitchID
	// Value: weight.Breakdown 结构体的JSON序列化字符串
	WeightsKey = "user:weights"

	// RankingKey 是一个 Redis Sorted Set 的键，用于按总权重实时排序用户。
	// Score: 用户的TotalWeight
	// Member: 用户的TwitchID
	RankingKey = "user:ranking"
)

// --- 并发控制 ---

// repoMutex 是一个模块内部的、不导出的全局读写锁，
// 用于保护对本模块管理的Redis键的并发访问。
var repoMutex sync.RWMutex

// LockRepository 封装了对模块全局锁的写锁定操作。
func LockRepository() {
	repoMutex.Lock()
}

// UnlockRepository 封装了对模块全局锁的写解锁操作。
func UnlockRepository() {
	repoMutex.Unlock()
}

// RLockRepository 封装了对模块全局锁的读锁定操作。
func RLockRepository() {
	repoMutex.RLock()
}

// RUnlockRepository 封装了对模块全局锁的读解锁操作。
func RUnlockRepository() {
	repoMutex.RUnlock()
}
