package support

import "time"

// EventType 定义了打赏信号的枚举类型
type EventType string

const (
	// EventCheer 表示一次Bits打赏
	EventCheer EventType = "cheer"
	// EventGiftedSub 表示一次赠订
	EventGiftedSub EventType = "giftedSub"
)

// Event 是上游事件网关投递的单个打赏信号。
// 投递语义是至少一次，可能乱序、可能重复，
// 本模块按DedupeKey保证幂等。
type Event struct {
	Type        EventType `json:"type"`
	TwitchID    string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Amount      int       `json:"amount"`
	DedupeKey   string    `json:"dedupeKey"`
	IsAnonymous bool      `json:"isAnonymous"`
}

// ProcessedEvent 定义了已处理事件的去重记录在数据库中的存储结构。
// 记录与计数增量在同一事务中写入：部分应用的崩溃会把两者一起回滚，
// 上游重试永远是安全的。
type ProcessedEvent struct {
	DedupeKey string `gorm:"primaryKey;type:varchar(128)"`
	CreatedAt time.Time
}
