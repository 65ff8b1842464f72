package session

import (
	"time"

	"gorm.io/gorm"
)

// SessionStatus 定义了场次状态的枚举类型
type SessionStatus string

const (
	// StatusActive 表示正在进行的场次，全系统同一时刻至多存在一个
	StatusActive SessionStatus = "ACTIVE"
	// StatusEnded 表示已结束的场次
	StatusEnded SessionStatus = "ENDED"
	// StatusSystem 表示永久的系统哨兵场次。
	// 它位于正常状态机之外，用于锚定从旧版本数据库导入的状态条目，
	// 永远不会对用户暴露。新代码的全局开关存放在metadata表中，
	// 不再产生新的哨兵条目。
	StatusSystem SessionStatus = "SYSTEM"
)

// Session 定义了一个抽奖场次的数据结构
type Session struct {
	gorm.Model

	// Name 是管理员提供的可选场次名称
	Name string `gorm:"type:varchar(128)"`

	// Status 记录场次当前所处的状态
	Status SessionStatus `gorm:"index;not null;type:varchar(16)"`

	// EndedAt 在场次结束时写入
	EndedAt *time.Time
}
