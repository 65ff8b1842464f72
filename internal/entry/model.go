package entry

import (
	"gorm.io/gorm"
)

// Entry 定义了一条抽奖报名在SQLite中的持久化模型。
// 每条Entry归属于恰好一个场次；未登录的匿名报名没有关联用户，
// 抽取时按默认权重1.0处理。
type Entry struct {
	gorm.Model

	// SessionID 是条目所属场次的ID
	SessionID uint `gorm:"index;not null"`

	// UserID 是关联用户的ID，匿名报名时为空
	UserID *uint `gorm:"index"`

	// DisplayName 是报名时的展示名称
	DisplayName string `gorm:"type:varchar(128);not null"`

	// Link 是可选的作品/内容链接
	Link string `gorm:"type:varchar(512)"`

	// Notes 是可选的备注
	Notes string `gorm:"type:varchar(1024)"`

	// IsWinner 由抽取流程翻转为true，每条条目至多翻转一次
	IsWinner bool `gorm:"index;not null;default:false"`
}
