package metadata

import "gorm.io/gorm"

// Metadata 定义了存储系统元数据的键值对表结构。
// 所有跨模块的全局开关（例如“是否开放报名”）都存放在这张显式的
// 状态表中，而不是借用业务表的特殊行。
type Metadata struct {
	// gorm.Model 包含 ID, CreatedAt, UpdatedAt, DeletedAt
	gorm.Model

	// Key 是元数据的唯一键，例如 "submissions_open"
	Key string `gorm:"uniqueIndex;not null;type:varchar(255)"`

	// Value 存储元数据的值
	Value string `gorm:"type:varchar(255)"`
}
