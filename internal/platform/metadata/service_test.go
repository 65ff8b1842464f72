package metadata

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:metadata_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("无法打开内存数据库: %v", err)
	}
	if err := db.AutoMigrate(&Metadata{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

func TestSetValueUpserts(t *testing.T) {
	db := openTestDB(t)

	if v, err := GetValue(db, "missing"); err != nil || v != "" {
		t.Errorf("缺失的键应返回空字符串: v=%q err=%v", v, err)
	}

	if err := SetValue(db, "k", "v1"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if err := SetValue(db, "k", "v2"); err != nil {
		t.Fatalf("覆盖写入失败: %v", err)
	}

	v, err := GetValue(db, "k")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if v != "v2" {
		t.Errorf("GetValue = %q, 期望 v2", v)
	}

	var count int64
	db.Model(&Metadata{}).Count(&count)
	if count != 1 {
		t.Errorf("覆盖写入不应产生新记录, 实际 %d 条", count)
	}
}

func TestSubmissionsOpenFlag(t *testing.T) {
	db := openTestDB(t)

	// 键缺失时默认关闭
	open, err := GetSubmissionsOpen(db)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if open {
		t.Error("键缺失时报名应默认关闭")
	}

	if err := SetSubmissionsOpen(db, true); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if open, _ = GetSubmissionsOpen(db); !open {
		t.Error("开关应已打开")
	}

	if err := SetSubmissionsOpen(db, false); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if open, _ = GetSubmissionsOpen(db); open {
		t.Error("开关应已关闭")
	}
}

func TestLastRecomputeAtRoundTrip(t *testing.T) {
	db := openTestDB(t)

	ts, err := GetLastRecomputeAt(db)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("未写入过时应返回零值时间, 实际 %v", ts)
	}

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if err := SetLastRecomputeAt(db, now); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	got, err := GetLastRecomputeAt(db)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("GetLastRecomputeAt = %v, 期望 %v", got, now)
	}
}
