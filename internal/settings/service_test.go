package settings

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/weight"
)

var testDBSeq int64

// setupTestDB 为每个测试打开一个独立的内存SQLite库。
// Redis保持未初始化状态，所有缓存路径按不可用跳过。
func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:settings_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("无法打开内存数据库: %v", err)
	}
	database.DB = db
}

func TestGetSettingsFallsBackToDefaultsWithoutTable(t *testing.T) {
	setupTestDB(t)

	// 表都不存在时读取也不能失败，必须回退到硬编码默认值
	s := GetSettings()
	if s != weight.DefaultSettings() {
		t.Errorf("无表时应返回默认参数, 实际: %+v", s)
	}
}

func TestGetSettingsFallsBackToDefaultsWithEmptyTable(t *testing.T) {
	setupTestDB(t)
	if err := database.DB.AutoMigrate(&WeightSettings{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}

	s := GetSettings()
	if s != weight.DefaultSettings() {
		t.Errorf("空表时应返回默认参数, 实际: %+v", s)
	}
}

func TestPrimeDBSeedsDefaultRow(t *testing.T) {
	setupTestDB(t)

	if err := PrimeDB(); err != nil {
		t.Fatalf("PrimeDB失败: %v", err)
	}

	var count int64
	if err := database.DB.Model(&WeightSettings{}).Count(&count).Error; err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if count != 1 {
		t.Fatalf("参数表应有1条记录, 实际 %d", count)
	}

	if s := GetSettings(); s != weight.DefaultSettings() {
		t.Errorf("种子记录应等于默认参数, 实际: %+v", s)
	}

	// 重复初始化不应产生第二条记录
	if err := PrimeDB(); err != nil {
		t.Fatalf("重复PrimeDB失败: %v", err)
	}
	if err := database.DB.Model(&WeightSettings{}).Count(&count).Error; err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if count != 1 {
		t.Errorf("重复PrimeDB后仍应只有1条记录, 实际 %d", count)
	}
}

func TestUpdateSettingsRoundTrip(t *testing.T) {
	setupTestDB(t)
	if err := PrimeDB(); err != nil {
		t.Fatalf("PrimeDB失败: %v", err)
	}

	s := weight.DefaultSettings()
	s.BaseWeight = 2.0
	s.GiftedSubsMultiplier = 8
	s.CarryOverMaxBonus = 3.0

	if err := UpdateSettings(s); err != nil {
		t.Fatalf("更新参数失败: %v", err)
	}

	got := GetSettings()
	if got != s {
		t.Errorf("读取到的参数与写入不一致:\n写入 %+v\n读取 %+v", s, got)
	}

	// 事务视图也必须看到同样的参数
	tx := database.DB.Begin()
	defer tx.Rollback()
	if gotTx := GetSettingsTx(tx); gotTx != s {
		t.Errorf("事务内读取到的参数与写入不一致: %+v", gotTx)
	}
}
