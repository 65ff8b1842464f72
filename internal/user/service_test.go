package user

import (
	"errors"
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

func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:user_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("无法打开内存数据库: %v", err)
	}
	database.DB = db
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
}

func TestGetOrCreateForUpdate(t *testing.T) {
	setupTestDB(t)

	var firstID uint
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		u, err := GetOrCreateForUpdate(tx, "tw-1", "Alice")
		if err != nil {
			return err
		}
		firstID = u.ID
		return nil
	})
	if err != nil {
		t.Fatalf("首次GetOrCreateForUpdate失败: %v", err)
	}
	if firstID == 0 {
		t.Fatal("创建的用户应有主键")
	}

	// 第二次调用返回同一条记录而不是新建
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		u, err := GetOrCreateForUpdate(tx, "tw-1", "Alice Renamed")
		if err != nil {
			return err
		}
		if u.ID != firstID {
			t.Errorf("应返回已有用户 %d, 实际 %d", firstID, u.ID)
		}
		if u.DisplayName != "Alice" {
			t.Errorf("已有用户的展示名不应被覆盖: %s", u.DisplayName)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("第二次GetOrCreateForUpdate失败: %v", err)
	}

	var count int64
	database.DB.Model(&User{}).Count(&count)
	if count != 1 {
		t.Errorf("用户表应只有1条记录, 实际 %d", count)
	}
}

func TestGetForUpdateByIDNotFound(t *testing.T) {
	setupTestDB(t)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		_, err := GetForUpdateByID(tx, 42)
		return err
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("应返回ErrUserNotFound, 实际: %v", err)
	}
}

func TestRecomputeKeepsWeightsPaired(t *testing.T) {
	u := User{
		TwitchID:        "tw-2",
		IsSubscriber:    true,
		SubMonths:       6,
		TotalCheerBits:  200,
		CarryOverWeight: 0.5,
	}
	b := Recompute(&u, weight.DefaultSettings())

	if u.TotalWeight != b.TotalWeight {
		t.Errorf("TotalWeight = %f, 期望与明细一致 %f", u.TotalWeight, b.TotalWeight)
	}
	if u.CurrentWeight+u.CarryOverWeight != u.TotalWeight {
		t.Errorf("权重不变式被破坏: current %f + carry %f != total %f",
			u.CurrentWeight, u.CarryOverWeight, u.TotalWeight)
	}
}

func TestSetSessionBonus(t *testing.T) {
	setupTestDB(t)

	u := User{TwitchID: "tw-3", DisplayName: "Bob"}
	Recompute(&u, weight.DefaultSettings())
	if err := database.DB.Create(&u).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	if _, err := SetSessionBonus(u.ID, -1, weight.DefaultSettings()); err == nil {
		t.Error("负数加成应被拒绝")
	}

	// 手动加成位于所有封顶之外，直接叠加在总权重上
	updated, err := SetSessionBonus(u.ID, 500, weight.DefaultSettings())
	if err != nil {
		t.Fatalf("设置加成失败: %v", err)
	}
	if updated.SessionBonus != 500 {
		t.Errorf("SessionBonus = %f, 期望 500", updated.SessionBonus)
	}
	if updated.TotalWeight != 501.0 {
		t.Errorf("TotalWeight = %f, 期望 501.0", updated.TotalWeight)
	}

	if _, err := SetSessionBonus(9999, 1, weight.DefaultSettings()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("不存在的用户应返回ErrUserNotFound, 实际: %v", err)
	}
}

func TestGetWeightBreakdown(t *testing.T) {
	setupTestDB(t)

	if _, err := GetWeightBreakdown("ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("不存在的用户应返回ErrUserNotFound, 实际: %v", err)
	}

	u := User{TwitchID: "tw-4", IsSubscriber: true, SubMonths: 4, TotalCheerBits: 100}
	Recompute(&u, weight.DefaultSettings())
	if err := database.DB.Create(&u).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	b, err := GetWeightBreakdown("tw-4")
	if err != nil {
		t.Fatalf("GetWeightBreakdown失败: %v", err)
	}
	// base 1.0 + 忠诚度 4×0.5 + 打赏 100/100 = 4.0
	if b.TotalWeight != 4.0 {
		t.Errorf("TotalWeight = %f, 期望 4.0", b.TotalWeight)
	}
	if b.BaseWeight+b.Loyalty+b.Support+b.SessionBonus+b.CarryOverWeight != b.TotalWeight {
		t.Errorf("明细分量之和应等于总权重: %+v", b)
	}
}
