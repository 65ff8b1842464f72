package session_test

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SlpAus/stream-raffle-backend/internal/entry"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/metadata"
	"github.com/SlpAus/stream-raffle-backend/internal/session"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/internal/user"
	"github.com/SlpAus/stream-raffle-backend/internal/weight"
)

var testDBSeq int64

func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:session_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("无法打开内存数据库: %v", err)
	}
	database.DB = db
	err = db.AutoMigrate(&user.User{}, &session.Session{}, &entry.Entry{},
		&settings.WeightSettings{}, &metadata.Metadata{})
	if err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
}

// seedUser 写入一个已重算过权重的用户
func seedUser(t *testing.T, twitchID string, cheerBits int) *user.User {
	t.Helper()
	u := user.User{TwitchID: twitchID, DisplayName: twitchID, TotalCheerBits: cheerBits}
	user.Recompute(&u, weight.DefaultSettings())
	if err := database.DB.Create(&u).Error; err != nil {
		t.Fatalf("创建用户 %s 失败: %v", twitchID, err)
	}
	return &u
}

func seedEntry(t *testing.T, sessionID uint, u *user.User, isWinner bool) *entry.Entry {
	t.Helper()
	e := entry.Entry{SessionID: sessionID, DisplayName: "e", IsWinner: isWinner}
	if u != nil {
		e.UserID = &u.ID
		e.DisplayName = u.DisplayName
	}
	if err := database.DB.Create(&e).Error; err != nil {
		t.Fatalf("创建条目失败: %v", err)
	}
	return &e
}

func reloadUser(t *testing.T, id uint) *user.User {
	t.Helper()
	var u user.User
	if err := database.DB.First(&u, id).Error; err != nil {
		t.Fatalf("无法读取用户 %d: %v", id, err)
	}
	return &u
}

func assertWeightInvariant(t *testing.T, u *user.User) {
	t.Helper()
	if math.Abs(u.CurrentWeight+u.CarryOverWeight-u.TotalWeight) > 1e-9 {
		t.Errorf("用户 %s 的权重不变式被破坏: current %f + carry %f != total %f",
			u.TwitchID, u.CurrentWeight, u.CarryOverWeight, u.TotalWeight)
	}
}

func TestStartNewSessionRejectsConcurrentActive(t *testing.T) {
	setupTestDB(t)

	first, err := session.StartNewSession("第一场")
	if err != nil {
		t.Fatalf("开启场次失败: %v", err)
	}
	if first.Status != session.StatusActive {
		t.Errorf("新场次状态 = %s, 期望 %s", first.Status, session.StatusActive)
	}

	cur, err := session.GetCurrentSession()
	if err != nil {
		t.Fatalf("GetCurrentSession失败: %v", err)
	}
	if cur == nil || cur.ID != first.ID {
		t.Errorf("GetCurrentSession应返回刚开启的场次 %d, 实际: %+v", first.ID, cur)
	}

	// 已有进行中的场次时拒绝开启，且不留下任何新场次
	if _, err := session.StartNewSession("第二场"); !errors.Is(err, session.ErrActiveSessionExists) {
		t.Errorf("应返回ErrActiveSessionExists, 实际: %v", err)
	}
	var count int64
	database.DB.Model(&session.Session{}).Count(&count)
	if count != 1 {
		t.Errorf("场次表应只有1条记录, 实际 %d", count)
	}
}

func TestStartNewSessionResetsSupportCounters(t *testing.T) {
	setupTestDB(t)

	u := seedUser(t, "whale", 500) // base 1.0 + bits 5.0 = 6.0
	if u.TotalWeight != 6.0 {
		t.Fatalf("种子用户权重 = %f, 期望 6.0", u.TotalWeight)
	}

	if _, err := session.StartNewSession("新的一场"); err != nil {
		t.Fatalf("开启场次失败: %v", err)
	}

	got := reloadUser(t, u.ID)
	if got.TotalCheerBits != 0 || got.TotalGiftedSubs != 0 || got.TotalDonations != 0 {
		t.Errorf("开场后打赏计数应全部清零: %+v", got)
	}
	if got.TotalWeight != 1.0 {
		t.Errorf("清零后TotalWeight = %f, 期望回到基础权重 1.0", got.TotalWeight)
	}
	assertWeightInvariant(t, got)
}

func TestEndCurrentSessionWithoutActive(t *testing.T) {
	setupTestDB(t)

	if _, _, err := session.EndCurrentSession(false); !errors.Is(err, session.ErrNoActiveSession) {
		t.Errorf("应返回ErrNoActiveSession, 实际: %v", err)
	}
}

func TestEndCurrentSessionFoldsCarryOver(t *testing.T) {
	setupTestDB(t)

	cur, err := session.StartNewSession("结转测试")
	if err != nil {
		t.Fatalf("开启场次失败: %v", err)
	}

	// 本场权重0.5的小额参与者与触顶的大额参与者
	small := seedUser(t, "small", 50)  // total 1.5, 本场 1.5
	big := seedUser(t, "big", 1000)    // total 11.0, 本场 11.0
	seedEntry(t, cur.ID, small, false)
	seedEntry(t, cur.ID, big, false)

	ended, result, err := session.EndCurrentSession(false)
	if err != nil {
		t.Fatalf("结束场次失败: %v", err)
	}
	if ended.Status != session.StatusEnded || ended.EndedAt == nil {
		t.Errorf("场次应翻转为已结束并记录时间: %+v", ended)
	}
	if result.UpdatedCount != 2 {
		t.Errorf("结转应更新2个参与者, 实际 %d", result.UpdatedCount)
	}

	// small: min(0 + 1.5×0.5, 1.0) = 0.75
	gotSmall := reloadUser(t, small.ID)
	if math.Abs(gotSmall.CarryOverWeight-0.75) > 1e-9 {
		t.Errorf("small的结转 = %f, 期望 0.75", gotSmall.CarryOverWeight)
	}
	assertWeightInvariant(t, gotSmall)

	// big: min(0 + 11.0×0.5, 1.0) = 1.0（触顶）
	gotBig := reloadUser(t, big.ID)
	if math.Abs(gotBig.CarryOverWeight-1.0) > 1e-9 {
		t.Errorf("big的结转 = %f, 期望封顶值 1.0", gotBig.CarryOverWeight)
	}
	assertWeightInvariant(t, gotBig)

	if cur2, _ := session.GetCurrentSession(); cur2 != nil {
		t.Errorf("结束后不应再有进行中场次: %+v", cur2)
	}
	if latest, _ := session.GetLatestEndedSession(); latest == nil || latest.ID != ended.ID {
		t.Errorf("GetLatestEndedSession应返回刚结束的场次 %d", ended.ID)
	}
}

func TestEndCurrentSessionExcludesWinner(t *testing.T) {
	setupTestDB(t)

	cur, err := session.StartNewSession("获奖者排除")
	if err != nil {
		t.Fatalf("开启场次失败: %v", err)
	}

	winner := seedUser(t, "winner", 100)
	loser := seedUser(t, "loser", 100)
	seedEntry(t, cur.ID, winner, true)
	seedEntry(t, cur.ID, loser, false)

	if _, _, err := session.EndCurrentSession(false); err != nil {
		t.Fatalf("结束场次失败: %v", err)
	}

	// 获奖者的结转清零，未获奖者正常折算
	if got := reloadUser(t, winner.ID); got.CarryOverWeight != 0 {
		t.Errorf("获奖者的结转 = %f, 期望 0", got.CarryOverWeight)
	}
	if got := reloadUser(t, loser.ID); math.Abs(got.CarryOverWeight-1.0) > 1e-9 {
		t.Errorf("未获奖者的结转 = %f, 期望 1.0", got.CarryOverWeight)
	}
}

func TestEndCurrentSessionExcludesAllWinners(t *testing.T) {
	setupTestDB(t)

	cur, err := session.StartNewSession("多次抽取")
	if err != nil {
		t.Fatalf("开启场次失败: %v", err)
	}

	// 一个场次连续抽取多次后会有多个获奖条目，所有获奖者都必须被排除
	first := seedUser(t, "w1", 100)
	second := seedUser(t, "w2", 100)
	loser := seedUser(t, "l1", 100)
	seedEntry(t, cur.ID, first, true)
	seedEntry(t, cur.ID, second, true)
	seedEntry(t, cur.ID, loser, false)

	if _, _, err := session.EndCurrentSession(false); err != nil {
		t.Fatalf("结束场次失败: %v", err)
	}

	for _, w := range []*user.User{first, second} {
		if got := reloadUser(t, w.ID); got.CarryOverWeight != 0 {
			t.Errorf("获奖者 %s 的结转 = %f, 期望 0", w.TwitchID, got.CarryOverWeight)
		}
	}
	if got := reloadUser(t, loser.ID); math.Abs(got.CarryOverWeight-1.0) > 1e-9 {
		t.Errorf("未获奖者的结转 = %f, 期望 1.0", got.CarryOverWeight)
	}
}

func TestEndCurrentSessionWithReset(t *testing.T) {
	setupTestDB(t)

	cur, err := session.StartNewSession("重置结转")
	if err != nil {
		t.Fatalf("开启场次失败: %v", err)
	}

	u := seedUser(t, "carrier", 100)
	// 预置历史结转，确认重置会覆盖而不是叠加
	u.CarryOverWeight = 0.8
	user.Recompute(u, weight.DefaultSettings())
	if err := database.DB.Save(u).Error; err != nil {
		t.Fatalf("写入用户失败: %v", err)
	}
	seedEntry(t, cur.ID, u, false)

	if _, _, err := session.EndCurrentSession(true); err != nil {
		t.Fatalf("结束场次失败: %v", err)
	}

	got := reloadUser(t, u.ID)
	if got.CarryOverWeight != 0 {
		t.Errorf("重置结转后应为0, 实际 %f", got.CarryOverWeight)
	}
	assertWeightInvariant(t, got)
}

func TestCarryOverAccumulatesAcrossSessions(t *testing.T) {
	setupTestDB(t)

	cur, err := session.StartNewSession("第一场")
	if err != nil {
		t.Fatalf("开启场次失败: %v", err)
	}
	u := seedUser(t, "regular", 50) // 本场权重 1.5
	seedEntry(t, cur.ID, u, false)

	if _, _, err := session.EndCurrentSession(false); err != nil {
		t.Fatalf("结束第一场失败: %v", err)
	}
	if got := reloadUser(t, u.ID); math.Abs(got.CarryOverWeight-0.75) > 1e-9 {
		t.Fatalf("第一场结转 = %f, 期望 0.75", got.CarryOverWeight)
	}

	// 第二场：开场清零打赏，参与者仅靠基础权重 1.0 参与
	if _, err := session.StartNewSession("第二场"); err != nil {
		t.Fatalf("开启第二场失败: %v", err)
	}
	if _, _, err := session.EndCurrentSession(false); err != nil {
		t.Fatalf("结束第二场失败: %v", err)
	}

	// min(0.75 + 1.0×0.5, 1.0) = 1.0：累积在封顶处停住
	got := reloadUser(t, u.ID)
	if math.Abs(got.CarryOverWeight-1.0) > 1e-9 {
		t.Errorf("第二场后的结转 = %f, 期望 1.0", got.CarryOverWeight)
	}
	assertWeightInvariant(t, got)
}

func TestStartNewSessionMigratesPendingEntries(t *testing.T) {
	setupTestDB(t)

	first, err := session.StartNewSession("上一场")
	if err != nil {
		t.Fatalf("开启场次失败: %v", err)
	}
	won := seedEntry(t, first.ID, nil, true)
	pending := seedEntry(t, first.ID, nil, false)
	if _, _, err := session.EndCurrentSession(false); err != nil {
		t.Fatalf("结束场次失败: %v", err)
	}

	next, err := session.StartNewSession("下一场")
	if err != nil {
		t.Fatalf("开启下一场失败: %v", err)
	}

	// 未获奖条目跟随进入新场次，已获奖条目留在原场次
	var migrated entry.Entry
	if err := database.DB.First(&migrated, pending.ID).Error; err != nil {
		t.Fatalf("读取条目失败: %v", err)
	}
	if migrated.SessionID != next.ID {
		t.Errorf("未获奖条目应迁移到场次 %d, 实际 %d", next.ID, migrated.SessionID)
	}
	var stayed entry.Entry
	if err := database.DB.First(&stayed, won.ID).Error; err != nil {
		t.Fatalf("读取条目失败: %v", err)
	}
	if stayed.SessionID != first.ID {
		t.Errorf("已获奖条目应留在场次 %d, 实际 %d", first.ID, stayed.SessionID)
	}
}

func TestEnsureSystemSessionIsIdempotent(t *testing.T) {
	setupTestDB(t)

	s1, err := session.EnsureSystemSession()
	if err != nil {
		t.Fatalf("EnsureSystemSession失败: %v", err)
	}
	s2, err := session.EnsureSystemSession()
	if err != nil {
		t.Fatalf("重复EnsureSystemSession失败: %v", err)
	}
	if s1.ID != s2.ID {
		t.Errorf("哨兵场次应唯一: %d != %d", s1.ID, s2.ID)
	}
	if got := session.SystemSessionID(); got != s1.ID {
		t.Errorf("SystemSessionID = %d, 期望 %d", got, s1.ID)
	}

	// 哨兵场次永远不会被当作进行中或已结束的场次返回
	if cur, _ := session.GetCurrentSession(); cur != nil {
		t.Errorf("哨兵场次不应被视为进行中: %+v", cur)
	}
	if latest, _ := session.GetLatestEndedSession(); latest != nil {
		t.Errorf("哨兵场次不应被视为已结束: %+v", latest)
	}
}
