package main

import (
	"fmt"

	"github.com/SlpAus/stream-raffle-backend/internal/entry"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/config"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/metadata"
	"github.com/SlpAus/stream-raffle-backend/internal/session"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/internal/user"
	"github.com/SlpAus/stream-raffle-backend/internal/weight"
)

// demoUser 描述一个演示用户的初始数据
type demoUser struct {
	twitchID    string
	displayName string
	isSub       bool
	subMonths   int
	cheerBits   int
	giftedSubs  int
}

var demoUsers = []demoUser{
	{"10001", "alice", true, 6, 200, 3},
	{"10002", "bob", true, 1, 0, 0},
	{"10003", "carol", false, 0, 500, 0},
	{"10004", "dave", false, 0, 0, 10},
}

// 向本地数据库写入一组演示数据：一个进行中的场次、四个用户和他们的报名
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Println("加载配置失败：", err)
		return
	}
	database.InitDB(cfg.Database.Sqlite)

	if err := database.DB.AutoMigrate(
		&metadata.Metadata{}, &settings.WeightSettings{},
		&user.User{}, &session.Session{}, &entry.Entry{},
	); err != nil {
		fmt.Println("迁移失败：", err)
		return
	}

	if err := metadata.SetSubmissionsOpen(database.DB, true); err != nil {
		fmt.Println("开放报名失败：", err)
		return
	}

	// 先开启场次再写入用户：开启流程会全局清零打赏计数
	created, err := session.StartNewSession("演示场次")
	if err != nil {
		fmt.Println("开启场次失败：", err)
		return
	}

	s := weight.DefaultSettings()
	for _, d := range demoUsers {
		u := user.User{
			TwitchID:        d.twitchID,
			DisplayName:     d.displayName,
			IsSubscriber:    d.isSub,
			SubMonths:       d.subMonths,
			TotalCheerBits:  d.cheerBits,
			TotalGiftedSubs: d.giftedSubs,
		}
		user.Recompute(&u, s)
		if err := database.DB.Create(&u).Error; err != nil {
			fmt.Printf("创建用户 %s 失败：%v\n", d.displayName, err)
			continue
		}
		fmt.Printf("用户 %s 已创建，总权重 %.2f\n", d.displayName, u.TotalWeight)
	}

	var users []user.User
	database.DB.Find(&users)
	for i := range users {
		u := &users[i]
		e := entry.Entry{SessionID: created.ID, UserID: &u.ID, DisplayName: u.DisplayName}
		if err := database.DB.Create(&e).Error; err != nil {
			fmt.Printf("为 %s 创建条目失败：%v\n", u.DisplayName, err)
		}
	}

	fmt.Println("演示数据写入完成。")
}
