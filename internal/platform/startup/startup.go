package startup

import (
	"fmt"

	"github.com/SlpAus/stream-raffle-backend/internal/entry"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/metadata"
	"github.com/SlpAus/stream-raffle-backend/internal/session"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/internal/support"
	"github.com/SlpAus/stream-raffle-backend/internal/user"
)

// InitializeApplication 是应用首次启动时执行的总入口
func InitializeApplication() error {
	fmt.Println("开始应用首次初始化...")

	if err := metadata.PrimeDB(); err != nil {
		return err
	}
	if err := settings.PrimeDB(); err != nil {
		return err
	}
	if err := user.PrimeCachedDB(); err != nil {
		return err
	}
	if err := session.PrimeDB(); err != nil {
		return err
	}
	if err := entry.PrimeDB(); err != nil {
		return err
	}
	if err := support.PrimeCachedDB(); err != nil {
		return err
	}

	fmt.Println("应用初始化完成！")
	return nil
}

// RebuildCache 是一个专门用于在运行时热重建Redis缓存的函数。
// Redis重启后，所有热数据都从SQLite中恢复。
func RebuildCache() error {
	fmt.Println("开始缓存热重建...")

	if err := settings.WarmupCache(); err != nil {
		return err
	}

	user.LockRepository()
	defer user.UnlockRepository()
	if err := user.WarmupCache(); err != nil {
		return err
	}

	if err := support.WarmupCache(); err != nil {
		return err
	}

	fmt.Println("缓存热重建完成。")
	return nil
}
