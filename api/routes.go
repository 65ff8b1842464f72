package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SlpAus/stream-raffle-backend/internal/draw"
	"github.com/SlpAus/stream-raffle-backend/internal/entry"
	"github.com/SlpAus/stream-raffle-backend/internal/session"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"github.com/SlpAus/stream-raffle-backend/internal/support"
	"github.com/SlpAus/stream-raffle-backend/internal/user"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		// 观众侧的只读与报名路由 /api/raffle
		raffleRoutes := api.Group("/raffle")
		{
			raffleRoutes.GET("/session", session.GetCurrentSessionHandler)
			raffleRoutes.GET("/entries", entry.ListEntriesHandler)
			raffleRoutes.GET("/leaderboard", entry.GetLeaderboardHandler)
			raffleRoutes.GET("/users/:id/weight", user.GetWeightBreakdownHandler)
			raffleRoutes.POST("/entries", entry.SubmitEntryHandler)
		}

		// 事件网关投递打赏信号的路由（签名校验由网关完成）
		api.POST("/events/support", support.SubmitEventHandler)

		// 管理端路由 /api/admin
		// 身份认证由上游反向代理完成，这里不再重复校验
		adminRoutes := api.Group("/admin")
		{
			adminRoutes.POST("/sessions", session.StartSessionHandler)
			adminRoutes.POST("/sessions/end", session.EndSessionHandler)
			adminRoutes.POST("/draw", draw.PickWinnerHandler)
			adminRoutes.GET("/settings", settings.GetSettingsHandler)
			adminRoutes.PUT("/settings", settings.UpdateSettingsHandler)
			adminRoutes.PUT("/submissions", entry.SetSubmissionsOpenHandler)
			adminRoutes.PUT("/users/bonus", user.SetSessionBonusHandler)
			adminRoutes.DELETE("/entries/:id", entry.DeleteEntryHandler)
		}
	}
}
