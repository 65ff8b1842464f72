package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/stream-raffle-backend/internal/weight"
)

// GetSettingsHandler 返回当前生效的权重公式参数
func GetSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, GetSettings())
}

// UpdateSettingsHandler 供管理端整体更新权重公式参数
func UpdateSettingsHandler(c *gin.Context) {
	var body weight.Settings
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	// 拒绝会让公式失去意义的数值；0被允许（表示关闭某个分量）
	if body.BaseWeight < 0 || body.CheerBitsDivisor <= 0 || body.DonationsDivisor <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数取值非法"})
		return
	}

	if err := UpdateSettings(body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新权重参数失败"})
		return
	}

	c.JSON(http.StatusOK, body)
}
