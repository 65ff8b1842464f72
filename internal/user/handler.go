package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/settings"
	"gorm.io/gorm"
)

// WeightBreakdownResponse 是权重明细接口的响应结构
type WeightBreakdownResponse struct {
	TwitchID        string  `json:"twitchId"`
	DisplayName     string  `json:"displayName"`
	BaseWeight      float64 `json:"baseWeight"`
	Loyalty         float64 `json:"loyalty"`
	Support         float64 `json:"support"`
	SessionBonus    float64 `json:"sessionBonus"`
	CarryOverWeight float64 `json:"carryOverWeight"`
	TotalWeight     float64 `json:"totalWeight"`
	CurrentWeight   float64 `json:"currentWeight"`
}

// GetWeightBreakdownHandler 返回指定用户的权重构成明细
func GetWeightBreakdownHandler(c *gin.Context) {
	twitchID := c.Param("id")
	if twitchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少用户ID"})
		return
	}

	var u User
	if err := database.DB.Where("twitch_id = ?", twitchID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "用户不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询用户失败"})
		return
	}

	b, err := GetWeightBreakdown(twitchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "计算权重明细失败"})
		return
	}

	c.JSON(http.StatusOK, WeightBreakdownResponse{
		TwitchID:        u.TwitchID,
		DisplayName:     u.DisplayName,
		BaseWeight:      b.BaseWeight,
		Loyalty:         b.Loyalty,
		Support:         b.Support,
		SessionBonus:    b.SessionBonus,
		CarryOverWeight: b.CarryOverWeight,
		TotalWeight:     b.TotalWeight,
		CurrentWeight:   b.TotalWeight - b.CarryOverWeight,
	})
}

// SetBonusRequestBody 是管理员设置手动加成的请求体
type SetBonusRequestBody struct {
	TwitchID string  `json:"twitchId" binding:"required"`
	Bonus    float64 `json:"bonus"`
}

// SetSessionBonusHandler 供管理端设置用户的手动加成
func SetSessionBonusHandler(c *gin.Context) {
	var body SetBonusRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	var u User
	if err := database.DB.Where("twitch_id = ?", body.TwitchID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "用户不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询用户失败"})
		return
	}

	updated, err := SetSessionBonus(u.ID, body.Bonus, settings.GetSettings())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"twitchId":    updated.TwitchID,
		"totalWeight": updated.TotalWeight,
	})
}
