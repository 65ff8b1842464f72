package support

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// EventRequestBody 是事件网关投递打赏信号的请求体。
// 签名校验由上游网关完成，这里只做结构校验。
type EventRequestBody struct {
	Type        EventType `json:"type" binding:"required"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Amount      int       `json:"amount"`
	DedupeKey   string    `json:"dedupeKey" binding:"required"`
	IsAnonymous bool      `json:"isAnonymous"`
}

// SubmitEventHandler 接收单个打赏信号并应用到用户计数。
// 重复投递返回200的无副作用成功，上游的至少一次重试因此总是安全的。
func SubmitEventHandler(c *gin.Context) {
	var body EventRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	applied, err := Apply(Event{
		Type:        body.Type,
		TwitchID:    body.UserID,
		DisplayName: body.DisplayName,
		Amount:      body.Amount,
		DedupeKey:   body.DedupeKey,
		IsAnonymous: body.IsAnonymous,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applied": applied})
}
