package draw

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/stream-raffle-backend/internal/session"
)

// PickWinnerHandler 供管理端触发一次抽取
func PickWinnerHandler(c *gin.Context) {
	result, err := PickWinner(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoActiveSession):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "NO_ACTIVE_SESSION"})
		case errors.Is(err, ErrNoParticipants):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "NO_PARTICIPANTS"})
		case errors.Is(err, ErrAlreadyProcessed):
			// 并发抽取竞争或事务超时，调用方直接重试即可
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ALREADY_PROCESSED", "retryable": true})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "抽取失败"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
