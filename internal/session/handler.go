package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionResponse 是场次信息的通用响应结构
type SessionResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	EndedAt string `json:"endedAt,omitempty"`
}

func formatSession(s *Session) SessionResponse {
	resp := SessionResponse{
		ID:     s.ID,
		Name:   s.Name,
		Status: string(s.Status),
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// GetCurrentSessionHandler 返回当前进行中的场次；没有时回退到最近结束的场次
func GetCurrentSessionHandler(c *gin.Context) {
	cur, err := GetCurrentSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询场次失败"})
		return
	}
	if cur != nil {
		c.JSON(http.StatusOK, gin.H{"session": formatSession(cur), "active": true})
		return
	}

	last, err := GetLatestEndedSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询场次失败"})
		return
	}
	if last == nil {
		c.JSON(http.StatusOK, gin.H{"session": nil, "active": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": formatSession(last), "active": false})
}

// StartSessionRequestBody 是开启新场次的请求体
type StartSessionRequestBody struct {
	Name string `json:"name"`
}

// StartSessionHandler 供管理端开启一个新场次
func StartSessionHandler(c *gin.Context) {
	var body StartSessionRequestBody
	// 请求体可以为空（未命名场次）
	_ = c.ShouldBindJSON(&body)

	created, err := StartNewSession(body.Name)
	if err != nil {
		if errors.Is(err, ErrActiveSessionExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ACTIVE_SESSION_EXISTS"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "开启场次失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": formatSession(created)})
}

// EndSessionRequestBody 是结束场次的请求体
type EndSessionRequestBody struct {
	// ResetWeights 为true时跳过结转累积，直接清零所有参与者的结转
	ResetWeights bool `json:"resetWeights"`
}

// EndSessionHandler 供管理端结束当前场次（结转在同一事务中完成）
func EndSessionHandler(c *gin.Context) {
	var body EndSessionRequestBody
	_ = c.ShouldBindJSON(&body)

	ended, result, err := EndCurrentSession(body.ResetWeights)
	if err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "NO_ACTIVE_SESSION"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "结束场次失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":      formatSession(ended),
		"updatedCount": result.UpdatedCount,
	})
}
