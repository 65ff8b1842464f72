package entry

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/stream-raffle-backend/internal/platform/database"
	"github.com/SlpAus/stream-raffle-backend/internal/platform/metadata"
	"github.com/SlpAus/stream-raffle-backend/internal/session"
)

// SubmitRequestBody 是报名提交的请求体
type SubmitRequestBody struct {
	TwitchID    string `json:"twitchId"`
	DisplayName string `json:"displayName" binding:"required"`
	Link        string `json:"link"`
	Notes       string `json:"notes"`
}

// SubmitEntryHandler 处理观众的报名提交
func SubmitEntryHandler(c *gin.Context) {
	var body SubmitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	created, err := SubmitEntry(SubmitInput{
		TwitchID:    body.TwitchID,
		DisplayName: body.DisplayName,
		Link:        body.Link,
		Notes:       body.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSubmissionsClosed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "SUBMISSIONS_CLOSED"})
		case errors.Is(err, session.ErrNoActiveSession):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "NO_ACTIVE_SESSION"})
		case errors.Is(err, ErrAlreadyEntered):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ALREADY_ENTERED"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "报名失败"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"entryId": created.ID})
}

// resolveDisplaySession 确定展示用的场次：优先进行中的，其次最近结束的
func resolveDisplaySession() (*session.Session, error) {
	cur, err := session.GetCurrentSession()
	if err != nil {
		return nil, err
	}
	if cur != nil {
		return cur, nil
	}
	return session.GetLatestEndedSession()
}

// ListEntriesHandler 返回当前（或最近结束）场次的条目列表
func ListEntriesHandler(c *gin.Context) {
	s, err := resolveDisplaySession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询场次失败"})
		return
	}
	if s == nil {
		c.JSON(http.StatusOK, gin.H{"entries": []Entry{}})
		return
	}

	entries, err := ListEntries(s.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询条目失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": s.ID, "entries": entries})
}

// GetLeaderboardHandler 返回当前（或最近结束）场次的权重排行榜
func GetLeaderboardHandler(c *gin.Context) {
	s, err := resolveDisplaySession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询场次失败"})
		return
	}
	if s == nil {
		c.JSON(http.StatusOK, gin.H{"leaderboard": []LeaderboardRow{}})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	rows, err := Leaderboard(s.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成排行榜失败"})
		return
	}

	// 排行榜可能被limit截断，额外带上未截断的参与者总数
	total, err := CountBySession(s.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成排行榜失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": s.ID, "leaderboard": rows, "totalEntries": total})
}

// DeleteEntryHandler 供管理端删除一条条目
func DeleteEntryHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "条目ID格式错误"})
		return
	}

	if err := DeleteEntry(uint(id)); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除条目失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// SetSubmissionsOpenRequestBody 是切换报名开关的请求体
type SetSubmissionsOpenRequestBody struct {
	Open *bool `json:"open" binding:"required"`
}

// SetSubmissionsOpenHandler 供管理端开放或关闭报名
func SetSubmissionsOpenHandler(c *gin.Context) {
	var body SetSubmissionsOpenRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	if err := metadata.SetSubmissionsOpen(database.DB, *body.Open); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新报名开关失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": *body.Open})
}
