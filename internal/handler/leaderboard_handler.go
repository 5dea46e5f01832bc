package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/service"
)

// GlobalLeaderboard 返回全站排行榜
func (a *API) GlobalLeaderboard(c *gin.Context) {
	entries, err := a.leaderboards.Global(parseLimitQuery(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取排行榜失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": serializeLeaderboard(entries)})
}

// GroupLeaderboard 返回群组排行榜，仅成员可见。
func (a *API) GroupLeaderboard(c *gin.Context) {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的群组ID")
		return
	}

	if err := a.groups.RequireMember(currentUserID(c), groupID); err != nil {
		handleGroupError(c, err)
		return
	}

	entries, err := a.leaderboards.Group(groupID, parseLimitQuery(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取排行榜失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": serializeLeaderboard(entries)})
}

func parseLimitQuery(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		return 0
	}
	return limit
}

func serializeLeaderboard(entries []service.LeaderboardEntry) []gin.H {
	items := make([]gin.H, 0, len(entries))
	for rank, entry := range entries {
		items = append(items, gin.H{
			"rank":         rank + 1,
			"user_id":      entry.UserID,
			"username":     entry.Username,
			"display_name": entry.DisplayName,
			"coins":        entry.Coins,
			"silver_coins": entry.SilverCoins,
			"total":        entry.Total,
		})
	}
	return items
}
