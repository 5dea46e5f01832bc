package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/schedule"
	"github.com/maqsadm/internal/service"
)

// CompleteTask 记录一次任务完成并入账奖励。
// 同一天重复提交返回 409，这是唯一索引兜底后的常规分支。
func (a *API) CompleteTask(c *gin.Context) {
	var payload struct {
		TaskKind string `json:"task_kind"` // group / personal
		TaskID   uint   `json:"task_id"`
		Date     string `json:"date"`   // yyyy-MM-dd，缺省今天
		Source   string `json:"source"` // manual / pomodoro
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	date := schedule.Truncate(time.Now())
	if raw := strings.TrimSpace(payload.Date); raw != "" {
		parsed, err := time.ParseInLocation(schedule.DateFormat, raw, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的完成日期")
			return
		}
		date = parsed
	}

	source := strings.TrimSpace(strings.ToLower(payload.Source))
	if source != db.CompletionSourcePomodoro {
		source = db.CompletionSourceManual
	}

	result, err := a.completions.Complete(
		currentUserID(c),
		schedule.TaskKind(payload.TaskKind),
		payload.TaskID,
		date,
		source,
	)
	if err != nil {
		handleCompletionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"completed_on": result.Record.CompletedOn,
		"coins":        result.Coins,
		"silver_coins": result.SilverCoins,
	})
}

// ListCompletions 返回区间内的完成历史
func (a *API) ListCompletions(c *gin.Context) {
	start, ok := parseDateQuery(c, "start")
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return
	}
	end, ok := parseDateQuery(c, "end")
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的结束日期")
		return
	}

	records, err := a.completions.HistoryBetween(currentUserID(c), start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取完成历史失败")
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, record := range records {
		items = append(items, gin.H{
			"task_kind": record.Task.Kind,
			"task_id":   record.Task.ID,
			"date":      schedule.DayKey(record.Date),
		})
	}
	c.JSON(http.StatusOK, gin.H{"completions": items})
}

func handleCompletionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyCompleted):
		respondError(c, http.StatusConflict, "今天已完成过该任务")
	case errors.Is(err, service.ErrUnknownTaskKind):
		respondError(c, http.StatusBadRequest, "无效的任务类型")
	default:
		handleTaskError(c, err)
	}
}
