package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/schedule"
	"github.com/maqsadm/internal/service"
)

// Today 返回仪表盘"今天"视图：到期未完成与已完成分列。
func (a *API) Today(c *gin.Context) {
	date, ok := parseDateQuery(c, "date")
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	view, err := a.aggregator.Today(currentUserID(c), date)
	if err != nil {
		handleDashboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":      view.Date,
		"active":    serializeUserTasks(view.Active),
		"completed": serializeUserTasks(view.Completed),
	})
}

// Week 返回一周习惯表格。start 缺省取本周一。
func (a *API) Week(c *gin.Context) {
	today := schedule.Truncate(time.Now())

	start, ok := parseDateQuery(c, "start")
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return
	}
	if c.Query("start") == "" {
		start = weekStart(today)
	}

	grid, err := a.aggregator.Week(currentUserID(c), start, today)
	if err != nil {
		handleDashboardError(c, err)
		return
	}

	rows := make([]gin.H, 0, len(grid.Rows))
	for _, row := range grid.Rows {
		cells := make([]gin.H, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, gin.H{"date": cell.Date, "status": cell.Status})
		}
		rows = append(rows, gin.H{
			"task":  serializeUserTask(row.Task),
			"cells": cells,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"start": grid.Start,
		"end":   grid.End,
		"rows":  rows,
	})
}

// ListMyTasks 返回汇总后的全部任务（个人 + 订阅收窄后的群组任务）。
func (a *API) ListMyTasks(c *gin.Context) {
	today := schedule.Truncate(time.Now())

	tasks, err := a.aggregator.ScheduledTasksForUser(currentUserID(c), today)
	if err != nil {
		handleDashboardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": serializeUserTasks(tasks)})
}

// weekStart 返回 date 所在周的周一。
func weekStart(date time.Time) time.Time {
	weekday := int(date.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return date.AddDate(0, 0, -weekday+1)
}

func serializeUserTasks(tasks []service.UserTask) []gin.H {
	items := make([]gin.H, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, serializeUserTask(task))
	}
	return items
}

func serializeUserTask(task service.UserTask) gin.H {
	item := gin.H{
		"task_kind":       task.Ref.Kind,
		"task_id":         task.Ref.ID,
		"title":           task.Title,
		"description":     task.Description,
		"coins":           task.Coins,
		"timer_minutes":   task.TimerMinutes,
		"completed_today": task.CompletedToday,
	}
	if task.Ref.Kind == schedule.TaskKindGroup {
		item["group_id"] = task.GroupID
		item["group_name"] = task.GroupName
	}

	sched := gin.H{"kind": task.Schedule.Kind}
	if task.Schedule.Date != nil {
		sched["date"] = schedule.DayKey(*task.Schedule.Date)
	}
	if task.Schedule.StartDate != nil {
		sched["start_date"] = schedule.DayKey(*task.Schedule.StartDate)
	}
	if task.Schedule.EndDate != nil {
		sched["end_date"] = schedule.DayKey(*task.Schedule.EndDate)
	}
	if len(task.Schedule.Days) > 0 {
		names := make([]string, 0, len(task.Schedule.Days))
		for _, day := range task.Schedule.Days {
			names = append(names, day.String())
		}
		sched["days"] = names
	}
	item["schedule"] = sched

	return item
}

func handleDashboardError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUserNotFound) {
		respondError(c, http.StatusNotFound, "用户不存在")
		return
	}
	respondError(c, http.StatusInternalServerError, "获取任务视图失败")
}
