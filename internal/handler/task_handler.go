package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/schedule"
	"github.com/maqsadm/internal/service"
)

type taskPayload struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Coins        int      `json:"coins"`
	Visibility   string   `json:"visibility"`
	ScheduleKind string   `json:"schedule_kind"`
	Date         string   `json:"date"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Days         []string `json:"days"`
	TimerMinutes int      `json:"timer_minutes"`
}

func (p taskPayload) toInput() service.TaskInput {
	return service.TaskInput{
		Title:        p.Title,
		Description:  p.Description,
		Coins:        p.Coins,
		Visibility:   p.Visibility,
		ScheduleKind: p.ScheduleKind,
		Date:         p.Date,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		Days:         p.Days,
		TimerMinutes: p.TimerMinutes,
	}
}

// ListPersonalTasks 返回当前用户的个人任务
func (a *API) ListPersonalTasks(c *gin.Context) {
	tasks, err := a.tasks.ListPersonalTasks(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取任务列表失败")
		return
	}

	items := make([]gin.H, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, serializePersonalTask(task))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": items})
}

// CreatePersonalTask 创建个人任务
func (a *API) CreatePersonalTask(c *gin.Context) {
	var payload taskPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	task, err := a.tasks.CreatePersonalTask(currentUserID(c), payload.toInput())
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": serializePersonalTask(*task)})
}

// UpdatePersonalTask 更新个人任务
func (a *API) UpdatePersonalTask(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	var payload taskPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	task, err := a.tasks.UpdatePersonalTask(currentUserID(c), id, payload.toInput())
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": serializePersonalTask(*task)})
}

// DeletePersonalTask 删除个人任务
func (a *API) DeletePersonalTask(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	if err := a.tasks.DeletePersonalTask(currentUserID(c), id); err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListGroupTasks 返回群组内全部任务
func (a *API) ListGroupTasks(c *gin.Context) {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的群组ID")
		return
	}

	tasks, err := a.tasks.ListGroupTasks(currentUserID(c), groupID)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	items := make([]gin.H, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, serializeGroupTask(task))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": items})
}

// CreateGroupTask 由管理员创建群组任务
func (a *API) CreateGroupTask(c *gin.Context) {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的群组ID")
		return
	}

	var payload taskPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	task, err := a.tasks.CreateGroupTask(currentUserID(c), groupID, payload.toInput())
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": serializeGroupTask(*task)})
}

// UpdateGroupTask 由管理员更新群组任务
func (a *API) UpdateGroupTask(c *gin.Context) {
	id, err := parseUintParam(c, "taskId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	var payload taskPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	task, err := a.tasks.UpdateGroupTask(currentUserID(c), id, payload.toInput())
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": serializeGroupTask(*task)})
}

// DeleteGroupTask 由管理员删除群组任务
func (a *API) DeleteGroupTask(c *gin.Context) {
	id, err := parseUintParam(c, "taskId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	if err := a.tasks.DeleteGroupTask(currentUserID(c), id); err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// SubscribeGroupTask 保存成员对群组任务的星期订阅
func (a *API) SubscribeGroupTask(c *gin.Context) {
	taskID, err := parseUintParam(c, "taskId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	var payload struct {
		Days []string `json:"days"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	sub, err := a.tasks.Subscribe(currentUserID(c), taskID, payload.Days)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	if sub == nil {
		c.JSON(http.StatusOK, gin.H{"subscribed": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subscribed": true,
		"task_id":    sub.GroupTaskID,
		"days":       payload.Days,
	})
}

func serializeSchedule(fields db.ScheduleFields) gin.H {
	item := gin.H{"kind": fields.ScheduleKind}
	if fields.ScheduleDate != nil {
		item["date"] = fields.ScheduleDate.Format(schedule.DateFormat)
	}
	if fields.StartDate != nil {
		item["start_date"] = fields.StartDate.Format(schedule.DateFormat)
	}
	if fields.EndDate != nil {
		item["end_date"] = fields.EndDate.Format(schedule.DateFormat)
	}
	if fields.ScheduleDays != "" {
		days := schedule.SplitDays(fields.ScheduleDays)
		names := make([]string, 0, len(days))
		for _, day := range days {
			names = append(names, day.String())
		}
		item["days"] = names
	}
	return item
}

func serializeGroupTask(task db.GroupTask) gin.H {
	return gin.H{
		"id":            task.ID,
		"group_id":      task.GroupID,
		"title":         task.Title,
		"description":   task.Description,
		"coins":         task.Coins,
		"schedule":      serializeSchedule(task.ScheduleFields),
		"timer_minutes": task.TimerMinutes,
	}
}

func serializePersonalTask(task db.PersonalTask) gin.H {
	return gin.H{
		"id":            task.ID,
		"title":         task.Title,
		"description":   task.Description,
		"visibility":    task.Visibility,
		"schedule":      serializeSchedule(task.ScheduleFields),
		"timer_minutes": task.TimerMinutes,
	}
}

func handleTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		respondError(c, http.StatusNotFound, "任务不存在")
	case errors.Is(err, service.ErrNotTaskOwner):
		respondError(c, http.StatusForbidden, "无权操作该任务")
	case errors.Is(err, service.ErrNotMember):
		respondError(c, http.StatusForbidden, "不是群组成员")
	case errors.Is(err, service.ErrNotGroupAdmin):
		respondError(c, http.StatusForbidden, "需要群组管理员权限")
	case errors.Is(err, service.ErrGroupNotFound):
		respondError(c, http.StatusNotFound, "群组不存在")
	case errors.Is(err, schedule.ErrInvalidSchedule):
		respondError(c, http.StatusBadRequest, "日程配置无效")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
