package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/schedule"
	"gorm.io/gorm"
)

// ErrUserNotFound 在指定用户不存在时返回
var ErrUserNotFound = errors.New("user not found")

// AggregatorService 把个人任务与（按订阅收窄后的）群组任务
// 汇总成一份统一视图，供仪表盘与习惯表格渲染。
// 纯读侧投影，每次请求重新计算，不维护缓存状态。
type AggregatorService struct {
	db          *gorm.DB
	completions *CompletionService
}

// UserTask 是汇总视图中的一个条目。
// Schedule 已经应用了成员订阅的收窄，是"生效日程"而非任务原始日程。
type UserTask struct {
	Ref            schedule.TaskRef
	Title          string
	Description    string
	GroupID        uint   // 仅群组任务
	GroupName      string // 仅群组任务
	Coins          int    // 群组任务为任务自身奖励，个人任务固定 1 银币
	TimerMinutes   int
	Schedule       schedule.Schedule
	CompletedToday bool
}

// TodayView 仪表盘"今天"视图：到期未完成与已完成分列。
type TodayView struct {
	Date      string
	Active    []UserTask
	Completed []UserTask
}

// WeekCell 习惯表格中的单元格
type WeekCell struct {
	Date   string
	Status schedule.Status
}

// WeekRow 习惯表格中的一行（一个任务七天）
type WeekRow struct {
	Task  UserTask
	Cells []WeekCell
}

// WeekGrid 一周习惯表格
type WeekGrid struct {
	Start string
	End   string
	Rows  []WeekRow
}

// NewAggregatorService 构造 AggregatorService
func NewAggregatorService(gdb *gorm.DB, completions *CompletionService) *AggregatorService {
	return &AggregatorService{db: gdb, completions: completions}
}

// ScheduledTasksForUser 汇总用户的全部任务并附加元信息。
// 引用到的群组或任务若已被并发删除则整条跳过，宁可部分结果也不失败。
func (s *AggregatorService) ScheduledTasksForUser(userID uint, today time.Time) ([]UserTask, error) {
	var user db.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	var memberships []db.GroupMember
	if err := s.db.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}

	groupIDs := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		groupIDs = append(groupIDs, m.GroupID)
	}

	groupNames := make(map[uint]string, len(groupIDs))
	var groupTasks []db.GroupTask
	if len(groupIDs) > 0 {
		var groups []db.Group
		if err := s.db.Where("id IN ?", groupIDs).Find(&groups).Error; err != nil {
			return nil, fmt.Errorf("load groups: %w", err)
		}
		for _, g := range groups {
			groupNames[g.ID] = g.Name
		}

		if err := s.db.Where("group_id IN ?", groupIDs).Order("created_at ASC").Find(&groupTasks).Error; err != nil {
			return nil, fmt.Errorf("load group tasks: %w", err)
		}
	}

	var subs []db.UserTaskSchedule
	if err := s.db.Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	subscribedDays := make(map[uint][]time.Weekday, len(subs))
	for _, sub := range subs {
		subscribedDays[sub.GroupTaskID] = schedule.SplitDays(sub.Days)
	}

	todayHistory, err := s.completions.HistoryOn(userID, today)
	if err != nil {
		return nil, err
	}

	tasks := make([]UserTask, 0, len(groupTasks))
	for _, task := range groupTasks {
		groupName, ok := groupNames[task.GroupID]
		if !ok {
			// 群组被并发删除：跳过该任务
			continue
		}

		ref := schedule.TaskRef{Kind: schedule.TaskKindGroup, ID: task.ID}
		effective := task.Schedule().WithDays(subscribedDays[task.ID])

		tasks = append(tasks, UserTask{
			Ref:            ref,
			Title:          task.Title,
			Description:    task.Description,
			GroupID:        task.GroupID,
			GroupName:      groupName,
			Coins:          task.Coins,
			TimerMinutes:   task.TimerMinutes,
			Schedule:       effective,
			CompletedToday: schedule.CompletedOn(todayHistory, ref, today),
		})
	}

	var personalTasks []db.PersonalTask
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&personalTasks).Error; err != nil {
		return nil, fmt.Errorf("load personal tasks: %w", err)
	}
	for _, task := range personalTasks {
		ref := schedule.TaskRef{Kind: schedule.TaskKindPersonal, ID: task.ID}
		tasks = append(tasks, UserTask{
			Ref:            ref,
			Title:          task.Title,
			Description:    task.Description,
			Coins:          1,
			TimerMinutes:   task.TimerMinutes,
			Schedule:       task.Schedule(),
			CompletedToday: schedule.CompletedOn(todayHistory, ref, today),
		})
	}

	return tasks, nil
}

// Today 返回仪表盘"今天"视图。
func (s *AggregatorService) Today(userID uint, today time.Time) (*TodayView, error) {
	tasks, err := s.ScheduledTasksForUser(userID, today)
	if err != nil {
		return nil, err
	}

	view := &TodayView{
		Date:      schedule.DayKey(today),
		Active:    []UserTask{},
		Completed: []UserTask{},
	}
	for _, task := range tasks {
		if !task.Schedule.ActiveOn(today) {
			continue
		}
		if task.CompletedToday {
			view.Completed = append(view.Completed, task)
		} else {
			view.Active = append(view.Active, task)
		}
	}
	return view, nil
}

// Week 返回从 weekStart 起连续七天的习惯表格。
func (s *AggregatorService) Week(userID uint, weekStart, today time.Time) (*WeekGrid, error) {
	tasks, err := s.ScheduledTasksForUser(userID, today)
	if err != nil {
		return nil, err
	}

	weekEnd := weekStart.AddDate(0, 0, 6)
	history, err := s.completions.HistoryBetween(userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	grid := &WeekGrid{
		Start: schedule.DayKey(weekStart),
		End:   schedule.DayKey(weekEnd),
	}
	for _, task := range tasks {
		row := WeekRow{Task: task, Cells: make([]WeekCell, 0, 7)}
		for i := 0; i < 7; i++ {
			day := weekStart.AddDate(0, 0, i)
			row.Cells = append(row.Cells, WeekCell{
				Date:   schedule.DayKey(day),
				Status: schedule.StatusOn(task.Schedule, history, task.Ref, day, today),
			})
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid, nil
}
