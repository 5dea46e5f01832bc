package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/schedule"
	"gorm.io/gorm"
)

var (
	// ErrTaskNotFound 在指定任务不存在时返回
	ErrTaskNotFound = errors.New("task not found")
	// ErrNotTaskOwner 在操作他人个人任务时返回
	ErrNotTaskOwner = errors.New("not the task owner")
)

// TaskService 负责群组任务与个人任务的增删改查
// 群组任务的写操作要求管理员身份，个人任务只允许所有者操作。
type TaskService struct {
	db     *gorm.DB
	groups *GroupService
}

// TaskInput 定义创建/更新任务时可配置字段，日程以原始字符串传入。
type TaskInput struct {
	Title        string
	Description  string
	Coins        int      // 仅群组任务使用
	Visibility   string   // 仅个人任务使用
	ScheduleKind string   // one_time / date_range / recurring
	Date         string   // yyyy-MM-dd
	StartDate    string   // yyyy-MM-dd
	EndDate      string   // yyyy-MM-dd
	Days         []string // 英文星期名
	TimerMinutes int
}

// NewTaskService 构造 TaskService
func NewTaskService(gdb *gorm.DB, groups *GroupService) *TaskService {
	return &TaskService{db: gdb, groups: groups}
}

// buildSchedule 解析并校验输入中的日程部分。
func buildSchedule(input TaskInput) (schedule.Schedule, error) {
	kind, err := schedule.ParseKind(input.ScheduleKind)
	if err != nil {
		return schedule.Schedule{}, err
	}

	s := schedule.Schedule{Kind: kind}

	if raw := strings.TrimSpace(input.Date); raw != "" {
		t, err := parseDay(raw)
		if err != nil {
			return schedule.Schedule{}, err
		}
		s.Date = t
	}
	if raw := strings.TrimSpace(input.StartDate); raw != "" {
		t, err := parseDay(raw)
		if err != nil {
			return schedule.Schedule{}, err
		}
		s.StartDate = t
	}
	if raw := strings.TrimSpace(input.EndDate); raw != "" {
		t, err := parseDay(raw)
		if err != nil {
			return schedule.Schedule{}, err
		}
		s.EndDate = t
	}

	days, err := schedule.ParseDays(input.Days)
	if err != nil {
		return schedule.Schedule{}, err
	}
	s.Days = days

	if err := s.Validate(); err != nil {
		return schedule.Schedule{}, err
	}
	return s, nil
}

// CreateGroupTask 由管理员在群组中创建任务
func (s *TaskService) CreateGroupTask(actorID, groupID uint, input TaskInput) (*db.GroupTask, error) {
	if err := s.groups.RequireAdmin(actorID, groupID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	sched, err := buildSchedule(input)
	if err != nil {
		return nil, err
	}

	coins := input.Coins
	if coins <= 0 {
		coins = 1
	}

	task := db.GroupTask{
		GroupID:        groupID,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Coins:          coins,
		ScheduleFields: db.NewScheduleFields(sched),
		TimerMinutes:   input.TimerMinutes,
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("create group task: %w", err)
	}
	return &task, nil
}

// UpdateGroupTask 由管理员更新群组任务
func (s *TaskService) UpdateGroupTask(actorID, taskID uint, input TaskInput) (*db.GroupTask, error) {
	task, err := s.GetGroupTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.groups.RequireAdmin(actorID, task.GroupID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	sched, err := buildSchedule(input)
	if err != nil {
		return nil, err
	}

	task.Title = title
	task.Description = strings.TrimSpace(input.Description)
	if input.Coins > 0 {
		task.Coins = input.Coins
	}
	task.ScheduleFields = db.NewScheduleFields(sched)
	task.TimerMinutes = input.TimerMinutes

	if err := s.db.Save(task).Error; err != nil {
		return nil, fmt.Errorf("update group task: %w", err)
	}
	return task, nil
}

// DeleteGroupTask 由管理员删除群组任务，同时清理成员订阅。
func (s *TaskService) DeleteGroupTask(actorID, taskID uint) error {
	task, err := s.GetGroupTask(taskID)
	if err != nil {
		return err
	}
	if err := s.groups.RequireAdmin(actorID, task.GroupID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&db.GroupTask{}, taskID).Error; err != nil {
			return fmt.Errorf("delete group task: %w", err)
		}
		if err := tx.Unscoped().Where("group_task_id = ?", taskID).Delete(&db.UserTaskSchedule{}).Error; err != nil {
			return fmt.Errorf("delete task subscriptions: %w", err)
		}
		return nil
	})
}

// GetGroupTask 根据 ID 获取群组任务
func (s *TaskService) GetGroupTask(id uint) (*db.GroupTask, error) {
	var task db.GroupTask
	if err := s.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get group task: %w", err)
	}
	return &task, nil
}

// ListGroupTasks 返回群组内全部任务，要求访问者是成员。
func (s *TaskService) ListGroupTasks(actorID, groupID uint) ([]db.GroupTask, error) {
	if err := s.groups.RequireMember(actorID, groupID); err != nil {
		return nil, err
	}

	var tasks []db.GroupTask
	if err := s.db.Where("group_id = ?", groupID).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list group tasks: %w", err)
	}
	return tasks, nil
}

// CreatePersonalTask 创建个人任务
func (s *TaskService) CreatePersonalTask(userID uint, input TaskInput) (*db.PersonalTask, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	sched, err := buildSchedule(input)
	if err != nil {
		return nil, err
	}

	task := db.PersonalTask{
		UserID:         userID,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Visibility:     normalizeVisibility(input.Visibility),
		ScheduleFields: db.NewScheduleFields(sched),
		TimerMinutes:   input.TimerMinutes,
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("create personal task: %w", err)
	}
	return &task, nil
}

// UpdatePersonalTask 更新个人任务，仅所有者可操作。
func (s *TaskService) UpdatePersonalTask(userID, taskID uint, input TaskInput) (*db.PersonalTask, error) {
	task, err := s.GetPersonalTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, ErrNotTaskOwner
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	sched, err := buildSchedule(input)
	if err != nil {
		return nil, err
	}

	task.Title = title
	task.Description = strings.TrimSpace(input.Description)
	task.Visibility = normalizeVisibility(input.Visibility)
	task.ScheduleFields = db.NewScheduleFields(sched)
	task.TimerMinutes = input.TimerMinutes

	if err := s.db.Save(task).Error; err != nil {
		return nil, fmt.Errorf("update personal task: %w", err)
	}
	return task, nil
}

// DeletePersonalTask 删除个人任务，仅所有者可操作。
func (s *TaskService) DeletePersonalTask(userID, taskID uint) error {
	task, err := s.GetPersonalTask(taskID)
	if err != nil {
		return err
	}
	if task.UserID != userID {
		return ErrNotTaskOwner
	}

	if err := s.db.Delete(&db.PersonalTask{}, taskID).Error; err != nil {
		return fmt.Errorf("delete personal task: %w", err)
	}
	return nil
}

// GetPersonalTask 根据 ID 获取个人任务
func (s *TaskService) GetPersonalTask(id uint) (*db.PersonalTask, error) {
	var task db.PersonalTask
	if err := s.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get personal task: %w", err)
	}
	return &task, nil
}

// ListPersonalTasks 返回用户的全部个人任务
func (s *TaskService) ListPersonalTasks(userID uint) ([]db.PersonalTask, error) {
	var tasks []db.PersonalTask
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list personal tasks: %w", err)
	}
	return tasks, nil
}

// Subscribe 保存成员对群组任务的星期订阅；days 为空表示取消订阅。
func (s *TaskService) Subscribe(userID, taskID uint, dayNames []string) (*db.UserTaskSchedule, error) {
	task, err := s.GetGroupTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.groups.RequireMember(userID, task.GroupID); err != nil {
		return nil, err
	}

	days, err := schedule.ParseDays(dayNames)
	if err != nil {
		return nil, err
	}

	if len(days) == 0 {
		// 物理删除，避免唯一索引挡住之后的重新订阅
		if err := s.db.Unscoped().Where("user_id = ? AND group_task_id = ?", userID, taskID).
			Delete(&db.UserTaskSchedule{}).Error; err != nil {
			return nil, fmt.Errorf("delete subscription: %w", err)
		}
		return nil, nil
	}

	var sub db.UserTaskSchedule
	err = s.db.Where("user_id = ? AND group_task_id = ?", userID, taskID).First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = db.UserTaskSchedule{UserID: userID, GroupTaskID: taskID, Days: schedule.FormatDays(days)}
		if err := s.db.Create(&sub).Error; err != nil {
			return nil, fmt.Errorf("create subscription: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find subscription: %w", err)
	default:
		sub.Days = schedule.FormatDays(days)
		if err := s.db.Save(&sub).Error; err != nil {
			return nil, fmt.Errorf("update subscription: %w", err)
		}
	}

	return &sub, nil
}

func normalizeVisibility(v string) string {
	if strings.TrimSpace(strings.ToLower(v)) == db.VisibilityPublic {
		return db.VisibilityPublic
	}
	return db.VisibilityPrivate
}
