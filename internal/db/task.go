package db

import (
	"time"

	"github.com/maqsadm/internal/schedule"
	"gorm.io/gorm"
)

// ScheduleFields 以列的形式嵌入任务表，对应 schedule.Schedule 的标签联合。
// 只有与 ScheduleKind 匹配的列才有意义，转换与校验在 schedule 包完成。
type ScheduleFields struct {
	ScheduleKind string     `gorm:"not null"`
	ScheduleDate *time.Time // one_time
	StartDate    *time.Time // date_range
	EndDate      *time.Time // date_range
	ScheduleDays string     // recurring，逗号分隔的英文星期名
}

// Schedule 还原为领域层的标签联合。
func (f ScheduleFields) Schedule() schedule.Schedule {
	return schedule.Schedule{
		Kind:      schedule.Kind(f.ScheduleKind),
		Date:      f.ScheduleDate,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Days:      schedule.SplitDays(f.ScheduleDays),
	}
}

// NewScheduleFields 将领域日程打平成列。
func NewScheduleFields(s schedule.Schedule) ScheduleFields {
	return ScheduleFields{
		ScheduleKind: string(s.Kind),
		ScheduleDate: s.Date,
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		ScheduleDays: schedule.FormatDays(s.Days),
	}
}

// GroupTask 定义了群组任务模型
// Coins 为完成一次可得的金币数，仅管理员可编辑。
// TimerMinutes 为可选的番茄钟时长，0 表示未启用。
type GroupTask struct {
	gorm.Model
	GroupID     uint   `gorm:"index"`
	Title       string `gorm:"not null"`
	Description string
	Coins       int `gorm:"not null;default:1"`
	ScheduleFields
	TimerMinutes int
}

// PersonalTask 定义了个人任务模型
// 奖励固定为 1 银币，Visibility 仅使用 public/private。
type PersonalTask struct {
	gorm.Model
	UserID      uint   `gorm:"index"`
	Title       string `gorm:"not null"`
	Description string
	Visibility  string `gorm:"not null;default:private"`
	ScheduleFields
	TimerMinutes int
}

const (
	// VisibilityPublic 公开个人任务，他人可在主页看到
	VisibilityPublic = "public"
	// VisibilityPrivate 私密个人任务
	VisibilityPrivate = "private"
)
