package db

import "gorm.io/gorm"

// TaskCompletion 记录一次任务完成
// CompletedOn 存 yyyy-MM-dd 字符串，日历日即记录粒度。
// (user_id, task_kind, task_id, completed_on) 采用唯一索引，
// 配合 ON CONFLICT DO NOTHING 保证同一天同一任务至多记账一次。
// 正常流程只追加，不提供更新/删除。
type TaskCompletion struct {
	gorm.Model
	UserID      uint   `gorm:"index;index:idx_completion_unique,unique"`
	TaskKind    string `gorm:"index:idx_completion_unique,unique"`
	TaskID      uint   `gorm:"index:idx_completion_unique,unique"`
	CompletedOn string `gorm:"index:idx_completion_unique,unique"`
	Source      string
}

// TableName 重写确保唯一索引作用到四元组
func (TaskCompletion) TableName() string {
	return "task_completions"
}

const (
	// CompletionSourceManual 手动点选完成
	CompletionSourceManual = "manual"
	// CompletionSourcePomodoro 番茄钟倒计时结束自动完成
	CompletionSourcePomodoro = "pomodoro"
)

// UserTaskSchedule 是成员对群组任务的个人订阅：
// 将任务自身的重复日收窄为自己承诺的星期几。
// 仅对 recurring 类型的群组任务有意义，其它类型视为订阅全部。
type UserTaskSchedule struct {
	gorm.Model
	UserID      uint   `gorm:"index;index:idx_user_task_schedule_unique,unique"`
	GroupTaskID uint   `gorm:"index;index:idx_user_task_schedule_unique,unique"`
	Days        string `gorm:"not null"` // 逗号分隔的英文星期名
}
