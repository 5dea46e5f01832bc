package schedule

import "time"

// TaskKind 区分群组任务与个人任务
type TaskKind string

const (
	TaskKindGroup    TaskKind = "group"
	TaskKindPersonal TaskKind = "personal"
)

// TaskRef 唯一标识一个任务（类型 + ID），用于在完成历史中匹配。
type TaskRef struct {
	Kind TaskKind
	ID   uint
}

// Record 是完成历史中的一条记录：某任务在某日历日被完成。
type Record struct {
	Task TaskRef
	Date time.Time
}

// Status 表示习惯表格中单个格子的状态。
type Status string

const (
	// StatusDone 当天存在完成记录
	StatusDone Status = "done"
	// StatusMissed 当天到期、已成为过去且无记录——严格视为错过
	StatusMissed Status = "missed"
	// StatusPending 当天到期、为今天或未来且无记录
	StatusPending Status = "pending"
	// StatusFree 当天不到期
	StatusFree Status = "free"
)

// CompletedOn 扫描历史判断任务在指定日历日是否已完成。
func CompletedOn(history []Record, task TaskRef, date time.Time) bool {
	for _, record := range history {
		if record.Task == task && SameDay(record.Date, date) {
			return true
		}
	}
	return false
}

// StatusOn 推导任务在 date 这一天的格子状态。
// today 由调用方注入，保证纯函数可测。
func StatusOn(s Schedule, history []Record, task TaskRef, date, today time.Time) Status {
	if !s.ActiveOn(date) {
		return StatusFree
	}
	if CompletedOn(history, task, date) {
		return StatusDone
	}
	if DayKey(date) < DayKey(today) {
		return StatusMissed
	}
	return StatusPending
}
