package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateFormat 是全系统统一的日历日格式。
const DateFormat = "2006-01-02"

// Kind 标记日程的三种形态
type Kind string

const (
	// KindOneTime 仅在指定日期生效
	KindOneTime Kind = "one_time"
	// KindDateRange 在闭区间 [StartDate, EndDate] 内每天生效
	KindDateRange Kind = "date_range"
	// KindRecurring 在指定星期几重复生效
	KindRecurring Kind = "recurring"
)

// ErrInvalidSchedule 在日程字段与类型标记不一致时返回
var ErrInvalidSchedule = errors.New("invalid schedule")

// Schedule 描述任务何时到期，按 Kind 区分有效字段。
// 日期比较一律按日历日进行，忽略具体时刻与时区瞬时值。
type Schedule struct {
	Kind      Kind
	Date      *time.Time
	StartDate *time.Time
	EndDate   *time.Time
	Days      []time.Weekday
}

// ActiveOn 判断日程在给定日期是否到期。
// 缺失或畸形的日程返回 false（静默降级，任务不再出现在到期列表）。
func (s Schedule) ActiveOn(date time.Time) bool {
	switch s.Kind {
	case KindOneTime:
		return s.Date != nil && SameDay(*s.Date, date)
	case KindDateRange:
		if s.StartDate == nil || s.EndDate == nil {
			return false
		}
		key := DayKey(date)
		return DayKey(*s.StartDate) <= key && key <= DayKey(*s.EndDate)
	case KindRecurring:
		weekday := date.Weekday()
		for _, day := range s.Days {
			if day == weekday {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Validate 确认字段组合与 Kind 一致，创建/更新任务前调用。
func (s Schedule) Validate() error {
	switch s.Kind {
	case KindOneTime:
		if s.Date == nil {
			return fmt.Errorf("%w: one_time requires a date", ErrInvalidSchedule)
		}
	case KindDateRange:
		if s.StartDate == nil || s.EndDate == nil {
			return fmt.Errorf("%w: date_range requires both bounds", ErrInvalidSchedule)
		}
		if DayKey(*s.EndDate) < DayKey(*s.StartDate) {
			return fmt.Errorf("%w: end date before start date", ErrInvalidSchedule)
		}
	case KindRecurring:
		if len(s.Days) == 0 {
			return fmt.Errorf("%w: recurring requires at least one weekday", ErrInvalidSchedule)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSchedule, s.Kind)
	}
	return nil
}

// WithDays 返回将星期集合替换为 days 的副本，用于成员订阅收窄群组任务。
// 仅对 Recurring 日程有意义，其它类型原样返回。
func (s Schedule) WithDays(days []time.Weekday) Schedule {
	if s.Kind != KindRecurring || len(days) == 0 {
		return s
	}
	narrowed := s
	narrowed.Days = days
	return narrowed
}

// SameDay 按日历日比较两个时间点，跨时区/夏令时安全。
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayKey 返回可按字典序比较的日历日字符串。
func DayKey(t time.Time) string {
	return t.Format(DateFormat)
}

// Truncate 将时间归一化到当天零点，入库前使用。
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseKind 解析日程类型标记。
func ParseKind(input string) (Kind, error) {
	k := Kind(strings.TrimSpace(strings.ToLower(input)))
	switch k {
	case KindOneTime, KindDateRange, KindRecurring:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidSchedule, input)
	}
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseDay 按英文星期名解析单个工作日。
func ParseDay(input string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.TrimSpace(strings.ToLower(input))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, input)
	}
	return day, nil
}

// ParseDays 解析星期名列表，去重并保持首次出现顺序。
func ParseDays(inputs []string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]struct{}, len(inputs))
	days := make([]time.Weekday, 0, len(inputs))
	for _, raw := range inputs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		day, err := ParseDay(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	return days, nil
}

// FormatDays 序列化为逗号分隔的星期名，供 CSV 列存储。
func FormatDays(days []time.Weekday) string {
	names := make([]string, 0, len(days))
	for _, day := range days {
		names = append(names, day.String())
	}
	return strings.Join(names, ",")
}

// SplitDays 反序列化 FormatDays 的输出，未知片段跳过。
func SplitDays(csv string) []time.Weekday {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		day, err := ParseDay(part)
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	return days
}
