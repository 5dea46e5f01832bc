package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/schedule"
	"gorm.io/gorm"
)

// ReminderService 生成每日任务摘要与每周例会提醒的文本。
// 只负责计算内容；推送渠道不在本服务范围内，由调用方记录或转发。
type ReminderService struct {
	db         *gorm.DB
	aggregator *AggregatorService
}

// DailyDigest 单个用户的当日摘要
type DailyDigest struct {
	UserID   uint
	Username string
	Text     string
}

// MeetingReminder 单个群组的例会提醒
type MeetingReminder struct {
	GroupID uint
	Text    string
}

// NewReminderService 构造 ReminderService
func NewReminderService(gdb *gorm.DB, aggregator *AggregatorService) *ReminderService {
	return &ReminderService{db: gdb, aggregator: aggregator}
}

// DailyDigests 为全部用户生成当日到期任务摘要；无到期任务的用户跳过。
func (s *ReminderService) DailyDigests(today time.Time) ([]DailyDigest, error) {
	var users []db.User
	if err := s.db.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	digests := make([]DailyDigest, 0, len(users))
	for _, user := range users {
		view, err := s.aggregator.Today(user.ID, today)
		if err != nil {
			// 单个用户失败不中断整批摘要
			continue
		}
		if len(view.Active) == 0 {
			continue
		}

		var builder strings.Builder
		builder.WriteString(fmt.Sprintf("%s 今日待办 %d 项：", schedule.DayKey(today), len(view.Active)))
		for i, task := range view.Active {
			if i > 0 {
				builder.WriteString("；")
			}
			builder.WriteString(task.Title)
			if task.GroupName != "" {
				builder.WriteString(fmt.Sprintf("（%s）", task.GroupName))
			}
		}

		digests = append(digests, DailyDigest{
			UserID:   user.ID,
			Username: user.Username,
			Text:     builder.String(),
		})
	}

	return digests, nil
}

// MeetingReminders 返回例会日为 today 所在星期的群组提醒。
func (s *ReminderService) MeetingReminders(today time.Time) ([]MeetingReminder, error) {
	var groups []db.Group
	if err := s.db.Where("meeting_day = ?", today.Weekday().String()).
		Order("id ASC").
		Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list meeting groups: %w", err)
	}

	reminders := make([]MeetingReminder, 0, len(groups))
	for _, group := range groups {
		text := fmt.Sprintf("群组「%s」今天 %s 例会", group.Name, group.MeetingTime)
		if strings.TrimSpace(group.MeetingTime) == "" {
			text = fmt.Sprintf("群组「%s」今天有例会", group.Name)
		}
		reminders = append(reminders, MeetingReminder{GroupID: group.ID, Text: text})
	}

	return reminders, nil
}
