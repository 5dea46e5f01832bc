package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/schedule"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrJournalNotFound 在指定日记不存在时返回
var ErrJournalNotFound = errors.New("journal entry not found")

// JournalService 负责每日日记
// 一人一天一篇；当天首次写入奖励 1 银币，之后只更新内容不再记账。
type JournalService struct {
	db *gorm.DB
}

// JournalUpsertResult 标记本次写入是否为当天首篇。
type JournalUpsertResult struct {
	Entry   *db.JournalEntry
	Created bool
}

// NewJournalService 构造 JournalService
func NewJournalService(gdb *gorm.DB) *JournalService {
	return &JournalService{db: gdb}
}

// Upsert 写入或更新某天的日记。
// 与任务完成同样采用条件插入：银币只在记录真正新建时入账一次。
func (s *JournalService) Upsert(userID uint, date time.Time, body string) (*JournalUpsertResult, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("journal body is required")
	}

	rendered, err := renderMarkdown(body)
	if err != nil {
		return nil, err
	}

	entry := db.JournalEntry{
		UserID:    userID,
		EntryDate: schedule.DayKey(date),
		Body:      body,
		HTML:      rendered,
	}

	created := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "entry_date"}},
			DoNothing: true,
		}).Create(&entry)
		if result.Error != nil {
			return fmt.Errorf("insert journal entry: %w", result.Error)
		}

		if result.RowsAffected > 0 {
			created = true
			if err := tx.Model(&db.User{}).Where("id = ?", userID).
				Update("silver_coins", gorm.Expr("silver_coins + ?", 1)).Error; err != nil {
				return fmt.Errorf("award journal silver: %w", err)
			}
			return nil
		}

		// 当天已有日记：仅更新内容
		if err := tx.Model(&db.JournalEntry{}).
			Where("user_id = ? AND entry_date = ?", userID, entry.EntryDate).
			Updates(map[string]any{"body": body, "html": rendered}).Error; err != nil {
			return fmt.Errorf("update journal entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var saved db.JournalEntry
	if err := s.db.Where("user_id = ? AND entry_date = ?", userID, entry.EntryDate).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("reload journal entry: %w", err)
	}

	return &JournalUpsertResult{Entry: &saved, Created: created}, nil
}

// Get 返回某天的日记。
func (s *JournalService) Get(userID uint, date time.Time) (*db.JournalEntry, error) {
	var entry db.JournalEntry
	if err := s.db.Where("user_id = ? AND entry_date = ?", userID, schedule.DayKey(date)).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJournalNotFound
		}
		return nil, fmt.Errorf("get journal entry: %w", err)
	}
	return &entry, nil
}

// ListBetween 返回闭区间内的日记，按日期升序。
func (s *JournalService) ListBetween(userID uint, start, end time.Time) ([]db.JournalEntry, error) {
	var entries []db.JournalEntry
	if err := s.db.Where("user_id = ? AND entry_date BETWEEN ? AND ?",
		userID, schedule.DayKey(start), schedule.DayKey(end)).
		Order("entry_date ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return entries, nil
}
