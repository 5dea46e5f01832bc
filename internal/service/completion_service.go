package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/schedule"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrAlreadyCompleted 当天该任务已有完成记录时返回
	ErrAlreadyCompleted = errors.New("task already completed on this day")
	// ErrUnknownTaskKind 在任务类型标记非法时返回
	ErrUnknownTaskKind = errors.New("unknown task kind")
)

// CompletionService 负责完成记录与货币结算
// 写路径采用 (user, kind, task, day) 唯一索引 + ON CONFLICT DO NOTHING：
// 并发的重复完成只有一个会插入并记账，其余返回 ErrAlreadyCompleted。
type CompletionService struct {
	db     *gorm.DB
	tasks  *TaskService
	groups *GroupService
}

// CompletionResult 汇总一次完成的结算信息
type CompletionResult struct {
	Record      *db.TaskCompletion
	Coins       int // 本次入账金币
	SilverCoins int // 本次入账银币
}

// NewCompletionService 构造 CompletionService
func NewCompletionService(gdb *gorm.DB, tasks *TaskService, groups *GroupService) *CompletionService {
	return &CompletionService{db: gdb, tasks: tasks, groups: groups}
}

// Complete 为用户记录一次任务完成并入账奖励。
// date 归一化为日历日；source 标记完成来源（手动/番茄钟）。
func (s *CompletionService) Complete(userID uint, kind schedule.TaskKind, taskID uint, date time.Time, source string) (*CompletionResult, error) {
	var goldReward, silverReward int

	switch kind {
	case schedule.TaskKindGroup:
		task, err := s.tasks.GetGroupTask(taskID)
		if err != nil {
			return nil, err
		}
		if err := s.groups.RequireMember(userID, task.GroupID); err != nil {
			return nil, err
		}
		goldReward = task.Coins
	case schedule.TaskKindPersonal:
		task, err := s.tasks.GetPersonalTask(taskID)
		if err != nil {
			return nil, err
		}
		if task.UserID != userID {
			return nil, ErrNotTaskOwner
		}
		silverReward = 1
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskKind, kind)
	}

	if source == "" {
		source = db.CompletionSourceManual
	}

	record := db.TaskCompletion{
		UserID:      userID,
		TaskKind:    string(kind),
		TaskID:      taskID,
		CompletedOn: schedule.DayKey(date),
		Source:      source,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "task_kind"}, {Name: "task_id"}, {Name: "completed_on"},
			},
			DoNothing: true,
		}).Create(&record)
		if result.Error != nil {
			return fmt.Errorf("insert completion: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyCompleted
		}

		if goldReward > 0 {
			if err := tx.Model(&db.User{}).Where("id = ?", userID).
				Update("coins", gorm.Expr("coins + ?", goldReward)).Error; err != nil {
				return fmt.Errorf("award coins: %w", err)
			}
		}
		if silverReward > 0 {
			if err := tx.Model(&db.User{}).Where("id = ?", userID).
				Update("silver_coins", gorm.Expr("silver_coins + ?", silverReward)).Error; err != nil {
				return fmt.Errorf("award silver coins: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CompletionResult{Record: &record, Coins: goldReward, SilverCoins: silverReward}, nil
}

// HistoryBetween 返回用户在闭区间内的完成历史，已转换为领域记录。
func (s *CompletionService) HistoryBetween(userID uint, start, end time.Time) ([]schedule.Record, error) {
	var rows []db.TaskCompletion
	if err := s.db.Where("user_id = ? AND completed_on BETWEEN ? AND ?",
		userID, schedule.DayKey(start), schedule.DayKey(end)).
		Order("completed_on ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return toRecords(rows), nil
}

// HistoryOn 返回用户某一天的完成历史。
func (s *CompletionService) HistoryOn(userID uint, date time.Time) ([]schedule.Record, error) {
	var rows []db.TaskCompletion
	if err := s.db.Where("user_id = ? AND completed_on = ?", userID, schedule.DayKey(date)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return toRecords(rows), nil
}

func toRecords(rows []db.TaskCompletion) []schedule.Record {
	records := make([]schedule.Record, 0, len(rows))
	for _, row := range rows {
		day, err := time.ParseInLocation(schedule.DateFormat, row.CompletedOn, time.Local)
		if err != nil {
			// 畸形日期不应存在；跳过而不是中断读路径
			continue
		}
		records = append(records, schedule.Record{
			Task: schedule.TaskRef{Kind: schedule.TaskKind(row.TaskKind), ID: row.TaskID},
			Date: day,
		})
	}
	return records
}
