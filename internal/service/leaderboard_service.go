package service

import (
	"fmt"

	"github.com/maqsadm/internal/db"
	"gorm.io/gorm"
)

const defaultLeaderboardLimit = 20

// LeaderboardService 负责全站与群组排行榜
type LeaderboardService struct {
	db *gorm.DB
}

// LeaderboardEntry 排行榜条目，Total = 金币 + 银币。
type LeaderboardEntry struct {
	UserID      uint
	Username    string
	DisplayName string
	Coins       int
	SilverCoins int
	Total       int
}

// NewLeaderboardService 构造 LeaderboardService
func NewLeaderboardService(gdb *gorm.DB) *LeaderboardService {
	return &LeaderboardService{db: gdb}
}

// Global 返回全站排行榜，按合计货币降序。
func (s *LeaderboardService) Global(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	var entries []LeaderboardEntry
	if err := s.db.Model(&db.User{}).
		Select("users.id AS user_id, users.username AS username, users.display_name AS display_name, users.coins AS coins, users.silver_coins AS silver_coins, users.coins + users.silver_coins AS total").
		Order("total DESC, users.id ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("global leaderboard: %w", err)
	}
	return entries, nil
}

// Group 返回群组内部排行榜。
func (s *LeaderboardService) Group(groupID uint, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	var entries []LeaderboardEntry
	if err := s.db.Model(&db.User{}).
		Select("users.id AS user_id, users.username AS username, users.display_name AS display_name, users.coins AS coins, users.silver_coins AS silver_coins, users.coins + users.silver_coins AS total").
		Joins("JOIN group_members ON group_members.user_id = users.id").
		Where("group_members.group_id = ? AND group_members.deleted_at IS NULL", groupID).
		Order("total DESC, users.id ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("group leaderboard: %w", err)
	}
	return entries, nil
}
