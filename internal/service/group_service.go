package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/schedule"
	"gorm.io/gorm"
)

var (
	// ErrGroupNotFound 在指定群组不存在时返回
	ErrGroupNotFound = errors.New("group not found")
	// ErrInviteNotFound 在邀请码无效时返回
	ErrInviteNotFound = errors.New("invite code not found")
	// ErrAlreadyMember 在重复加入群组时返回
	ErrAlreadyMember = errors.New("already a group member")
	// ErrNotMember 在访问者不是群组成员时返回
	ErrNotMember = errors.New("not a group member")
	// ErrNotGroupAdmin 在需要管理员权限的操作上返回
	ErrNotGroupAdmin = errors.New("not a group admin")
	// ErrOwnerCannotLeave 群主必须先移交或解散群组
	ErrOwnerCannotLeave = errors.New("group owner cannot leave")
	// ErrInvalidMeeting 在例会配置不合法时返回
	ErrInvalidMeeting = errors.New("invalid meeting configuration")
)

// GroupService 负责群组与成员关系的增删改查
type GroupService struct {
	db *gorm.DB
}

// GroupInput 定义创建/更新群组时可配置字段
type GroupInput struct {
	Name        string
	Description string
}

// MeetingInput 定义每周例会设置
type MeetingInput struct {
	Day  string // 英文星期名
	Time string // HH:MM
}

// GroupMemberView 成员列表条目
type GroupMemberView struct {
	UserID      uint
	Username    string
	DisplayName string
	Role        string
}

// NewGroupService 构造 GroupService
func NewGroupService(gdb *gorm.DB) *GroupService {
	return &GroupService{db: gdb}
}

// Create 新建群组，创建者自动成为管理员成员，邀请码随机生成。
func (s *GroupService) Create(ownerID uint, input GroupInput) (*db.Group, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}

	group := db.Group{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		OwnerID:     ownerID,
		InviteCode:  uuid.New().String(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		member := db.GroupMember{GroupID: group.ID, UserID: ownerID, Role: db.RoleAdmin}
		if err := tx.Create(&member).Error; err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &group, nil
}

// Get 根据 ID 获取群组
func (s *GroupService) Get(id uint) (*db.Group, error) {
	var group db.Group
	if err := s.db.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &group, nil
}

// ListForUser 返回用户所属的全部群组
func (s *GroupService) ListForUser(userID uint) ([]db.Group, error) {
	var groups []db.Group
	if err := s.db.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ? AND group_members.deleted_at IS NULL", userID).
		Order("groups.created_at ASC").
		Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// JoinByInvite 通过邀请码加入群组
func (s *GroupService) JoinByInvite(userID uint, code string) (*db.Group, error) {
	var group db.Group
	if err := s.db.Where("invite_code = ?", strings.TrimSpace(code)).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("find group by invite: %w", err)
	}

	var existing db.GroupMember
	err := s.db.Where("group_id = ? AND user_id = ?", group.ID, userID).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyMember
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check membership: %w", err)
	}

	member := db.GroupMember{GroupID: group.ID, UserID: userID, Role: db.RoleMember}
	if err := s.db.Create(&member).Error; err != nil {
		return nil, fmt.Errorf("join group: %w", err)
	}

	return &group, nil
}

// Leave 退出群组；群主不可退出。
func (s *GroupService) Leave(userID, groupID uint) error {
	group, err := s.Get(groupID)
	if err != nil {
		return err
	}
	if group.OwnerID == userID {
		return ErrOwnerCannotLeave
	}

	// 物理删除：软删除的残留行会被唯一索引挡住重新加入
	result := s.db.Unscoped().Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&db.GroupMember{})
	if result.Error != nil {
		return fmt.Errorf("leave group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}

// Members 返回群组成员列表
func (s *GroupService) Members(groupID uint) ([]GroupMemberView, error) {
	var views []GroupMemberView
	if err := s.db.Model(&db.GroupMember{}).
		Select("group_members.user_id AS user_id, users.username AS username, users.display_name AS display_name, group_members.role AS role").
		Joins("JOIN users ON users.id = group_members.user_id").
		Where("group_members.group_id = ?", groupID).
		Order("group_members.created_at ASC").
		Find(&views).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return views, nil
}

// UpdateMeeting 由管理员设置每周例会的星期与时间。
func (s *GroupService) UpdateMeeting(actorID, groupID uint, input MeetingInput) (*db.Group, error) {
	if err := s.RequireAdmin(actorID, groupID); err != nil {
		return nil, err
	}

	day, err := schedule.ParseDay(input.Day)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMeeting, input.Day)
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(input.Time)); err != nil {
		return nil, fmt.Errorf("%w: time must be HH:MM", ErrInvalidMeeting)
	}

	group, err := s.Get(groupID)
	if err != nil {
		return nil, err
	}

	group.MeetingDay = day.String()
	group.MeetingTime = strings.TrimSpace(input.Time)
	if err := s.db.Save(group).Error; err != nil {
		return nil, fmt.Errorf("update meeting: %w", err)
	}
	return group, nil
}

// RequireMember 确认用户是群组成员
func (s *GroupService) RequireMember(userID, groupID uint) error {
	var member db.GroupMember
	if err := s.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

// RequireAdmin 确认用户是群组管理员
func (s *GroupService) RequireAdmin(userID, groupID uint) error {
	var member db.GroupMember
	if err := s.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	if member.Role != db.RoleAdmin {
		return ErrNotGroupAdmin
	}
	return nil
}
