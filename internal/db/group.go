package db

import "gorm.io/gorm"

// Group 定义了群组模型
// InviteCode 由服务层生成（uuid），用于邀请加入。
// MeetingDay/MeetingTime 描述每周例会（英文星期名 + HH:MM）。
type Group struct {
	gorm.Model
	Name        string `gorm:"not null"`
	Description string
	OwnerID     uint   `gorm:"index"`
	InviteCode  string `gorm:"uniqueIndex;not null"`
	MeetingDay  string
	MeetingTime string
}

// GroupMember 记录群组成员关系，Role 仅使用 member/admin。
type GroupMember struct {
	gorm.Model
	GroupID uint   `gorm:"index;index:idx_group_member_unique,unique"`
	UserID  uint   `gorm:"index;index:idx_group_member_unique,unique"`
	Role    string `gorm:"not null;default:member"`
}

const (
	// RoleMember 普通成员
	RoleMember = "member"
	// RoleAdmin 管理员，可编辑群组任务与例会设置
	RoleAdmin = "admin"
)
