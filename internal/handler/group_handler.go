package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/service"
)

// ListGroups 返回当前用户所属的群组
func (a *API) ListGroups(c *gin.Context) {
	groups, err := a.groups.ListForUser(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取群组列表失败")
		return
	}

	items := make([]gin.H, 0, len(groups))
	for _, group := range groups {
		items = append(items, serializeGroup(group, false))
	}
	c.JSON(http.StatusOK, gin.H{"groups": items})
}

// CreateGroup 创建群组
func (a *API) CreateGroup(c *gin.Context) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	group, err := a.groups.Create(currentUserID(c), service.GroupInput{
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		respondError(c, http.StatusBadRequest, "创建群组失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": serializeGroup(*group, true)})
}

// GetGroup 返回群组详情，成员可见邀请码。
func (a *API) GetGroup(c *gin.Context) {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的群组ID")
		return
	}

	userID := currentUserID(c)
	group, err := a.groups.Get(groupID)
	if err != nil {
		handleGroupError(c, err)
		return
	}

	isMember := a.groups.RequireMember(userID, groupID) == nil
	c.JSON(http.StatusOK, gin.H{"group": serializeGroup(*group, isMember)})
}

// JoinGroup 通过邀请码加入群组
func (a *API) JoinGroup(c *gin.Context) {
	var payload struct {
		InviteCode string `json:"invite_code"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	group, err := a.groups.JoinByInvite(currentUserID(c), payload.InviteCode)
	if err != nil {
		handleGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": serializeGroup(*group, true)})
}

// LeaveGroup 退出群组
func (a *API) LeaveGroup(c *gin.Context) {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的群组ID")
		return
	}

	if err := a.groups.Leave(currentUserID(c), groupID); err != nil {
		handleGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

// ListGroupMembers 返回群组成员
func (a *API) ListGroupMembers(c *gin.Context) {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的群组ID")
		return
	}

	if err := a.groups.RequireMember(currentUserID(c), groupID); err != nil {
		handleGroupError(c, err)
		return
	}

	members, err := a.groups.Members(groupID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取成员列表失败")
		return
	}

	items := make([]gin.H, 0, len(members))
	for _, member := range members {
		items = append(items, gin.H{
			"user_id":      member.UserID,
			"username":     member.Username,
			"display_name": member.DisplayName,
			"role":         member.Role,
		})
	}
	c.JSON(http.StatusOK, gin.H{"members": items})
}

// UpdateGroupMeeting 设置每周例会
func (a *API) UpdateGroupMeeting(c *gin.Context) {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的群组ID")
		return
	}

	var payload struct {
		Day  string `json:"day"`
		Time string `json:"time"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	group, err := a.groups.UpdateMeeting(currentUserID(c), groupID, service.MeetingInput{
		Day:  payload.Day,
		Time: payload.Time,
	})
	if err != nil {
		handleGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": serializeGroup(*group, true)})
}

func serializeGroup(group db.Group, withInvite bool) gin.H {
	item := gin.H{
		"id":           group.ID,
		"name":         group.Name,
		"description":  group.Description,
		"owner_id":     group.OwnerID,
		"meeting_day":  group.MeetingDay,
		"meeting_time": group.MeetingTime,
	}
	if withInvite {
		item["invite_code"] = group.InviteCode
	}
	return item
}

func handleGroupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		respondError(c, http.StatusNotFound, "群组不存在")
	case errors.Is(err, service.ErrInviteNotFound):
		respondError(c, http.StatusNotFound, "邀请码无效")
	case errors.Is(err, service.ErrAlreadyMember):
		respondError(c, http.StatusConflict, "已经是群组成员")
	case errors.Is(err, service.ErrNotMember):
		respondError(c, http.StatusForbidden, "不是群组成员")
	case errors.Is(err, service.ErrNotGroupAdmin):
		respondError(c, http.StatusForbidden, "需要群组管理员权限")
	case errors.Is(err, service.ErrOwnerCannotLeave):
		respondError(c, http.StatusBadRequest, "群主不能退出群组")
	case errors.Is(err, service.ErrInvalidMeeting):
		respondError(c, http.StatusBadRequest, "例会配置无效")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
