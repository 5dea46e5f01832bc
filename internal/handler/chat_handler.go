package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/service"
)

// PostChatMessage 向群组发送一条消息
func (a *API) PostChatMessage(c *gin.Context) {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的群组ID")
		return
	}

	var payload struct {
		Body string `json:"body"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	message, err := a.chat.Post(currentUserID(c), groupID, payload.Body)
	if err != nil {
		handleChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": gin.H{
		"id":       message.ID,
		"group_id": message.GroupID,
		"user_id":  message.UserID,
		"body":     message.Body,
		"html":     message.HTML,
	}})
}

// ListChatMessages 返回群组最近的消息
func (a *API) ListChatMessages(c *gin.Context) {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的群组ID")
		return
	}

	messages, err := a.chat.List(currentUserID(c), groupID, parseLimitQuery(c))
	if err != nil {
		handleChatError(c, err)
		return
	}

	items := make([]gin.H, 0, len(messages))
	for _, message := range messages {
		items = append(items, gin.H{
			"id":           message.ID,
			"group_id":     message.GroupID,
			"user_id":      message.UserID,
			"username":     message.Username,
			"display_name": message.DisplayName,
			"body":         message.Body,
			"html":         message.HTML,
			"created_at":   message.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": items})
}

// DeleteChatMessage 删除消息：作者或群组管理员可删。
func (a *API) DeleteChatMessage(c *gin.Context) {
	messageID, err := parseUintParam(c, "messageId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的消息ID")
		return
	}

	if err := a.chat.Delete(currentUserID(c), messageID); err != nil {
		handleChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func handleChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMessageNotFound):
		respondError(c, http.StatusNotFound, "消息不存在")
	case errors.Is(err, service.ErrNotMessageAuthor):
		respondError(c, http.StatusForbidden, "无权删除该消息")
	case errors.Is(err, service.ErrNotMember):
		respondError(c, http.StatusForbidden, "不是群组成员")
	case errors.Is(err, service.ErrGroupNotFound):
		respondError(c, http.StatusNotFound, "群组不存在")
	default:
		respondError(c, http.StatusBadRequest, "发送消息失败")
	}
}
