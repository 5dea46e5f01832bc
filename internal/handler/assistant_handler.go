package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/service"
)

// AskAssistant 向 AI 助手发起一轮提问
func (a *API) AskAssistant(c *gin.Context) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	reply, err := a.assistant.Ask(c.Request.Context(), currentUserID(c), payload.Prompt)
	if err != nil {
		handleAssistantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_message":      serializeAIMessage(*reply.UserMessage),
		"assistant_message": serializeAIMessage(*reply.AssistantMessage),
		"prompt_tokens":     reply.PromptTokens,
		"completion_tokens": reply.CompletionTokens,
	})
}

// AssistantHistory 返回当前用户最近的对话记录
func (a *API) AssistantHistory(c *gin.Context) {
	messages, err := a.assistant.History(currentUserID(c), parseLimitQuery(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取对话记录失败")
		return
	}

	items := make([]gin.H, 0, len(messages))
	for _, message := range messages {
		items = append(items, serializeAIMessage(message))
	}
	c.JSON(http.StatusOK, gin.H{"messages": items})
}

// DeleteAssistantMessage 删除用户自己的一条对话消息
func (a *API) DeleteAssistantMessage(c *gin.Context) {
	messageID, err := parseUintParam(c, "messageId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的消息ID")
		return
	}

	if err := a.assistant.DeleteMessage(currentUserID(c), messageID); err != nil {
		handleAssistantError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func serializeAIMessage(message db.AIMessage) gin.H {
	return gin.H{
		"id":      message.ID,
		"role":    message.Role,
		"content": message.Content,
	}
}

func handleAssistantError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAIAPIKeyMissing):
		respondError(c, http.StatusServiceUnavailable, "尚未配置 AI API Key")
	case errors.Is(err, service.ErrAIMessageNotFound):
		respondError(c, http.StatusNotFound, "消息不存在")
	case errors.Is(err, service.ErrNotAIMessageOwner):
		respondError(c, http.StatusForbidden, "无权删除该消息")
	default:
		respondError(c, http.StatusBadGateway, "AI 助手暂时不可用")
	}
}
