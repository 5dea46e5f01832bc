package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/maqsadm/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrAIMessageNotFound 在指定对话消息不存在时返回
	ErrAIMessageNotFound = errors.New("assistant message not found")
	// ErrNotAIMessageOwner 在删除他人对话消息时返回
	ErrNotAIMessageOwner = errors.New("not the assistant message owner")
)

const (
	defaultAssistantOpenAIModel   = "gpt-4o-mini"
	defaultAssistantDeepSeekModel = "deepseek-chat"
	defaultAssistantMaxTokens     = 600
	defaultAssistantTemperature   = 0.6
	assistantHistoryWindow        = 10

	defaultAssistantSystemPrompt = "你是 MaqsadM 的习惯养成助手。" +
		"帮助用户拆解目标、安排每周任务节奏并保持动力，回答保持简洁、具体、可执行。"
)

// AssistantService 基于大模型接口实现应用内 AI 助手。
// 对话按用户持久化，删除消息是完成历史之外唯一的删除路径。
type AssistantService struct {
	db       *gorm.DB
	settings *SystemSettingService
	client   *aiChatClient
}

// AssistantReply 返回模型回复及本轮持久化的消息。
type AssistantReply struct {
	UserMessage      *db.AIMessage
	AssistantMessage *db.AIMessage
	PromptTokens     int
	CompletionTokens int
}

// NewAssistantService 构造默认的 AssistantService。
func NewAssistantService(gdb *gorm.DB, settings *SystemSettingService) *AssistantService {
	return &AssistantService{
		db:       gdb,
		settings: settings,
		client:   newAIChatClient(defaultAssistantOpenAIModel, defaultAssistantDeepSeekModel),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *AssistantService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetOpenAIBaseURL 覆盖默认的 OpenAI API 地址。
func (s *AssistantService) SetOpenAIBaseURL(base string) {
	s.client.SetOpenAIBaseURL(base)
}

// SetDeepSeekBaseURL 覆盖默认的 DeepSeek API 地址。
func (s *AssistantService) SetDeepSeekBaseURL(base string) {
	s.client.SetDeepSeekBaseURL(base)
}

// Ask 发送一轮提问：持久化用户消息，携带最近对话上下文调用模型，
// 再持久化模型回复。未配置 API Key 时返回 ErrAIAPIKeyMissing。
func (s *AssistantService) Ask(ctx context.Context, userID uint, prompt string) (*AssistantReply, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	settings, err := s.settings.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("读取系统设置失败: %w", err)
	}

	systemPrompt := strings.TrimSpace(settings.AssistantPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultAssistantSystemPrompt
	}

	recent, err := s.History(userID, assistantHistoryWindow)
	if err != nil {
		return nil, err
	}

	messages := make([]chatMessage, 0, len(recent)+1)
	for _, msg := range recent {
		messages = append(messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, chatMessage{Role: db.AIRoleUser, Content: prompt})

	logAIExchange("ASSISTANT", "prompt", prompt)

	result, err := s.client.callWithSettings(ctx, settings, aiChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		MaxTokens:    defaultAssistantMaxTokens,
		Temperature:  defaultAssistantTemperature,
	})
	if err != nil {
		return nil, err
	}

	logAIExchange("ASSISTANT", "response", result.Content)

	userMessage := db.AIMessage{UserID: userID, Role: db.AIRoleUser, Content: prompt}
	assistantMessage := db.AIMessage{UserID: userID, Role: db.AIRoleAssistant, Content: result.Content}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&userMessage).Error; err != nil {
			return fmt.Errorf("save user message: %w", err)
		}
		if err := tx.Create(&assistantMessage).Error; err != nil {
			return fmt.Errorf("save assistant message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AssistantReply{
		UserMessage:      &userMessage,
		AssistantMessage: &assistantMessage,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	}, nil
}

// History 返回用户最近的 limit 条对话消息，按时间升序。
func (s *AssistantService) History(userID uint, limit int) ([]db.AIMessage, error) {
	if limit <= 0 {
		limit = assistantHistoryWindow
	}

	var messages []db.AIMessage
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list assistant messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// DeleteMessage 删除用户自己的一条对话消息。
func (s *AssistantService) DeleteMessage(userID, messageID uint) error {
	var message db.AIMessage
	if err := s.db.First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAIMessageNotFound
		}
		return fmt.Errorf("get assistant message: %w", err)
	}
	if message.UserID != userID {
		return ErrNotAIMessageOwner
	}

	if err := s.db.Delete(&db.AIMessage{}, messageID).Error; err != nil {
		return fmt.Errorf("delete assistant message: %w", err)
	}
	return nil
}
