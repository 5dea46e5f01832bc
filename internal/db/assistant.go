package db

import "gorm.io/gorm"

// AIMessage 保存用户与 AI 助手的对话记录。
// 与任务完成历史不同，这里允许用户删除自己的消息。
type AIMessage struct {
	gorm.Model
	UserID  uint   `gorm:"index"`
	Role    string `gorm:"not null"` // user / assistant
	Content string `gorm:"type:text;not null"`
}

const (
	// AIRoleUser 用户提问
	AIRoleUser = "user"
	// AIRoleAssistant 模型回复
	AIRoleAssistant = "assistant"
)
