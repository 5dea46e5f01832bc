package db

import "gorm.io/gorm"

// ChatMessage 群组聊天消息
// Body 保存原始 Markdown，HTML 为渲染并消毒后的结果，读路径直接取用。
type ChatMessage struct {
	gorm.Model
	GroupID uint   `gorm:"index"`
	UserID  uint   `gorm:"index"`
	Body    string `gorm:"type:text;not null"`
	HTML    string `gorm:"type:text"`
}

// JournalEntry 每日日记
// User + EntryDate 采用唯一索引，一天一篇；首次写入奖励 1 银币。
type JournalEntry struct {
	gorm.Model
	UserID    uint   `gorm:"index;index:idx_journal_unique,unique"`
	EntryDate string `gorm:"index:idx_journal_unique,unique"` // yyyy-MM-dd
	Body      string `gorm:"type:text;not null"`
	HTML      string `gorm:"type:text"`
}
