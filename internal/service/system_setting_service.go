package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maqsadm/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// AIProviderOpenAI 表示使用 OpenAI 能力。
	AIProviderOpenAI = "openai"
	// AIProviderDeepSeek 表示使用 DeepSeek 能力。
	AIProviderDeepSeek = "deepseek"
)

// ErrAIAPIKeyMissing 表示未提供必需的 AI 平台 API Key。
var ErrAIAPIKeyMissing = errors.New("api key is required")

// SystemSettings 描述后台可配置的系统信息。
type SystemSettings struct {
	SiteName        string
	AIProvider      string
	OpenAIAPIKey    string
	DeepSeekAPIKey  string
	AssistantPrompt string
}

// SystemSettingsInput 用于更新系统设置。
type SystemSettingsInput struct {
	SiteName        string
	AIProvider      string
	OpenAIAPIKey    string
	DeepSeekAPIKey  string
	AssistantPrompt string
}

// SystemSettingService 提供系统设置的读取与更新能力。
type SystemSettingService struct {
	db *gorm.DB
}

// NewSystemSettingService 构造 SystemSettingService。
func NewSystemSettingService(gdb *gorm.DB) *SystemSettingService {
	return &SystemSettingService{db: gdb}
}

var settingKeys = []string{
	db.SettingKeySiteName,
	db.SettingKeyAIProvider,
	db.SettingKeyOpenAIAPIKey,
	db.SettingKeyDeepSeekAPIKey,
	db.SettingKeyAssistantPrompt,
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	result := SystemSettings{SiteName: "MaqsadM", AIProvider: AIProviderOpenAI}

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		switch record.Key {
		case db.SettingKeySiteName:
			if v := strings.TrimSpace(record.Value); v != "" {
				result.SiteName = v
			}
		case db.SettingKeyAIProvider:
			if v := normalizeAIProvider(record.Value); v != "" {
				result.AIProvider = v
			}
		case db.SettingKeyOpenAIAPIKey:
			result.OpenAIAPIKey = strings.TrimSpace(record.Value)
		case db.SettingKeyDeepSeekAPIKey:
			result.DeepSeekAPIKey = strings.TrimSpace(record.Value)
		case db.SettingKeyAssistantPrompt:
			result.AssistantPrompt = strings.TrimSpace(record.Value)
		}
	}

	return result, nil
}

// UpdateSettings 写入系统设置并返回更新后的快照。
func (s *SystemSettingService) UpdateSettings(input SystemSettingsInput) (SystemSettings, error) {
	provider := normalizeAIProvider(input.AIProvider)
	if provider == "" {
		provider = AIProviderOpenAI
	}

	values := map[string]string{
		db.SettingKeySiteName:        strings.TrimSpace(input.SiteName),
		db.SettingKeyAIProvider:      provider,
		db.SettingKeyOpenAIAPIKey:    strings.TrimSpace(input.OpenAIAPIKey),
		db.SettingKeyDeepSeekAPIKey:  strings.TrimSpace(input.DeepSeekAPIKey),
		db.SettingKeyAssistantPrompt: strings.TrimSpace(input.AssistantPrompt),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			record := db.SystemSetting{Key: key, Value: value}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&record).Error; err != nil {
				return fmt.Errorf("save setting %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return SystemSettings{}, err
	}

	return s.GetSettings()
}

func normalizeAIProvider(raw string) string {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case AIProviderOpenAI:
		return AIProviderOpenAI
	case AIProviderDeepSeek:
		return AIProviderDeepSeek
	default:
		return ""
	}
}
