package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/service"
)

// GetSystemSettings 返回系统设置，API Key 只回传是否已配置。
func (a *API) GetSystemSettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "读取系统设置失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": serializeSettings(settings)})
}

// UpdateSystemSettings 更新系统设置
func (a *API) UpdateSystemSettings(c *gin.Context) {
	var payload struct {
		SiteName        string `json:"site_name"`
		AIProvider      string `json:"ai_provider"`
		OpenAIAPIKey    string `json:"openai_api_key"`
		DeepSeekAPIKey  string `json:"deepseek_api_key"`
		AssistantPrompt string `json:"assistant_prompt"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	settings, err := a.system.UpdateSettings(service.SystemSettingsInput{
		SiteName:        payload.SiteName,
		AIProvider:      payload.AIProvider,
		OpenAIAPIKey:    payload.OpenAIAPIKey,
		DeepSeekAPIKey:  payload.DeepSeekAPIKey,
		AssistantPrompt: payload.AssistantPrompt,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存系统设置失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": serializeSettings(settings)})
}

func serializeSettings(settings service.SystemSettings) gin.H {
	return gin.H{
		"site_name":           settings.SiteName,
		"ai_provider":         settings.AIProvider,
		"openai_configured":   settings.OpenAIAPIKey != "",
		"deepseek_configured": settings.DeepSeekAPIKey != "",
		"assistant_prompt":    settings.AssistantPrompt,
	}
}
