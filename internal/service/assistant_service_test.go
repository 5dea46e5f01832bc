package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/maqsadm/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeHTTPClient struct {
	handler func(*http.Request) (*http.Response, error)
}

func (f fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if f.handler == nil {
		return nil, errors.New("no handler configured")
	}
	return f.handler(req)
}

func setupAssistantTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:assistant-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.SystemSetting{}, &db.AIMessage{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

func completionResponse(content string) *http.Response {
	response := chatCompletionResponse{}
	response.Choices = []struct {
		Message chatMessage `json:"message"`
	}{
		{Message: chatMessage{Role: db.AIRoleAssistant, Content: content}},
	}
	response.Usage.PromptTokens = 12
	response.Usage.CompletionTokens = 34

	body, _ := json.Marshal(response)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestAssistantService_AskPersistsConversation(t *testing.T) {
	gdb := setupAssistantTestDB(t)
	system := NewSystemSettingService(gdb)
	if _, err := system.UpdateSettings(SystemSettingsInput{
		SiteName:        "MaqsadM",
		AIProvider:      AIProviderOpenAI,
		OpenAIAPIKey:    "sk-test",
		AssistantPrompt: "自定义助手提示",
	}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	user := createTestUser(t, gdb, "alice")
	svc := NewAssistantService(gdb, system)
	svc.SetOpenAIBaseURL("https://openai.test/v1")
	svc.SetHTTPClient(fakeHTTPClient{handler: func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected authorization header %s", got)
		}

		var payload chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Model != defaultAssistantOpenAIModel {
			t.Fatalf("unexpected model %s", payload.Model)
		}
		if len(payload.Messages) == 0 || payload.Messages[0].Content != "自定义助手提示" {
			t.Fatalf("unexpected system prompt: %#v", payload.Messages)
		}
		if payload.Messages[len(payload.Messages)-1].Content != "如何坚持晨跑？" {
			t.Fatalf("expected prompt as last message: %#v", payload.Messages)
		}

		return completionResponse("从每周两次开始。"), nil
	}})

	reply, err := svc.Ask(context.Background(), user.ID, "如何坚持晨跑？")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if reply.AssistantMessage.Content != "从每周两次开始。" {
		t.Fatalf("unexpected reply %s", reply.AssistantMessage.Content)
	}
	if reply.PromptTokens != 12 || reply.CompletionTokens != 34 {
		t.Fatalf("unexpected usage: %+v", reply)
	}

	history, err := svc.History(user.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected user + assistant messages persisted, got %d", len(history))
	}
	if history[0].Role != db.AIRoleUser || history[1].Role != db.AIRoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}
}

func TestAssistantService_MissingAPIKey(t *testing.T) {
	gdb := setupAssistantTestDB(t)
	system := NewSystemSettingService(gdb)
	user := createTestUser(t, gdb, "alice")

	svc := NewAssistantService(gdb, system)
	svc.SetHTTPClient(fakeHTTPClient{handler: func(r *http.Request) (*http.Response, error) {
		t.Fatalf("should not call API without key")
		return nil, nil
	}})

	if _, err := svc.Ask(context.Background(), user.ID, "你好"); !errors.Is(err, ErrAIAPIKeyMissing) {
		t.Fatalf("expected ErrAIAPIKeyMissing, got %v", err)
	}

	var count int64
	if err := gdb.Model(&db.AIMessage{}).Count(&count).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected nothing persisted on failure, got %d", count)
	}
}

func TestAssistantService_DeleteMessageOwnership(t *testing.T) {
	gdb := setupAssistantTestDB(t)
	system := NewSystemSettingService(gdb)
	svc := NewAssistantService(gdb, system)
	alice := createTestUser(t, gdb, "alice")
	bob := createTestUser(t, gdb, "bob")

	message := db.AIMessage{UserID: alice.ID, Role: db.AIRoleUser, Content: "我的提问"}
	if err := gdb.Create(&message).Error; err != nil {
		t.Fatalf("seed message: %v", err)
	}

	if err := svc.DeleteMessage(bob.ID, message.ID); !errors.Is(err, ErrNotAIMessageOwner) {
		t.Fatalf("expected ErrNotAIMessageOwner, got %v", err)
	}
	if err := svc.DeleteMessage(alice.ID, message.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := svc.DeleteMessage(alice.ID, message.ID); !errors.Is(err, ErrAIMessageNotFound) {
		t.Fatalf("expected ErrAIMessageNotFound, got %v", err)
	}
}
