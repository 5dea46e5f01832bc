package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/config"
	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/handler"
	"github.com/maqsadm/internal/router"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// localClient 直接把请求打到内存中的 handler，并维护会话 Cookie。
type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(h http.Handler) *localClient {
	jar, _ := cookiejar.New(nil)
	return &localClient{handler: h, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

func (c *localClient) postJSON(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	return c.doJSON(t, http.MethodPost, path, payload)
}

func (c *localClient) putJSON(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	return c.doJSON(t, http.MethodPut, path, payload)
}

func (c *localClient) getJSON(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	return c.doJSON(t, http.MethodGet, path, nil)
}

func (c *localClient) doJSON(t *testing.T, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, "http://maqsadm.test"+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("%s %s: decode response %q: %v", method, path, raw, err)
		}
	}
	return resp, decoded
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{}, &db.Group{}, &db.GroupMember{},
		&db.GroupTask{}, &db.PersonalTask{},
		&db.TaskCompletion{}, &db.UserTaskSchedule{},
		&db.ChatMessage{}, &db.JournalEntry{},
		&db.AIMessage{}, &db.SystemSetting{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	cfg := config.AppConfig{
		SessionSecret: "e2e-secret",
		GinMode:       gin.TestMode,
		UploadDir:     t.TempDir(),
		UploadURLPath: "/static/uploads",
		AllowOrigins:  []string{"http://maqsadm.test"},
	}
	api := handler.NewAPI(gdb, cfg.UploadDir, cfg.UploadURLPath)
	return router.SetupRouter(cfg, api)
}

func TestE2E_HabitFlow(t *testing.T) {
	r := newTestRouter(t)
	client := newLocalClient(r)

	// 未登录访问受保护接口
	resp, _ := client.getJSON(t, "/api/v1/me")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %d", resp.StatusCode)
	}

	// 注册即建立会话
	resp, body := client.postJSON(t, "/api/v1/register", map[string]any{
		"username":     "alice",
		"password":     "secret123",
		"display_name": "小艾",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register failed: %d %v", resp.StatusCode, body)
	}

	resp, body = client.getJSON(t, "/api/v1/me")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me failed: %d", resp.StatusCode)
	}
	user := body["user"].(map[string]any)
	if user["display_name"] != "小艾" {
		t.Fatalf("unexpected profile: %v", user)
	}

	// 创建群组并在其中建一个按周重复的任务
	resp, body = client.postJSON(t, "/api/v1/groups", map[string]any{
		"name":        "晨跑团",
		"description": "每天一起跑",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create group failed: %d %v", resp.StatusCode, body)
	}
	group := body["group"].(map[string]any)
	groupID := int(group["id"].(float64))
	if group["invite_code"] == "" {
		t.Fatalf("expected invite code for creator")
	}

	today := time.Now()
	resp, body = client.postJSON(t, fmt.Sprintf("/api/v1/groups/%d/tasks", groupID), map[string]any{
		"title":         "晨跑三公里",
		"coins":         2,
		"schedule_kind": "recurring",
		"days":          []string{today.Weekday().String()},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create group task failed: %d %v", resp.StatusCode, body)
	}
	task := body["task"].(map[string]any)
	taskID := int(task["id"].(float64))

	// 任务出现在今天的待办里
	resp, body = client.getJSON(t, "/api/v1/tasks/today")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("today failed: %d", resp.StatusCode)
	}
	active := body["active"].([]any)
	if len(active) != 1 {
		t.Fatalf("expected 1 active task, got %d", len(active))
	}

	// 完成任务并入账
	resp, body = client.postJSON(t, "/api/v1/tasks/complete", map[string]any{
		"task_kind": "group",
		"task_id":   taskID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete failed: %d %v", resp.StatusCode, body)
	}
	if coins := int(body["coins"].(float64)); coins != 2 {
		t.Fatalf("expected 2 coins awarded, got %d", coins)
	}

	// 同一天重复完成被拒绝
	resp, _ = client.postJSON(t, "/api/v1/tasks/complete", map[string]any{
		"task_kind": "group",
		"task_id":   taskID,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate completion, got %d", resp.StatusCode)
	}

	// 今天视图移到已完成列
	resp, body = client.getJSON(t, "/api/v1/tasks/today")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("today after completion failed: %d", resp.StatusCode)
	}
	if completed := body["completed"].([]any); len(completed) != 1 {
		t.Fatalf("expected 1 completed task, got %d", len(completed))
	}

	// 排行榜反映入账
	resp, body = client.getJSON(t, "/api/v1/leaderboard")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard failed: %d", resp.StatusCode)
	}
	entries := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 leaderboard entry, got %d", len(entries))
	}
	if total := int(entries[0].(map[string]any)["total"].(float64)); total != 2 {
		t.Fatalf("expected total 2, got %d", total)
	}

	// 写当天日记，首次奖励 1 银币
	resp, body = client.putJSON(t, "/api/v1/journal", map[string]any{"body": "今天完成了晨跑"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("journal upsert failed: %d %v", resp.StatusCode, body)
	}
	if created, _ := body["created"].(bool); !created {
		t.Fatalf("expected first journal write to create")
	}

	resp, body = client.getJSON(t, "/api/v1/me")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me after flow failed: %d", resp.StatusCode)
	}
	user = body["user"].(map[string]any)
	if coins := int(user["coins"].(float64)); coins != 2 {
		t.Fatalf("expected 2 coins on profile, got %d", coins)
	}
	if silver := int(user["silver_coins"].(float64)); silver != 1 {
		t.Fatalf("expected 1 silver coin on profile, got %d", silver)
	}

	// 登出后会话失效
	resp, _ = client.postJSON(t, "/api/v1/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout failed: %d", resp.StatusCode)
	}
	resp, _ = client.getJSON(t, "/api/v1/me")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestE2E_GroupMembership(t *testing.T) {
	r := newTestRouter(t)
	owner := newLocalClient(r)
	member := newLocalClient(r)

	if resp, _ := owner.postJSON(t, "/api/v1/register", map[string]any{
		"username": "owner", "password": "secret123",
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("register owner failed: %d", resp.StatusCode)
	}
	if resp, _ := member.postJSON(t, "/api/v1/register", map[string]any{
		"username": "member", "password": "secret123",
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("register member failed: %d", resp.StatusCode)
	}

	resp, body := owner.postJSON(t, "/api/v1/groups", map[string]any{"name": "读书会"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create group failed: %d", resp.StatusCode)
	}
	group := body["group"].(map[string]any)
	groupID := int(group["id"].(float64))
	inviteCode := group["invite_code"].(string)

	// 非成员看不到邀请码
	resp, body = member.getJSON(t, fmt.Sprintf("/api/v1/groups/%d", groupID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get group failed: %d", resp.StatusCode)
	}
	if _, exposed := body["group"].(map[string]any)["invite_code"]; exposed {
		t.Fatalf("invite code must be hidden from non-members")
	}

	resp, _ = member.postJSON(t, "/api/v1/groups/join", map[string]any{"invite_code": inviteCode})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join failed: %d", resp.StatusCode)
	}

	// 成员可以发群聊消息，消息经渲染与消毒
	resp, body = member.postJSON(t, fmt.Sprintf("/api/v1/groups/%d/messages", groupID), map[string]any{
		"body": "**打卡**",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post message failed: %d %v", resp.StatusCode, body)
	}

	resp, body = owner.getJSON(t, fmt.Sprintf("/api/v1/groups/%d/messages", groupID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list messages failed: %d", resp.StatusCode)
	}
	if messages := body["messages"].([]any); len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	// 群主不能退出自己的群
	resp, _ = owner.postJSON(t, fmt.Sprintf("/api/v1/groups/%d/leave", groupID), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for owner leave, got %d", resp.StatusCode)
	}
	resp, _ = member.postJSON(t, fmt.Sprintf("/api/v1/groups/%d/leave", groupID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("member leave failed: %d", resp.StatusCode)
	}
}
