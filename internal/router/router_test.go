package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/config"
	"github.com/maqsadm/internal/handler"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRouterTestConfig(t *testing.T) config.AppConfig {
	t.Helper()
	return config.AppConfig{
		SessionSecret: "test-secret",
		GinMode:       gin.TestMode,
		UploadDir:     t.TempDir(),
		UploadURLPath: "/static/uploads",
		AllowOrigins:  []string{"http://localhost"},
	}
}

func newRouterTestAPI(t *testing.T, cfg config.AppConfig) *handler.API {
	t.Helper()
	dsn := fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return handler.NewAPI(gdb, cfg.UploadDir, cfg.UploadURLPath)
}

func TestSetupRouterPing(t *testing.T) {
	cfg := newRouterTestConfig(t)
	r := SetupRouter(cfg, newRouterTestAPI(t, cfg))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestSetupRouterServesUploads(t *testing.T) {
	cfg := newRouterTestConfig(t)

	fileName := "example.txt"
	fileContent := []byte("hello uploads")
	if err := os.WriteFile(filepath.Join(cfg.UploadDir, fileName), fileContent, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	r := SetupRouter(cfg, newRouterTestAPI(t, cfg))

	req := httptest.NewRequest(http.MethodGet, cfg.UploadURLPath+"/"+fileName, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != string(fileContent) {
		t.Fatalf("unexpected body, got %q", rr.Body.String())
	}
}

func TestSetupRouterGuardsProtectedRoutes(t *testing.T) {
	cfg := newRouterTestConfig(t)
	r := SetupRouter(cfg, newRouterTestAPI(t, cfg))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/today", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rr.Code)
	}
}
