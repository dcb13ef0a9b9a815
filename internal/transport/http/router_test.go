package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/leechanwoo-kor/chatterbox/internal/platform/config"
	"github.com/leechanwoo-kor/chatterbox/internal/utils"
)

func newTestLogger(t *testing.T) *utils.Logger {
	t.Helper()
	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: "error",
		LogDir:   t.TempDir(),
		LogFile:  "test.log",
	})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

func TestBuildRequiresConfig(t *testing.T) {
	if _, err := Build(Options{}); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestBuildServesRegisteredRoutes(t *testing.T) {
	router, err := Build(Options{
		Config: config.DefaultConfig(),
		Logger: newTestLogger(t),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	router.Root.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.Engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestBuildAppliesCORS(t *testing.T) {
	router, err := Build(Options{
		Config: config.DefaultConfig(),
		Logger: newTestLogger(t),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/tts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.Engine.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("missing Access-Control-Allow-Origin header")
	}
}
