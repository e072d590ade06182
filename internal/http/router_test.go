package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/tg-message-logger/internal/config"
	"github.com/tbourn/tg-message-logger/internal/domain"
	"github.com/tbourn/tg-message-logger/internal/http/handlers"
	"github.com/tbourn/tg-message-logger/internal/repo"
	"github.com/tbourn/tg-message-logger/internal/services"
	"github.com/tbourn/tg-message-logger/internal/throttle"
)

const testToken = "s3cret-admin-token"

func init() { gin.SetMode(gin.TestMode) }

// newTestDB opens a fresh on-disk sqlite store (pure Go, no CGO).
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(db) })
	if err := repo.Initialize(context.Background(), db); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB, msgs ...domain.Message) {
	t.Helper()
	for i := range msgs {
		if err := repo.AppendMessage(context.Background(), db, &msgs[i]); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		AdminTokens: []string{testToken},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newEngine(t *testing.T, cfg config.Config, db *gorm.DB, lim throttle.Limiter) *gin.Engine {
	t.Helper()
	r := gin.New()
	RegisterRoutes(r, Deps{
		Config: cfg,
		Export: &services.ExportService{
			DB:           db,
			AllowedChats: config.NewIDSet(-100),
			DefaultLimit: 1000,
		},
		Ping:    func(ctx context.Context) error { return repo.Ping(ctx, db) },
		Limiter: lim,
	})
	return r
}

func serve(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var er handlers.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return er.Code
}

func bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testToken}
}

func TestRegisterRoutes_Health_Metrics_Fallbacks(t *testing.T) {
	r := newEngine(t, testConfig(), newTestDB(t), nil)

	w := serve(r, http.MethodGet, "/health", map[string]string{"Origin": "https://ops.example"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-all CORS expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing request id or security headers: %v", w.Header())
	}

	w = serve(r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("GET /metrics bad: code=%d", w.Code)
	}

	w = serve(r, http.MethodGet, "/nope", nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"code":"not_found"`) {
		t.Fatalf("NoRoute: %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodPost, "/health", nil)
	if w.Code != http.StatusMethodNotAllowed || !strings.Contains(w.Body.String(), `"code":"method_not_allowed"`) {
		t.Fatalf("NoMethod: %d %s", w.Code, w.Body.String())
	}

	// swagger is off by default
	if w = serve(r, http.MethodGet, "/swagger/doc.json", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_HealthReportsClosedStore(t *testing.T) {
	db := newTestDB(t)
	r := newEngine(t, testConfig(), db, nil)
	_ = repo.Close(db)

	w := serve(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with closed store, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"https://ops.example"}}
	r := newEngine(t, cfg, newTestDB(t), nil)

	w := serve(r, http.MethodGet, "/health", map[string]string{"Origin": "https://ops.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example" {
		t.Fatalf("expected echoed origin, got %q", got)
	}

	w = serve(r, http.MethodGet, "/health", map[string]string{"Origin": "https://evil.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected ACAO for foreign origin: %q", got)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r := newEngine(t, cfg, newTestDB(t), nil)

	w := serve(r, http.MethodGet, "/swagger/doc.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/users/{identity}/messages") {
		t.Fatalf("doc missing export path: %s", w.Body.String())
	}
}

func TestExportRoute_RequiresToken(t *testing.T) {
	r := newEngine(t, testConfig(), newTestDB(t), nil)

	w := serve(r, http.MethodGet, "/api/v1/users/alice/messages", nil)
	if w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("no token: %d %v", w.Code, w.Header())
	}
	if code := errorCode(t, w); code != handlers.ErrCodeUnauthorized {
		t.Fatalf("no token: code=%q", code)
	}
	w = serve(r, http.MethodGet, "/api/v1/users/alice/messages", map[string]string{"Authorization": "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: %d", w.Code)
	}
}

func TestExportRoute_EndToEnd(t *testing.T) {
	db := newTestDB(t)
	alice := domain.OptionalString("alice")
	seed(t, db,
		domain.Message{UserID: 7, Username: alice, ChatID: -100, MessageText: "old", Timestamp: "2024-05-01T09:00:00+00:00"},
		domain.Message{UserID: 7, Username: alice, ChatID: -100, MessageText: "<b>new</b> é", Timestamp: "2024-05-02T09:00:00+00:00"},
		domain.Message{UserID: 7, Username: alice, ChatID: -999, MessageText: "elsewhere", Timestamp: "2024-05-03T09:00:00+00:00"},
		domain.Message{UserID: 8, Username: domain.OptionalString("bob"), ChatID: -100, MessageText: "bob", Timestamp: "2024-05-04T09:00:00+00:00"},
	)
	r := newEngine(t, testConfig(), db, nil)

	// usernames match exactly
	if w := serve(r, http.MethodGet, "/api/v1/users/ALICE/messages", bearer()); !strings.Contains(w.Body.String(), `"count":0`) {
		t.Fatalf("case-folded username matched: %s", w.Body.String())
	}

	w := serve(r, http.MethodGet, "/api/v1/users/@alice/messages", bearer())
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Messages []domain.Message `json:"messages"`
		Count    int              `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 2 || body.Messages[0].MessageText != "<b>new</b> é" || body.Messages[1].MessageText != "old" {
		t.Fatalf("unexpected export: %+v", body)
	}

	// by numeric id with a date window
	w = serve(r, http.MethodGet, "/api/v1/users/7/messages?start=2024-05-02", bearer())
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 {
		t.Fatalf("expected 1 message after start, got %d", body.Count)
	}

	// download returns the bare array with the raw text
	w = serve(r, http.MethodGet, "/api/v1/users/alice/messages?download=1", bearer())
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="messages_alice.json"` {
		t.Fatalf("disposition=%q", got)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("[\n  {")) || !strings.Contains(w.Body.String(), "<b>new</b> é") {
		t.Fatalf("unexpected document: %s", w.Body.String())
	}

	// invalid bound
	w = serve(r, http.MethodGet, "/api/v1/users/alice/messages?end=soon", bearer())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad end: %d", w.Code)
	}
}

func TestExportRoute_ETagChangesOnAppend(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, domain.Message{UserID: 7, ChatID: -100, MessageText: "one", Timestamp: "2024-05-01T09:00:00+00:00"})
	r := newEngine(t, testConfig(), db, nil)

	first := serve(r, http.MethodGet, "/api/v1/users/7/messages", bearer())
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing etag")
	}

	h := bearer()
	h["If-None-Match"] = etag
	if w := serve(r, http.MethodGet, "/api/v1/users/7/messages", h); w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	seed(t, db, domain.Message{UserID: 7, ChatID: -100, MessageText: "two", Timestamp: "2024-05-02T09:00:00+00:00"})
	w := serve(r, http.MethodGet, "/api/v1/users/7/messages", h)
	if w.Code != http.StatusOK || w.Header().Get("ETag") == etag {
		t.Fatalf("expected fresh 200 after append, got %d etag=%s", w.Code, w.Header().Get("ETag"))
	}
}

func TestExportRoute_RateLimited(t *testing.T) {
	r := newEngine(t, testConfig(), newTestDB(t), throttle.NewLocal(0.001, 1))

	if w := serve(r, http.MethodGet, "/api/v1/users/7/messages", bearer()); w.Code != http.StatusOK {
		t.Fatalf("first request: %d", w.Code)
	}
	w := serve(r, http.MethodGet, "/api/v1/users/7/messages", bearer())
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d %v", w.Code, w.Header())
	}
	if code := errorCode(t, w); code != handlers.ErrCodeRateLimited {
		t.Fatalf("rate limited: code=%q", code)
	}

	// health is outside the limited group
	if w := serve(r, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("health limited: %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	r := gin.New()
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, http.MethodGet, path, nil)
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}

func TestNewServer(t *testing.T) {
	cfg := config.Config{
		Port:              "9090",
		ReadTimeout:       time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      3 * time.Second,
		IdleTimeout:       4 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	srv := NewServer(cfg, http.NotFoundHandler())
	if srv.Addr != ":9090" || srv.ReadHeaderTimeout != 2*time.Second || srv.MaxHeaderBytes != 1<<16 {
		t.Fatalf("unexpected server: %+v", srv)
	}
}
