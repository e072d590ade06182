package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/tg-message-logger/internal/domain"
	"github.com/tbourn/tg-message-logger/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

// fakeExport records the last request and returns canned results.
type fakeExport struct {
	msgs     []domain.Message
	count    int64
	maxID    int64
	err      error
	fpErr    error
	calls    int
	lastReq  services.ExportRequest
	fpCalled int
}

func (f *fakeExport) Export(_ context.Context, req services.ExportRequest) ([]domain.Message, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.msgs, nil
}

func (f *fakeExport) Fingerprint(_ context.Context, req services.ExportRequest) (int64, int64, error) {
	f.fpCalled++
	f.lastReq = req
	if f.fpErr != nil {
		return 0, 0, f.fpErr
	}
	return f.count, f.maxID, nil
}

func newRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/users/:identity/messages", h.ExportMessages)
	return r
}

func get(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return er
}

func sampleMessages() []domain.Message {
	return []domain.Message{
		{ID: 2, UserID: 7, Username: domain.OptionalString("alice"), ChatID: -100, MessageText: "second", Timestamp: "2024-05-02T10:00:00+00:00"},
		{ID: 1, UserID: 7, Username: domain.OptionalString("alice"), ChatID: -100, MessageText: "first", Timestamp: "2024-05-01T10:00:00+00:00"},
	}
}

func TestHealth(t *testing.T) {
	w := get(newRouter(New(&fakeExport{}, nil)), "/health", nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"ok"}` {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	pinged := false
	h := New(&fakeExport{}, func(ctx context.Context) error {
		pinged = true
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("expected ping deadline")
		}
		return nil
	})
	if w := get(newRouter(h), "/health", nil); w.Code != http.StatusOK || !pinged {
		t.Fatalf("status=%d pinged=%v", w.Code, pinged)
	}

	h = New(&fakeExport{}, func(context.Context) error { return errors.New("db closed") })
	w = get(newRouter(h), "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if er := decodeError(t, w); er.Code != ErrCodeUnavailable {
		t.Fatalf("code=%q", er.Code)
	}
}

func TestExportMessages_OK(t *testing.T) {
	f := &fakeExport{msgs: sampleMessages(), count: 2, maxID: 2}
	w := get(newRouter(New(f, nil)), "/users/@alice/messages?chat_id=-100&start=2024-05-01&end=2024-05-31&limit=all", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var body ExportMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 2 || len(body.Messages) != 2 || body.Messages[0].ID != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}

	req := f.lastReq
	if req.Identity != "@alice" {
		t.Fatalf("identity=%q", req.Identity)
	}
	if req.ChatID == nil || *req.ChatID != -100 {
		t.Fatalf("chat_id=%v", req.ChatID)
	}
	if req.Start == nil || *req.Start != "2024-05-01" || req.End == nil || *req.End != "2024-05-31" {
		t.Fatalf("bounds=%v %v", req.Start, req.End)
	}
	if req.Limit == nil || *req.Limit != 0 {
		t.Fatalf("limit=%v", req.Limit)
	}
	if w.Header().Get("ETag") == "" || w.Header().Get("Cache-Control") != "private, no-cache" {
		t.Fatalf("missing cache headers: %v", w.Header())
	}
	if w.Header().Get("Content-Disposition") != "" {
		t.Fatalf("unexpected attachment header")
	}
}

func TestExportMessages_EmptyIsArray(t *testing.T) {
	f := &fakeExport{}
	w := get(newRouter(New(f, nil)), "/users/nobody/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w.Body.String() != `{"messages":[],"count":0}` {
		t.Fatalf("body=%s", w.Body.String())
	}
	if f.lastReq.Limit != nil || f.lastReq.ChatID != nil || f.lastReq.Start != nil {
		t.Fatalf("absent params should be nil: %+v", f.lastReq)
	}
}

func TestExportMessages_Download(t *testing.T) {
	f := &fakeExport{msgs: sampleMessages(), count: 2, maxID: 2}
	w := get(newRouter(New(f, nil)), "/users/@Alice/messages?download=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="messages_Alice.json"` {
		t.Fatalf("disposition=%q", got)
	}
	want, err := services.MarshalExport(f.msgs)
	if err != nil {
		t.Fatal(err)
	}
	if w.Body.String() != string(want) {
		t.Fatalf("body mismatch:\n%s\nwant:\n%s", w.Body.String(), want)
	}
}

func TestExportMessages_BadParams(t *testing.T) {
	cases := []struct {
		name string
		path string
		err  error
	}{
		{"chat id", "/users/alice/messages?chat_id=abc", nil},
		{"limit", "/users/alice/messages?limit=many", nil},
		{"blank identity", "/users/%20/messages", nil},
		{"service timestamp", "/users/alice/messages?start=yesterday", fmt.Errorf("%w: %q", services.ErrInvalidTimestamp, "yesterday")},
		{"service limit", "/users/alice/messages?limit=-1", services.ErrInvalidLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeExport{fpErr: tc.err}
			w := get(newRouter(New(f, nil)), tc.path, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if er := decodeError(t, w); er.Code != ErrCodeBadRequest || er.Message == "" {
				t.Fatalf("unexpected error body: %+v", er)
			}
			if f.calls != 0 {
				t.Fatalf("export should not run")
			}
		})
	}
}

func TestExportMessages_StoreFailure(t *testing.T) {
	f := &fakeExport{err: errors.New("disk I/O error")}
	w := get(newRouter(New(f, nil)), "/users/alice/messages", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	er := decodeError(t, w)
	if er.Code != ErrCodeExportFailed || er.Message != "export failed" {
		t.Fatalf("unexpected error body: %+v", er)
	}

	f = &fakeExport{fpErr: errors.New("db locked")}
	w = get(newRouter(New(f, nil)), "/users/alice/messages", nil)
	if w.Code != http.StatusInternalServerError || decodeError(t, w).Code != ErrCodeExportFailed {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestExportMessages_ConditionalGet(t *testing.T) {
	f := &fakeExport{msgs: sampleMessages(), count: 2, maxID: 2}
	r := newRouter(New(f, nil))

	first := get(r, "/users/alice/messages?limit=10", nil)
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing etag")
	}

	w := get(r, "/users/alice/messages?limit=10", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
	if f.calls != 1 {
		t.Fatalf("export should be skipped on 304, calls=%d", f.calls)
	}

	w = get(r, "/users/alice/messages?limit=10", map[string]string{"If-None-Match": `"other", ` + etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("list match: status=%d", w.Code)
	}
	w = get(r, "/users/alice/messages?limit=10", map[string]string{"If-None-Match": "*"})
	if w.Code != http.StatusNotModified {
		t.Fatalf("wildcard: status=%d", w.Code)
	}

	// a new message changes the validator
	f.count, f.maxID = 3, 9
	w = get(r, "/users/alice/messages?limit=10", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("stale etag: status=%d", w.Code)
	}

	// different filters never share a validator
	f.count, f.maxID = 2, 2
	w = get(r, "/users/alice/messages?limit=5", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("other query: status=%d", w.Code)
	}
}

func TestExportETag(t *testing.T) {
	a := exportETag("@alice", map[string][]string{"limit": {"5"}}, 3, 10)
	b := exportETag("alice", map[string][]string{"limit": {"5"}}, 3, 10)
	if a != b {
		t.Fatalf("leading @ should not affect etag: %s vs %s", a, b)
	}
	if a == exportETag("alice", map[string][]string{"limit": {"5"}}, 3, 11) {
		t.Fatal("max id should affect etag")
	}
	if a[:2] != "W/" {
		t.Fatalf("expected weak etag, got %s", a)
	}
	if etagMatches("", a) || etagMatches(`"nope"`, a) {
		t.Fatal("unexpected match")
	}
	if !etagMatches(a[2:], a) {
		t.Fatal("strong form should match weakly")
	}
}
