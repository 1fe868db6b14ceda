package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/shopdesk-server/internal/auth"
	"github.com/vovakirdan/shopdesk-server/internal/config"
	"github.com/vovakirdan/shopdesk-server/internal/core"
	"github.com/vovakirdan/shopdesk-server/internal/media"
	"github.com/vovakirdan/shopdesk-server/internal/service/accounts"
	"github.com/vovakirdan/shopdesk-server/internal/service/carts"
	"github.com/vovakirdan/shopdesk-server/internal/service/catalog"
	"github.com/vovakirdan/shopdesk-server/internal/service/chat"
	"github.com/vovakirdan/shopdesk-server/internal/service/notifications"
	"github.com/vovakirdan/shopdesk-server/internal/store/sqlite"
)

const (
	testAdminUser     = "admin"
	testAdminPassword = "admin-pass"
)

type testEnv struct {
	ts      *httptest.Server
	store   *sqlite.SQLiteStore
	hub     *core.Hub
	auth    *auth.Service
	uploads string
}

// newTestEnv starts the full router over an in-memory store with a seeded admin.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	disabledLogger := zerolog.New(nil)
	logger := &disabledLogger

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
	if _, err := authService.EnsureAdmin(context.Background(), testAdminUser, testAdminPassword); err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}

	uploads := t.TempDir()
	storage, err := media.NewStorage(uploads, "", 1<<20)
	if err != nil {
		t.Fatalf("failed to create media storage: %v", err)
	}

	hub := core.NewHub(logger)
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.MaxUploadBytes = 1 << 20

	server := NewServer(Services{
		Hub:           hub,
		Auth:          authService,
		Chat:          chat.New(st, st, hub, logger),
		Notifications: notifications.New(st, hub, logger),
		Carts:         carts.New(st, hub, logger),
		Accounts:      accounts.New(st, hub, logger),
		Catalog:       catalog.New(st, logger),
		Media:         storage,
		Store:         st,
	}, &cfg, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, hub: hub, auth: authService, uploads: uploads}
}

// do sends a JSON request and returns the status and raw body.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

// doMultipart posts form fields plus files, keyed by form field name.
func (e *testEnv) doMultipart(t *testing.T, path string, fields map[string]string, files map[string][][]byte, token string) (int, []byte) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for k, contents := range files {
		for i, content := range contents {
			part, err := w.CreateFormFile(k, fmt.Sprintf("%s-%d.png", k, i))
			if err != nil {
				t.Fatalf("create form file: %v", err)
			}
			if _, err := part.Write(content); err != nil {
				t.Fatalf("write part: %v", err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

// uploadCount returns how many files sit in the upload dir.
func (e *testEnv) uploadCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.uploads)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	return len(entries)
}

// adminToken logs the seeded admin in.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Username: testAdminUser, Password: testAdminPassword}, "")
	if status != http.StatusOK {
		t.Fatalf("admin login: expected 200, got %d: %s", status, body)
	}
	var resp AuthResponse
	decode(t, body, &resp)
	return resp.Token
}

// registerUser creates a shop user and returns its id.
func (e *testEnv) registerUser(t *testing.T, name, email string) string {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/users/register", RegisterRequest{Name: name, Email: email, Password: "secret123"}, "")
	if status != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", status, body)
	}
	var resp RegisterResponse
	decode(t, body, &resp)
	return resp.User.ID
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}
