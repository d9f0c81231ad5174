package authstate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/authstate/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// loginAPI is a fake login endpoint accepting one email/password pair.
type loginAPI struct {
	srv   *httptest.Server
	calls atomic.Int64
}

func newLoginAPI(t *testing.T, email, password, token string) *loginAPI {
	t.Helper()

	api := &loginAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		if req.Email != email || req.Password != password {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"message":     "invalid email or password",
				"status_code": http.StatusUnauthorized,
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"user_id": "user-1",
				"email":   email,
				"token":   map[string]any{"access_token": token},
			},
			"message":     "login successful",
			"status_code": http.StatusOK,
		})
	})
	api.srv = httptest.NewServer(mux)
	t.Cleanup(api.srv.Close)
	return api
}

func (a *loginAPI) url() string {
	return a.srv.URL + "/v1/auth/login"
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig(loginURL string) Config {
	cfg := DefaultConfig()
	if loginURL != "" {
		cfg.Login.URL = loginURL
	}
	cfg.Metrics.Enabled = true
	return cfg
}

func buildEngine(t *testing.T, cfg Config, tokens storage.TokenStorage) *Engine {
	t.Helper()

	e, err := New().WithConfig(cfg).WithStorage(tokens).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func persist(t *testing.T, s storage.TokenStorage, token string) {
	t.Helper()
	if err := s.Set(context.Background(), storage.DefaultKey, token); err != nil {
		t.Fatalf("persist token failed: %v", err)
	}
}

type failingStorage struct {
	getErr    error
	deleteErr error
	inner     *storage.Memory
}

func newFailingStorage() *failingStorage {
	return &failingStorage{inner: storage.NewMemory()}
}

func (f *failingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.inner.Get(ctx, key)
}

func (f *failingStorage) Set(ctx context.Context, key, value string) error {
	return f.inner.Set(ctx, key, value)
}

func (f *failingStorage) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.inner.Delete(ctx, key)
}

type recordingLogger struct {
	warns atomic.Int64
	infos atomic.Int64
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  { l.infos.Add(1) }
func (l *recordingLogger) Warn(string, ...any)  { l.warns.Add(1) }
func (l *recordingLogger) Error(string, ...any) { l.warns.Add(1) }
