//go:build integration
// +build integration

package test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/authstate"
	"github.com/MrEthical07/authstate/jwt"
	"github.com/MrEthical07/authstate/loginserver"
	"github.com/MrEthical07/authstate/password"
	"github.com/MrEthical07/authstate/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-horse"
)

// newLoginEndpoint starts a loginserver with one user and returns its login URL.
func newLoginEndpoint(t *testing.T) (string, *jwt.Manager) {
	t.Helper()

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:        time.Hour,
		PrivateKey: []byte("integration-secret-0123456789abcd"),
		Issuer:     "integration",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	srv, err := loginserver.New(loginserver.Config{
		Tokens: tokens,
		Hash:   password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16},
	})
	if err != nil {
		t.Fatalf("loginserver.New failed: %v", err)
	}
	if err := srv.AddUser("user-1", testEmail, testPassword); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL + loginserver.LoginPath, tokens
}

// backend describes one storage configuration shared by successive engines.
type backend struct {
	name    string
	storage authstate.StorageConfig
}

func backends(t *testing.T) []backend {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	dir := t.TempDir()
	return []backend{
		{"file", authstate.StorageConfig{Backend: authstate.StorageFile, Key: storage.DefaultKey, FilePath: filepath.Join(dir, "credentials.toml")}},
		{"sqlite", authstate.StorageConfig{Backend: authstate.StorageSQLite, Key: storage.DefaultKey, SQLitePath: filepath.Join(dir, "tokens.db")}},
		{"redis", authstate.StorageConfig{Backend: authstate.StorageRedis, Key: storage.DefaultKey, RedisAddr: mr.Addr(), RedisPrefix: "it"}},
	}
}

// openEngine builds and mounts an engine, simulating one process start.
func openEngine(t *testing.T, loginURL string, sc authstate.StorageConfig) *authstate.Engine {
	t.Helper()

	cfg := authstate.DefaultConfig()
	cfg.Login.URL = loginURL
	cfg.Storage = sc
	cfg.Metrics.Enabled = true

	e, err := authstate.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	e.Mount(context.Background())
	return e
}

func newRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
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
