package authstate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authstate/state"
	"github.com/MrEthical07/authstate/storage"
)

func TestEngineLoginPersistsAndAuthenticates(t *testing.T) {
	api := newLoginAPI(t, "alice@example.com", "correct-horse", "tok-alice")
	tokens := storage.NewMemory()
	e := buildEngine(t, testConfig(api.url()), tokens)
	e.Mount(context.Background())

	view, err := e.Login(context.Background(), "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !view.IsAuthenticated || view.Token != "tok-alice" || view.IsLoading || view.Error != "" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.User == nil || view.User.UserID != "user-1" || view.User.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", view.User)
	}
	if v, ok, _ := tokens.Get(context.Background(), storage.DefaultKey); !ok || v != "tok-alice" {
		t.Fatalf("token not persisted: %q ok=%v", v, ok)
	}
	if got := e.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("expected login success metric 1, got %d", got)
	}
}

func TestEngineLoginFailureSetsError(t *testing.T) {
	api := newLoginAPI(t, "alice@example.com", "correct-horse", "tok")
	e := buildEngine(t, testConfig(api.url()), storage.NewMemory())

	view, err := e.Login(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if err.Error() != "invalid email or password" {
		t.Fatalf("expected server message, got %q", err.Error())
	}
	if view.IsAuthenticated || view.Error != "invalid email or password" || view.IsLoading {
		t.Fatalf("unexpected view: %+v", view)
	}
	if got := e.MetricsSnapshot().Counters[MetricLoginFailure]; got != 1 {
		t.Fatalf("expected login failure metric 1, got %d", got)
	}
}

func TestEngineLogoutClearsStorageAndState(t *testing.T) {
	api := newLoginAPI(t, "alice@example.com", "pw", "tok")
	tokens := storage.NewMemory()
	e := buildEngine(t, testConfig(api.url()), tokens)
	e.Mount(context.Background())

	if _, err := e.Login(context.Background(), "alice@example.com", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := e.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	view := e.Auth()
	if view.IsAuthenticated || view.Token != "" || view.User != nil {
		t.Fatalf("expected logged-out view, got %+v", view)
	}
	if _, ok, _ := tokens.Get(context.Background(), storage.DefaultKey); ok {
		t.Fatal("expected persisted token removed")
	}
}

func TestEngineLogoutStorageFailureRestoresPersistedToken(t *testing.T) {
	tokens := newFailingStorage()
	persist(t, tokens.inner, "persisted")
	tokens.deleteErr = storage.ErrUnavailable

	e := buildEngine(t, testConfig(""), tokens)
	e.Mount(context.Background())

	err := e.Logout(context.Background())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if view := e.Auth(); !view.IsAuthenticated || view.Token != "persisted" {
		t.Fatalf("persisted token must keep the view authenticated, got %+v", view)
	}
}

func TestEngineReloadRestoresSession(t *testing.T) {
	api := newLoginAPI(t, "alice@example.com", "pw", "tok-reload")
	tokens := storage.NewMemory()

	first := buildEngine(t, testConfig(api.url()), tokens)
	first.Mount(context.Background())
	if _, err := first.Login(context.Background(), "alice@example.com", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	_ = first.Close()

	second := buildEngine(t, testConfig(api.url()), tokens)
	if second.Auth().IsAuthenticated {
		t.Fatal("fresh engine must start unauthenticated before mount")
	}
	view := second.Mount(context.Background())
	if !view.IsAuthenticated || view.Token != "tok-reload" {
		t.Fatalf("expected restored session, got %+v", view)
	}
	if view.User != nil {
		t.Fatalf("reconcile must not invent a user, got %+v", view.User)
	}
}

func TestEngineRedisBackedReload(t *testing.T) {
	api := newLoginAPI(t, "alice@example.com", "pw", "tok-redis")
	mr, rdb := newTestRedis(t)

	first, err := New().WithConfig(testConfig(api.url())).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := first.Login(context.Background(), "alice@example.com", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	_ = first.Close()

	if got, _ := mr.Get("authstate:token"); got != "tok-redis" {
		t.Fatalf("expected token in redis, got %q", got)
	}

	second, err := New().WithConfig(testConfig(api.url())).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer second.Close()
	if view := second.Mount(context.Background()); view.Token != "tok-redis" {
		t.Fatalf("expected restored token, got %+v", view)
	}
}

func TestEngineSharedContainer(t *testing.T) {
	c := state.New(state.State{})
	tokens := storage.NewMemory()
	persist(t, tokens, "shared")

	e, err := New().WithStorage(tokens).WithContainer(c).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	e.Mount(context.Background())
	if e.State() != c || c.Get().Token != "shared" {
		t.Fatalf("expected engine to reconcile the injected container, got %+v", c.Get())
	}
}

func TestEngineAuditEvents(t *testing.T) {
	api := newLoginAPI(t, "alice@example.com", "pw", "tok")
	sink := NewChannelSink(16)
	cfg := testConfig(api.url())
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false

	tokens := storage.NewMemory()
	persist(t, tokens, "old")
	e, err := New().WithConfig(cfg).WithStorage(tokens).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	e.Mount(context.Background())
	_ = e.Logout(context.Background())
	_, _ = e.Login(context.Background(), "alice@example.com", "bad")
	_, _ = e.Login(context.Background(), "alice@example.com", "pw")
	_ = e.Close()

	want := []struct {
		typ     string
		success bool
		code    string
	}{
		{auditEventReconcileRestore, true, ""},
		{auditEventLogout, true, ""},
		{auditEventLoginFailure, false, string(auditErrInvalidCredentials)},
		{auditEventLoginSuccess, true, ""},
	}

	for i, w := range want {
		select {
		case ev := <-sink.Events():
			if ev.EventType != w.typ || ev.Success != w.success || ev.Error != w.code {
				t.Fatalf("event %d: expected %s/%v/%q, got %+v", i, w.typ, w.success, w.code, ev)
			}
			if ev.ID == "" || ev.Timestamp.IsZero() {
				t.Fatalf("event %d missing id or timestamp: %+v", i, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d (%s)", i, w.typ)
		}
	}
}

func TestEngineNilSafe(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Logout(context.Background()); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if e.Auth().IsAuthenticated || e.Reconcile(context.Background()) || e.Close() != nil {
		t.Fatal("nil engine must be inert")
	}
}

func TestBuilderRejectsReuseAndBadConfig(t *testing.T) {
	b := New().WithStorage(storage.NewMemory())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); !errors.Is(err, ErrBuilderReused) {
		t.Fatalf("expected ErrBuilderReused, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.Storage.Backend = "etcd"
	if _, err := New().WithConfig(cfg).Build(); !errors.Is(err, ErrUnknownStorageBackend) {
		t.Fatalf("expected ErrUnknownStorageBackend, got %v", err)
	}
}

func TestBuilderOpensConfiguredBackends(t *testing.T) {
	mr, _ := newTestRedis(t)

	cases := map[string]StorageConfig{
		"file":   {Backend: StorageFile, Key: "token", FilePath: t.TempDir() + "/creds.toml"},
		"sqlite": {Backend: StorageSQLite, Key: "token", SQLitePath: t.TempDir() + "/tokens.db"},
		"redis":  {Backend: StorageRedis, Key: "token", RedisAddr: mr.Addr(), RedisPrefix: "it"},
	}
	for name, sc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Storage = sc

			e, err := New().WithConfig(cfg).Build()
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if err := e.storage.Set(context.Background(), "token", "persisted"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if view := e.Mount(context.Background()); view.Token != "persisted" {
				t.Fatalf("expected restored token, got %+v", view)
			}
			if err := e.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if err := e.Close(); err != nil {
				t.Fatalf("second Close failed: %v", err)
			}
		})
	}
}

func TestOpenStorageRedisUnavailable(t *testing.T) {
	_, _, err := OpenStorage(context.Background(), StorageConfig{Backend: StorageRedis, RedisAddr: "127.0.0.1:1"})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

// pausingStorage holds the next armed Get after it has read the token, until
// release is closed.
type pausingStorage struct {
	inner   *storage.Memory
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
	deleted chan struct{}
	delOnce sync.Once
}

func newPausingStorage() *pausingStorage {
	return &pausingStorage{
		inner:   storage.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
		deleted: make(chan struct{}),
	}
}

func (p *pausingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := p.inner.Get(ctx, key)
	if p.armed.CompareAndSwap(true, false) {
		close(p.entered)
		<-p.release
	}
	return v, ok, err
}

func (p *pausingStorage) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, key, value)
}

func (p *pausingStorage) Delete(ctx context.Context, key string) error {
	err := p.inner.Delete(ctx, key)
	p.delOnce.Do(func() { close(p.deleted) })
	return err
}

func TestLogoutDuringReconcileKeepsTokenCleared(t *testing.T) {
	tokens := newPausingStorage()
	persist(t, tokens.inner, "T")

	e := buildEngine(t, testConfig(""), tokens)
	if view := e.Mount(context.Background()); view.Token != "T" {
		t.Fatalf("expected restored token, got %+v", view)
	}

	// Another writer drops the in-memory token without touching storage, so
	// the next pass has something to restore.
	e.Unmount()
	e.State().Patch(state.Patch{Token: state.Set("")})

	tokens.armed.Store(true)
	reconciled := make(chan struct{})
	go func() {
		e.Reconcile(context.Background())
		close(reconciled)
	}()

	select {
	case <-tokens.entered:
	case <-reconciled:
	case <-time.After(2 * time.Second):
		t.Fatal("reconcile never reached storage")
	}

	logoutErr := make(chan error, 1)
	go func() { logoutErr <- e.Logout(context.Background()) }()

	// Logout may be blocked behind the pass; give it a chance to delete first.
	select {
	case <-tokens.deleted:
	case <-time.After(100 * time.Millisecond):
	}
	close(tokens.release)

	select {
	case err := <-logoutErr:
		if err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("logout did not finish")
	}
	<-reconciled

	if _, ok, _ := tokens.inner.Get(context.Background(), storage.DefaultKey); ok {
		t.Fatal("expected persisted token removed")
	}
	if view := e.Auth(); view.IsAuthenticated || view.Token != "" {
		t.Fatalf("logged-out token came back: %+v", view)
	}
}

func TestLogoutDuringMountedReconcileKeepsTokenCleared(t *testing.T) {
	for i := 0; i < 50; i++ {
		tokens := storage.NewMemory()
		persist(t, tokens, "T")
		e := buildEngine(t, testConfig(""), tokens)
		e.Mount(context.Background())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.Reconcile(context.Background())
		}()
		go func() {
			defer wg.Done()
			_ = e.Logout(context.Background())
		}()
		wg.Wait()

		if view := e.Auth(); view.IsAuthenticated {
			t.Fatalf("iteration %d: logged-out token came back: %+v", i, view)
		}
	}
}
