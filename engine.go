package authstate

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/authstate/internal/flows"
	"github.com/MrEthical07/authstate/state"
	"github.com/MrEthical07/authstate/storage"
)

// Engine owns the shared authentication state and every writer of it.
//
// Engine methods are safe to call from multiple goroutines after Build.
type Engine struct {
	config       Config
	container    *state.Container
	storage      storage.TokenStorage
	closeStorage func() error
	httpClient   *http.Client
	reconciler   *Reconciler
	flows        flows.Service
	audit        *auditDispatcher
	metrics      *Metrics
	logger       Logger

	closeOnce sync.Once
	closeErr  error
}

func (e *Engine) buildFlows() flows.Service {
	key := e.config.Storage.Key
	return flows.New(flows.Deps{
		Login: flows.LoginDeps{
			Endpoint: e.config.Login.URL,
			Client:   e.httpClient,
			Apply:    e.container.Patch,
			PersistToken: func(ctx context.Context, token string) error {
				return e.storage.Set(ctx, key, token)
			},
		},
		Logout: flows.LogoutDeps{
			RemoveToken: func(ctx context.Context) error {
				return e.storage.Delete(ctx, key)
			},
			Snapshot: e.container.Get,
			Apply:    e.container.Patch,
		},
	})
}

// Mount runs the first reconciliation and keeps the reconciler subscribed to
// authentication flag changes until Unmount or Close.
func (e *Engine) Mount(ctx context.Context) View {
	if e == nil || e.reconciler == nil {
		return View{}
	}
	return e.reconciler.Mount(ctx)
}

// Unmount detaches the reconciler from the state container.
func (e *Engine) Unmount() {
	if e == nil || e.reconciler == nil {
		return
	}
	e.reconciler.Unmount()
}

// Reconcile runs one reconciliation pass outside the mount lifecycle.
func (e *Engine) Reconcile(ctx context.Context) bool {
	if e == nil || e.reconciler == nil {
		return false
	}
	return e.reconciler.Reconcile(ctx)
}

// Auth returns the derived consumer view of the current state.
func (e *Engine) Auth() View {
	if e == nil || e.container == nil {
		return View{}
	}
	return ViewOf(e.container.Get())
}

// State returns the shared state container for subscriptions.
func (e *Engine) State() *state.Container {
	if e == nil {
		return nil
	}
	return e.container
}

// Config returns the configuration the Engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

// Login posts credentials to the configured login endpoint. On success the
// state is authenticated and the token persisted; on failure the state is
// cleared and its Error field carries the message returned here.
//
// A token that could not be persisted is logged and counted but does not
// fail the login.
func (e *Engine) Login(ctx context.Context, email, password string) (View, error) {
	if e == nil || !e.flows.Initialized() {
		return View{}, ErrEngineNotReady
	}

	e.logger.Debug("login: attempting login for %s", email)
	start := time.Now()
	res := e.flows.Login(ctx, email, password)
	e.metrics.Observe(MetricLoginLatency, time.Since(start))

	if res.Err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.logger.Warn("login: failed for %s (status %d): %v", email, res.StatusCode, res.Err)
		e.audit.record(ctx, auditRecord{
			kind:  auditEventLoginFailure,
			email: email,
			err:   res.Err,
			meta:  map[string]string{"status_code": fmt.Sprint(res.StatusCode)},
		})
		return e.Auth(), res.Err
	}

	e.metrics.Inc(MetricLoginSuccess)
	if res.PersistErr != nil {
		e.metrics.Inc(MetricStorageError)
		e.logger.Warn("login: token not persisted: %v", res.PersistErr)
	}
	e.logger.Info("login: authenticated user %s", res.User.UserID)
	e.audit.record(ctx, auditRecord{
		kind:    auditEventLoginSuccess,
		success: true,
		userID:  res.User.UserID,
		email:   res.User.Email,
	})
	return e.Auth(), nil
}

// Logout removes the persisted token, then clears the state. The state is
// cleared even when storage fails; the storage error is returned, and a
// mounted reconciler will restore the token that is still persisted.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}

	var userID, email string
	if u := e.container.Get().User; u != nil {
		userID, email = u.UserID, u.Email
	}

	res := e.flows.Logout(ctx)
	e.metrics.Inc(MetricLogout)
	if res.StorageErr != nil {
		e.metrics.Inc(MetricStorageError)
		e.logger.Error("logout: token removal failed: %v", res.StorageErr)
	} else {
		e.logger.Info("logout: cleared authentication state")
	}
	e.audit.record(ctx, auditRecord{
		kind:    auditEventLogout,
		success: res.StorageErr == nil,
		userID:  userID,
		email:   email,
		err:     res.StorageErr,
		meta:    map[string]string{"was_authenticated": fmt.Sprint(res.WasAuthenticated)},
	})

	if res.StorageErr != nil {
		return fmt.Errorf("logout: %w", res.StorageErr)
	}
	return nil
}

// Close unmounts the reconciler, flushes audit events and releases storage
// the Engine opened itself. Later calls return the first result.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.closeOnce.Do(func() {
		e.Unmount()
		if e.audit != nil {
			e.audit.Close()
		}
		if e.closeStorage != nil {
			if err := e.closeStorage(); err != nil {
				e.closeErr = fmt.Errorf("close storage: %w", err)
			}
		}
	})
	return e.closeErr
}

func (e *Engine) auditRestore(ctx context.Context) {
	e.audit.record(ctx, auditRecord{
		kind:    auditEventReconcileRestore,
		success: true,
		meta:    map[string]string{"storage_key": e.config.Storage.Key},
	})
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the Engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}
