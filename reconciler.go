package authstate

import (
	"context"
	"sync"

	"github.com/MrEthical07/authstate/internal/flows"
	"github.com/MrEthical07/authstate/state"
	"github.com/MrEthical07/authstate/storage"
)

// ReconcilerOptions configures a Reconciler. The zero value is usable.
type ReconcilerOptions struct {
	// Key is the storage key of the persisted token. Defaults to "token".
	Key     string
	Logger  Logger
	Metrics *Metrics
	// OnRestore runs after a pass restored a persisted token.
	OnRestore func(ctx context.Context)
}

// Reconciler keeps a state container consistent with the persisted token.
//
// Runs are serialized: a trigger that arrives while a pass is running is
// coalesced into one more pass on the running goroutine, so two passes never
// overlap and a pass started from inside a state listener cannot deadlock.
//
// Each pass checks the state, reads the persisted token and applies it inside
// one Container.Update, so a logout that clears the state and the storage
// cannot be overwritten by a pass that read the token first.
type Reconciler struct {
	container *state.Container
	flows     flows.Service
	opts      ReconcilerOptions

	mu      sync.Mutex
	running bool
	pending bool
	cancel  func()
}

// NewReconciler wires a Reconciler between container and tokens.
func NewReconciler(container *state.Container, tokens storage.TokenStorage, opts ReconcilerOptions) *Reconciler {
	if opts.Key == "" {
		opts.Key = storage.DefaultKey
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	key := opts.Key

	return &Reconciler{
		container: container,
		opts:      opts,
		flows: flows.New(flows.Deps{
			Reconcile: flows.ReconcileDeps{
				Update: container.Update,
				ReadToken: func(ctx context.Context) (string, bool, error) {
					return tokens.Get(ctx, key)
				},
			},
		}),
	}
}

// Mount runs one reconciliation and subscribes the reconciler to changes of
// the IsAuthenticated field. Calling Mount again only re-runs the pass.
//
// Re-runs triggered by the subscription use a context detached from ctx's
// cancellation, because they outlive the Mount call.
func (r *Reconciler) Mount(ctx context.Context) View {
	r.mu.Lock()
	if r.cancel == nil {
		detached := context.WithoutCancel(ctx)
		r.cancel = r.container.SubscribeField(state.FieldAuthenticated, func(prev, next state.State) {
			r.trigger(detached)
		})
	}
	r.mu.Unlock()

	r.trigger(ctx)
	return r.View()
}

// Unmount stops reacting to state changes.
func (r *Reconciler) Unmount() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Mounted reports whether the reconciler is subscribed to the container.
func (r *Reconciler) Mounted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Reconcile runs a pass now and reports whether a pass run by this call
// restored the persisted token. If another pass is in flight the request is
// folded into it and Reconcile returns false.
func (r *Reconciler) Reconcile(ctx context.Context) bool {
	return r.trigger(ctx)
}

// View returns the derived consumer view of the current state.
func (r *Reconciler) View() View {
	return ViewOf(r.container.Get())
}

func (r *Reconciler) trigger(ctx context.Context) bool {
	r.mu.Lock()
	r.pending = true
	if r.running {
		r.mu.Unlock()
		return false
	}
	r.running = true

	restored := false
	for r.pending {
		r.pending = false
		r.mu.Unlock()
		if r.runOnce(ctx) {
			restored = true
		}
		r.mu.Lock()
	}
	r.running = false
	r.mu.Unlock()
	return restored
}

func (r *Reconciler) runOnce(ctx context.Context) bool {
	res := r.flows.Reconcile(ctx)
	r.opts.Metrics.Inc(MetricReconcileRun)

	switch {
	case res.StorageErr != nil:
		r.opts.Metrics.Inc(MetricStorageError)
		r.opts.Logger.Warn("reconcile: token storage read failed, treating as absent: %v", res.StorageErr)
	case res.Restored:
		r.opts.Metrics.Inc(MetricReconcileRestored)
		r.opts.Logger.Info("reconcile: restored persisted token under key %q", r.opts.Key)
		if r.opts.OnRestore != nil {
			r.opts.OnRestore(ctx)
		}
	case res.Skipped:
		r.opts.Logger.Debug("reconcile: state already authenticated")
	}
	return res.Restored
}
