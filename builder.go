package authstate

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authstate/state"
	"github.com/MrEthical07/authstate/storage"
	"github.com/redis/go-redis/v9"
)

// Builder collects Engine dependencies. It performs no I/O until Build.
//
// A Builder can be used once.
type Builder struct {
	config Config

	storage    storage.TokenStorage
	redis      redis.UniversalClient
	container  *state.Container
	httpClient *http.Client
	logger     Logger
	auditSink  AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStorage sets the token storage explicitly; Config.Storage.Backend is
// then ignored. The Engine does not close a storage it did not open.
func (b *Builder) WithStorage(s storage.TokenStorage) *Builder {
	b.storage = s
	return b
}

// WithRedis stores tokens in Redis through an existing client, using
// Config.Storage.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithContainer shares an existing state container instead of creating one.
func (b *Builder) WithContainer(c *state.Container) *Builder {
	b.container = c
	return b
}

// WithHTTPClient sets the client used by the login flow.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

func (b *Builder) WithLogger(l Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build is BuildContext with a background context.
func (b *Builder) Build() (*Engine, error) {
	return b.BuildContext(context.Background())
}

// BuildContext validates the configuration, opens the storage backend when
// none was injected and wires the Engine. The Engine is not mounted yet; call
// Engine.Mount to run the first reconciliation.
func (b *Builder) BuildContext(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, ErrBuilderReused
	}

	cfg := b.config
	if b.storage != nil || b.redis != nil {
		// An injected backend satisfies the storage section on its own.
		cfg.Storage.Backend = StorageMemory
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Storage = b.config.Storage

	// -------- STORAGE --------
	tokens := b.storage
	closeStorage := func() error { return nil }
	switch {
	case tokens != nil:
	case b.redis != nil:
		tokens = storage.NewRedisStorage(b.redis, cfg.Storage.RedisPrefix)
	default:
		var err error
		tokens, closeStorage, err = OpenStorage(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
	}

	// -------- STATE --------
	container := b.container
	if container == nil {
		container = state.New(state.State{})
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Login.Timeout}
	}

	logger := b.logger
	if logger == nil {
		logger = nopLogger{}
	}

	e := &Engine{
		config:       cfg,
		container:    container,
		storage:      tokens,
		closeStorage: closeStorage,
		httpClient:   httpClient,
		logger:       logger,
		metrics:      NewMetrics(cfg.Metrics),
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
	}
	e.reconciler = NewReconciler(container, tokens, ReconcilerOptions{
		Key:       cfg.Storage.Key,
		Logger:    logger,
		Metrics:   e.metrics,
		OnRestore: e.auditRestore,
	})
	e.flows = e.buildFlows()

	b.built = true
	return e, nil
}
