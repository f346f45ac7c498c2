// Package settings loads process settings from a resolved source, validates
// them against an optional JSON Schema and an optional semantic validator, and
// distributes them from a primary process to its workers.
//
//	value, err := settings.Initialize(ctx, settings.Options{
//	    EnvVar: "APP_SETTINGS",
//	    Schema: "settings.schema.json",
//	})
//	var ve *settings.ValidationError
//	if errors.As(err, &ve) {
//	    for _, f := range ve.Failures { ... }
//	}
package settings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/KOMKZ/go-yogan-settings/cluster"
	"github.com/KOMKZ/go-yogan-settings/errcode"
	"github.com/KOMKZ/go-yogan-settings/ipc"
	"github.com/KOMKZ/go-yogan-settings/logger"
	"github.com/KOMKZ/go-yogan-settings/validator"
	"go.uber.org/zap"
)

// Manager owns one settings domain
type Manager struct {
	store   *Store
	logger  *logger.CtxZapLogger
	metrics *Metrics

	inProgress atomic.Bool

	respMu        sync.Mutex
	stopResponder func()
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithLogger replaces the "settings" module logger
func WithLogger(l *logger.CtxZapLogger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics enables instrumentation
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithStore shares a store, e.g. one owned by a DI container
func WithStore(s *Store) ManagerOption {
	return func(m *Manager) {
		if s != nil {
			m.store = s
		}
	}
}

// NewManager creates a manager with an empty store
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{store: NewStore()}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.GetLogger(moduleName)
	}
	return m
}

// Initialize resolves, loads and validates the settings, or obtains them from
// the primary when running as a worker. Nothing is stored unless every stage
// succeeds. Overlapping calls on one manager fail with ErrInitializeInProgress.
func (m *Manager) Initialize(ctx context.Context, opts Options) (any, error) {
	if !m.inProgress.CompareAndSwap(false, true) {
		return nil, ErrInitializeInProgress
	}
	defer m.inProgress.Store(false)

	if err := validator.Validate(opts, ErrInvalidOptions); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	role := RoleStandalone
	var cl Cluster
	if opts.MultiProcess {
		cl = opts.Cluster
		if cl == nil {
			node, err := currentNode()
			if err != nil {
				return nil, ErrTransport.Wrapf(err, "detect process role failed")
			}
			cl = node
		}
		role = RoleWorker
		if cl.IsPrimary() {
			role = RolePrimary
		}
	}

	value, err := m.initialize(ctx, role, cl, opts)
	m.metrics.recordLoad(ctx, role, err)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			m.metrics.recordValidationFailures(ctx, len(ve.Failures))
		}
		m.logger.ErrorCtx(ctx, "settings initialization failed", zap.Stringer("role", role), errcode.Field(err))
		return nil, err
	}

	m.logger.InfoCtx(ctx, "settings initialized",
		zap.Stringer("role", role),
		zap.String("source", m.store.Source()))
	return value, nil
}

func (m *Manager) initialize(ctx context.Context, role Role, cl Cluster, opts Options) (any, error) {
	if role == RoleWorker {
		ep := cl.Endpoint()
		if ep == nil {
			return nil, ErrTransport.WithMsg("worker has no channel to the primary")
		}
		value, source, err := m.requestSettings(ctx, ep, opts.RequestTimeout)
		if err != nil {
			return nil, err
		}
		m.logger.DebugCtx(ctx, "settings source resolved",
			zap.String("location", source),
			zap.String("origin", string(OriginPrimary)))
		m.store.Set(value, source)
		return value, nil
	}

	var hub ipc.Hub
	if role == RolePrimary {
		if hub = cl.Hub(); hub == nil {
			return nil, ErrTransport.WithMsg("primary has no worker hub")
		}
	}

	value, source, err := m.runPipeline(ctx, opts)
	if err != nil {
		return nil, err
	}
	m.store.Set(value, source)

	// workers are served only once the store holds validated settings
	if hub != nil {
		m.armResponder(hub, opts.OnReplyDropped)
	}
	return value, nil
}

// runPipeline: resolve, load, schema, extended validator. Each stage runs only
// after the previous one succeeded.
func (m *Manager) runPipeline(ctx context.Context, opts Options) (any, string, error) {
	src, err := resolveSource(opts)
	if err != nil {
		return nil, "", err
	}
	m.logger.DebugCtx(ctx, "settings source resolved",
		zap.String("location", src.Location),
		zap.String("origin", string(src.Origin)))

	value, location, err := loadDocument(ctx, src.Location, opts)
	if err != nil {
		return nil, "", err
	}

	if hasSchema(opts.Schema) {
		schema, err := compileSchema(opts.Schema, opts.SchemaOptions)
		if err != nil {
			return nil, "", err
		}
		if err := schema.validate(value); err != nil {
			return nil, "", err
		}
	}

	if err := runExtendedValidator(ctx, opts.ExtendedValidator, value); err != nil {
		return nil, "", err
	}
	return value, location, nil
}

// Get returns the stored settings, nil before a successful Initialize
func (m *Manager) Get() any {
	return m.store.Get()
}

// GetSource returns the stored source
func (m *Manager) GetSource() string {
	return m.store.Source()
}

// Decode copies the settings into target
func (m *Manager) Decode(target any) error {
	return m.store.Decode(target)
}

// Store exposes the underlying store
func (m *Manager) Store() *Store {
	return m.store
}

// Name identifies the manager in health reports
func (m *Manager) Name() string {
	return "settings"
}

// Check fails until settings were initialized
func (m *Manager) Check(context.Context) error {
	if !m.store.Loaded() {
		return ErrNotInitialized
	}
	return nil
}

// Close stops serving workers
func (m *Manager) Close() {
	m.respMu.Lock()
	defer m.respMu.Unlock()
	if m.stopResponder != nil {
		m.stopResponder()
		m.stopResponder = nil
	}
}

var currentNode = sync.OnceValues(func() (Cluster, error) {
	node, err := cluster.Current()
	if err != nil {
		return nil, err
	}
	return node, nil
})

var (
	defaultOnce    sync.Once
	defaultManager *Manager
)

// Default returns the process-wide manager used by the package functions
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// Initialize runs Initialize on the default manager
func Initialize(ctx context.Context, opts Options) (any, error) {
	return Default().Initialize(ctx, opts)
}

// Get returns the default manager's settings
func Get() any {
	return Default().Get()
}

// GetSource returns the default manager's source
func GetSource() string {
	return Default().GetSource()
}
