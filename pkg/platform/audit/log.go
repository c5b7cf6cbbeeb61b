package audit

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	id "ranchdesk/pkg/domain"
	"ranchdesk/pkg/platform/circuit"
)

// Logger is the only writer of audit entries. Each Log call performs one
// primary append and one append per configured mirror. The primary outcome
// decides the returned error; mirror failures are reported on their own
// (warn log and metric) and never change it.
type Logger struct {
	store   Store
	mirrors []mirrorSlot
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

type mirrorSlot struct {
	mirror  Mirror
	breaker *circuit.Breaker
}

// Option configures the Logger.
type Option func(*Logger)

// WithLogger sets a logger for failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(l *Logger) {
		l.metrics = m
	}
}

// WithMirror adds a secondary append target guarded by its own breaker.
func WithMirror(m Mirror, breakerOpts ...circuit.Option) Option {
	return func(l *Logger) {
		l.mirrors = append(l.mirrors, mirrorSlot{
			mirror:  m,
			breaker: circuit.New("audit_mirror_"+m.Name(), breakerOpts...),
		})
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLogger(store Store, opts ...Option) *Logger {
	l := &Logger{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log appends one entry for entity. The returned entry carries the ID, Seq,
// and Timestamp assigned during the append.
func (l *Logger) Log(ctx context.Context, entity Entity, action Action, metadata map[string]string) (Entry, error) {
	start := time.Now()
	entry := Entry{
		ID:         id.NewAuditEntryID(),
		EntityType: entity.Type,
		EntityID:   entity.ID,
		Action:     action,
		Timestamp:  l.now().UTC().Truncate(time.Microsecond),
		Metadata:   maps.Clone(metadata),
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]string{}
	}

	primaryErr := l.store.Append(ctx, &entry)
	if primaryErr != nil {
		l.metrics.incPrimaryFailures()
		l.logger.ErrorContext(ctx, "audit append failed",
			"entity_type", entity.Type,
			"entity_id", entity.ID,
			"action", action,
			"error", primaryErr,
		)
	} else {
		l.metrics.observeAppend(action, time.Since(start).Seconds())
	}

	for _, slot := range l.mirrors {
		l.appendMirror(ctx, slot, entry)
	}

	if primaryErr != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", primaryErr)
	}
	return entry.Clone(), nil
}

func (l *Logger) appendMirror(ctx context.Context, slot mirrorSlot, entry Entry) {
	name := slot.mirror.Name()
	if !slot.breaker.Allow() {
		l.metrics.incMirrorSkipped(name)
		return
	}
	if err := slot.mirror.Append(ctx, entry.Clone()); err != nil {
		_, change := slot.breaker.RecordFailure()
		l.metrics.incMirrorFailures(name)
		l.logger.WarnContext(ctx, "audit mirror append failed",
			"mirror", name,
			"entry_id", entry.ID.String(),
			"action", entry.Action,
			"error", err,
		)
		if change.Opened {
			l.logger.WarnContext(ctx, "audit mirror circuit opened", "mirror", name)
		}
		return
	}
	if _, change := slot.breaker.RecordSuccess(); change.Closed {
		l.logger.InfoContext(ctx, "audit mirror circuit closed", "mirror", name)
	}
}

// FindForEntity returns the full trail for an entity in trail order.
func (l *Logger) FindForEntity(ctx context.Context, entityType EntityType, entityID string) ([]Entry, error) {
	return l.store.FindForEntity(ctx, entityType, entityID)
}

// FindForEntityByActions returns the trail restricted to the given actions.
// An empty action list is equivalent to FindForEntity.
func (l *Logger) FindForEntityByActions(ctx context.Context, entityType EntityType, entityID string, actions []Action) ([]Entry, error) {
	if len(actions) == 0 {
		return l.store.FindForEntity(ctx, entityType, entityID)
	}
	return l.store.FindForEntityByActions(ctx, entityType, entityID, actions)
}

// FindLatestForEntity returns the most recent entry, or nil when none exists.
func (l *Logger) FindLatestForEntity(ctx context.Context, entityType EntityType, entityID string) (*Entry, error) {
	return l.store.FindLatestForEntity(ctx, entityType, entityID)
}
