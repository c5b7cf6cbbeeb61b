// Package service implements the contract lifecycle: generation from a
// booking, signature recording and signature validation.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"ranchdesk/internal/contract/artifact"
	"ranchdesk/internal/contract/metrics"
	"ranchdesk/internal/contract/models"
	"ranchdesk/internal/contract/render"
	id "ranchdesk/pkg/domain"
	"ranchdesk/pkg/platform/audit"
)

var tracer = otel.Tracer("ranchdesk/internal/contract/service")

// DefaultGenerateAttempts bounds retries after losing a create race.
const DefaultGenerateAttempts = 3

type ContractStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error)
	FindByBookingID(ctx context.Context, bookingID id.BookingID) (*models.Contract, error)
	FindByBookingIDForUpdate(ctx context.Context, bookingID id.BookingID) (*models.Contract, error)
	Create(ctx context.Context, c *models.Contract) error
	UpdateArtifact(ctx context.Context, c *models.Contract) error
	MarkSigned(ctx context.Context, c *models.Contract) error
}

type AuditLog interface {
	Log(ctx context.Context, entity audit.Entity, action audit.Action, metadata map[string]string) (audit.Entry, error)
	FindForEntityByActions(ctx context.Context, entityType audit.EntityType, entityID string, actions []audit.Action) ([]audit.Entry, error)
}

// Service owns every write to contracts and their audit trail.
type Service struct {
	contracts       ContractStore
	artifacts       artifact.Store
	audit           AuditLog
	renderer        render.Renderer
	expiry          models.ExpiryPolicy
	unsignedRecheck bool
	maxAttempts     int
	logger          *slog.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithRenderer(r render.Renderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// WithExpiryPolicy sets the signature validity policy. The default never
// expires a signature.
func WithExpiryPolicy(p models.ExpiryPolicy) Option {
	return func(s *Service) {
		if p != nil {
			s.expiry = p
		}
	}
}

// WithUnsignedRecheck makes validation of unsigned contracts re-read the
// unsigned artifact and flag a hash mismatch in the audit metadata.
func WithUnsignedRecheck(enabled bool) Option {
	return func(s *Service) {
		s.unsignedRecheck = enabled
	}
}

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(contracts ContractStore, artifacts artifact.Store, auditLog AuditLog, opts ...Option) *Service {
	s := &Service{
		contracts:   contracts,
		artifacts:   artifacts,
		audit:       auditLog,
		renderer:    render.NewTextRenderer(),
		expiry:      models.NoExpiry{},
		maxAttempts: DefaultGenerateAttempts,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
