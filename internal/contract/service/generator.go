package service

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	bookingModels "ranchdesk/internal/booking/models"
	"ranchdesk/internal/contract/artifact"
	"ranchdesk/internal/contract/models"
	"ranchdesk/internal/contract/render"
	id "ranchdesk/pkg/domain"
	dErrors "ranchdesk/pkg/domain-errors"
	"ranchdesk/pkg/platform/audit"
	"ranchdesk/pkg/platform/sentinel"
)

type generation struct {
	contract    *models.Contract
	written     bool
	regenerated bool
}

// Generate renders the booking's contract and stores it. See GenerateWith.
func (s *Service) Generate(ctx context.Context, b bookingModels.Booking) (*models.Contract, error) {
	return s.GenerateWith(ctx, b, nil)
}

// GenerateWith renders the booking's contract, stores the artifact and
// creates or updates the contract row.
//
// existing is the caller's earlier read and only a hint: the row is re-read
// under lock inside the transaction, and that read decides the outcome. A
// SIGNED contract is returned unchanged with no artifact write and no audit
// entry. When the audit append fails after commit, the contract is returned
// together with a CodeAuditIncomplete error.
func (s *Service) GenerateWith(ctx context.Context, b bookingModels.Booking, existing *models.Contract) (*models.Contract, error) {
	ctx, span := tracer.Start(ctx, "contract.Generate",
		trace.WithAttributes(attribute.String("booking_id", b.ID.String())))
	defer span.End()
	start := s.now()
	defer func() { s.metrics.ObserveGenerationLatency(s.now().Sub(start)) }()

	if b.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "booking id is required")
	}
	if existing != nil && existing.BookingID != b.ID {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "existing contract belongs to another booking")
	}

	doc, err := s.renderer.Render(b)
	if err != nil {
		s.failGeneration(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeGenerationFailed, "failed to render contract")
	}
	hash := hashOf(doc.Body)

	var g generation
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		g, err = s.generateOnce(ctx, b.ID, doc, hash)
		if !isRetryable(err) || attempt == s.maxAttempts {
			break
		}
		s.metrics.IncrementRetry()
		s.logger.DebugContext(ctx, "contract write raced, retrying",
			"booking_id", b.ID.String(),
			"attempt", attempt,
		)
	}
	if err != nil {
		s.failGeneration(span, err)
		if isRetryable(err) {
			return nil, dErrors.Wrap(err, dErrors.CodeGenerationFailed, "contract write did not settle after retries")
		}
		if dErrors.HasCode(err, dErrors.CodeGenerationFailed) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeGenerationFailed, "failed to generate contract")
	}

	c := g.contract
	span.SetAttributes(attribute.String("contract_id", c.ID.String()), attribute.String("status", string(c.Status)))
	if !g.written {
		s.metrics.IncrementGeneration("signed_noop")
		return c, nil
	}
	if g.regenerated {
		s.metrics.IncrementGeneration("regenerated")
	} else {
		s.metrics.IncrementGeneration("generated")
	}

	_, err = s.audit.Log(ctx, audit.ContractEntity(c.ID), audit.ActionContractGenerated, map[string]string{
		"hash":        c.Hash,
		"path":        c.Path,
		"booking_id":  c.BookingID.String(),
		"regenerated": strconv.FormatBool(g.regenerated),
	})
	if err != nil {
		return c, s.auditIncomplete(ctx, err, c, audit.ActionContractGenerated)
	}
	return c, nil
}

// generateOnce runs one read-decide-write cycle in a single transaction.
// The artifact is stored before the row so a failed upload leaves no row,
// and keys are content-addressed so an upload never changes bytes a
// committed row already points at.
func (s *Service) generateOnce(ctx context.Context, bookingID id.BookingID, doc render.Document, hash string) (generation, error) {
	var g generation
	err := s.contracts.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.contracts.FindByBookingIDForUpdate(txCtx, bookingID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeGenerationFailed, "failed to load contract")
		}
		if current != nil && current.IsSigned() {
			g.contract = current
			return nil
		}

		now := s.clock()
		c := current
		if c == nil {
			c, err = models.NewContract(id.NewContractID(), bookingID, now)
			if err != nil {
				return err
			}
		}

		key := artifact.Key(c.ID, hash, doc.Ext)
		if err := s.artifacts.Put(txCtx, key, doc.Body, doc.ContentType); err != nil {
			return dErrors.Wrap(err, dErrors.CodeGenerationFailed, "failed to store contract artifact")
		}
		if _, err := c.ApplyArtifact(key, hash, now); err != nil {
			return err
		}

		if current == nil {
			err = s.contracts.Create(txCtx, c)
		} else {
			err = s.contracts.UpdateArtifact(txCtx, c)
		}
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeGenerationFailed, "failed to persist contract")
		}
		g = generation{contract: c, written: true, regenerated: current != nil}
		return nil
	})
	return g, err
}

// isRetryable reports a write that lost to a concurrent one (another create
// for the same booking, or a sign that landed first) or a transaction the
// store aborted transiently, such as a deadlock. A fresh read settles all of them.
func isRetryable(err error) bool {
	return errors.Is(err, sentinel.ErrConflict) ||
		errors.Is(err, sentinel.ErrInvalidState) ||
		errors.Is(err, sentinel.ErrUnavailable)
}

func (s *Service) failGeneration(span trace.Span, err error) {
	s.metrics.IncrementGeneration("failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, "generation failed")
}

func (s *Service) auditIncomplete(ctx context.Context, err error, c *models.Contract, action audit.Action) error {
	s.metrics.IncrementAuditIncomplete(string(action))
	s.logger.WarnContext(ctx, "contract audit entry not recorded",
		"contract_id", c.ID.String(),
		"action", string(action),
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeAuditIncomplete, "operation succeeded but audit entry was not recorded")
}
