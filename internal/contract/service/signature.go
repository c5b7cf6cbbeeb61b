package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ranchdesk/internal/contract/models"
	id "ranchdesk/pkg/domain"
	dErrors "ranchdesk/pkg/domain-errors"
	"ranchdesk/pkg/platform/audit"
	"ranchdesk/pkg/platform/sentinel"
)

// RecordSignature stores the signer's report and moves the contract to
// SIGNED. The signed fields are write-once; a second report fails with
// CodeConflict and leaves the first one in place.
func (s *Service) RecordSignature(ctx context.Context, contractID id.ContractID, signed models.SignedArtifact) (*models.Contract, error) {
	ctx, span := tracer.Start(ctx, "contract.RecordSignature",
		trace.WithAttributes(attribute.String("contract_id", contractID.String())))
	defer span.End()

	if err := signed.Validate(); err != nil {
		return nil, err
	}

	var c *models.Contract
	err := s.contracts.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.contracts.FindByID(txCtx, contractID)
		if err != nil {
			return err
		}
		if err := current.ApplySignature(signed, s.clock()); err != nil {
			return err
		}
		if err := s.contracts.MarkSigned(txCtx, current); err != nil {
			return err
		}
		c = current
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "contract not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, dErrors.New(dErrors.CodeConflict, "contract is already signed")
	case dErrors.HasCode(err, dErrors.CodeConflict), dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return nil, err
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record signature")
	}

	_, err = s.audit.Log(ctx, audit.ContractEntity(c.ID), audit.ActionContractSigned, map[string]string{
		"signed_path": c.SignedPath,
		"signed_hash": c.SignedHash,
		"signed_at":   c.SignedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return c, s.auditIncomplete(ctx, err, c, audit.ActionContractSigned)
	}
	return c, nil
}
