package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ranchdesk/internal/contract/models"
	dErrors "ranchdesk/pkg/domain-errors"
	"ranchdesk/pkg/platform/audit"
	"ranchdesk/pkg/platform/middleware/metadata"
	"ranchdesk/pkg/platform/sentinel"
	"ranchdesk/pkg/requestcontext"
)

// Validate classifies the contract's signature state and records the check
// as a CONTRACT_VERIFIED audit entry. It never modifies the contract.
//
// A missing signed artifact is reported as TAMPERED since its content can no
// longer be proven. Other read failures are returned as errors with no audit
// entry so the caller can retry.
func (s *Service) Validate(ctx context.Context, c *models.Contract) (models.ValidationResult, error) {
	if c == nil {
		return models.ValidationResult{}, dErrors.New(dErrors.CodeInvalidInput, "contract is required")
	}
	ctx, span := tracer.Start(ctx, "contract.Validate",
		trace.WithAttributes(attribute.String("contract_id", c.ID.String())))
	defer span.End()

	result := models.ValidationResult{CheckedAt: s.clock()}
	meta := map[string]string{}

	if !c.HasSignedArtifact() {
		result.Status = models.ValidationUnsigned
		result.CalculatedHash = c.Hash
		if s.unsignedRecheck && c.Path != "" {
			if err := s.recheckUnsigned(ctx, c, meta); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "artifact read failed")
				return models.ValidationResult{}, err
			}
		}
	} else {
		data, err := s.artifacts.Get(ctx, c.SignedPath)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			result.Status = models.ValidationTampered
			meta["artifact_missing"] = "true"
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, "artifact read failed")
			return models.ValidationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read signed artifact")
		default:
			result.CalculatedHash = hashOf(data)
			result.Status = s.classifySigned(c, result)
		}
	}

	span.SetAttributes(attribute.String("status", string(result.Status)))
	s.metrics.IncrementValidation(string(result.Status))

	meta["status"] = string(result.Status)
	meta["calculated_hash"] = result.CalculatedHash
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		meta["client"] = metadata.SummarizeUserAgent(ua)
	}
	if actor := requestcontext.Actor(ctx); actor != "" {
		meta["actor"] = actor
	}

	if _, err := s.audit.Log(ctx, audit.ContractEntity(c.ID), audit.ActionContractVerified, meta); err != nil {
		return result, s.auditIncomplete(ctx, err, c, audit.ActionContractVerified)
	}
	return result, nil
}

func (s *Service) classifySigned(c *models.Contract, result models.ValidationResult) models.ValidationStatus {
	if !strings.EqualFold(result.CalculatedHash, c.SignedHash) {
		return models.ValidationTampered
	}
	if c.SignedAt == nil || s.expiry.Expired(*c.SignedAt, result.CheckedAt) {
		return models.ValidationExpired
	}
	return models.ValidationValid
}

// recheckUnsigned compares the unsigned artifact with the stored hash. The
// classification stays UNSIGNED; a mismatch only shows up in the audit entry.
func (s *Service) recheckUnsigned(ctx context.Context, c *models.Contract, meta map[string]string) error {
	data, err := s.artifacts.Get(ctx, c.Path)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		meta["unsigned_mismatch"] = "true"
		meta["artifact_missing"] = "true"
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read unsigned artifact")
	case hashOf(data) != c.Hash:
		meta["unsigned_mismatch"] = "true"
	}
	return nil
}
