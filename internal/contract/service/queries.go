package service

import (
	"context"
	"errors"
	"mime"
	"path"

	"ranchdesk/internal/contract/models"
	"ranchdesk/internal/contract/render"
	id "ranchdesk/pkg/domain"
	dErrors "ranchdesk/pkg/domain-errors"
	"ranchdesk/pkg/platform/audit"
	"ranchdesk/pkg/platform/sentinel"
)

// Download is an artifact ready to be served.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

func (s *Service) GetContract(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	c, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contract not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contract")
	}
	return c, nil
}

// FindByBooking returns the booking's contract, or nil when none exists yet.
func (s *Service) FindByBooking(ctx context.Context, bookingID id.BookingID) (*models.Contract, error) {
	c, err := s.contracts.FindByBookingID(ctx, bookingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contract")
	}
	return c, nil
}

// Verify loads the contract and validates it.
func (s *Service) Verify(ctx context.Context, contractID id.ContractID) (*models.Contract, models.ValidationResult, error) {
	c, err := s.GetContract(ctx, contractID)
	if err != nil {
		return nil, models.ValidationResult{}, err
	}
	result, err := s.Validate(ctx, c)
	return c, result, err
}

// DownloadUnsigned returns the unsigned artifact bytes.
func (s *Service) DownloadUnsigned(ctx context.Context, contractID id.ContractID) (*Download, error) {
	c, err := s.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	data, err := s.artifacts.Get(ctx, c.Path)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contract artifact not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read contract artifact")
	}
	ext := path.Ext(c.Path)
	contentType := mime.TypeByExtension(ext)
	if ext == ".txt" || contentType == "" {
		contentType = render.ContentTypeText
	}
	return &Download{
		Filename:    "contract-" + c.ID.String() + ext,
		ContentType: contentType,
		Body:        data,
	}, nil
}

// AuditTrail returns the contract's audit entries in trail order, optionally
// restricted to actions.
func (s *Service) AuditTrail(ctx context.Context, contractID id.ContractID, actions []audit.Action) ([]audit.Entry, error) {
	if _, err := s.GetContract(ctx, contractID); err != nil {
		return nil, err
	}
	entries, err := s.audit.FindForEntityByActions(ctx, audit.EntityContract, contractID.String(), actions)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit trail")
	}
	return entries, nil
}
