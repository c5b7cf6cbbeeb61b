// Package worker turns contract requests into generated contracts.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	bookingModels "ranchdesk/internal/booking/models"
	"ranchdesk/internal/contract/models"
	id "ranchdesk/pkg/domain"
	dErrors "ranchdesk/pkg/domain-errors"
	"ranchdesk/pkg/platform/sentinel"
)

var tracer = otel.Tracer("ranchdesk/internal/contract/worker")

//go:generate mockgen -source=worker.go -destination=mocks/mocks.go -package=mocks BookingReader,ContractGenerator

// BookingReader loads the booking snapshot. A missing booking is reported as
// sentinel.ErrNotFound.
type BookingReader interface {
	FindBookingByID(ctx context.Context, bookingID id.BookingID) (*bookingModels.Booking, error)
}

// ContractGenerator is the part of the contract service the worker drives.
type ContractGenerator interface {
	FindByBooking(ctx context.Context, bookingID id.BookingID) (*models.Contract, error)
	GenerateWith(ctx context.Context, b bookingModels.Booking, existing *models.Contract) (*models.Contract, error)
}

// Worker handles one contract request at a time. It does not retry; a
// returned error leaves redelivery to the queue.
type Worker struct {
	bookings  BookingReader
	contracts ContractGenerator
	logger    *slog.Logger
}

func New(bookings BookingReader, contracts ContractGenerator, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{bookings: bookings, contracts: contracts, logger: logger}
}

// Handle processes one request. Missing and ineligible bookings are skipped
// and acknowledged. A contract generated without its audit entry is also
// acknowledged; regenerating it would not bring the entry back.
func (w *Worker) Handle(ctx context.Context, msg Message) error {
	ctx, span := tracer.Start(ctx, "contract.worker.Handle",
		trace.WithAttributes(
			attribute.String("booking_id", msg.BookingID.String()),
			attribute.String("trigger", msg.Trigger),
		))
	defer span.End()

	b, err := w.bookings.FindBookingByID(ctx, msg.BookingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		w.skip(ctx, msg, "booking_not_found")
		return nil
	}
	if err != nil {
		return w.fail(span, fmt.Errorf("load booking %s: %w", msg.BookingID, err))
	}
	if !b.IsContractEligible() {
		w.skip(ctx, msg, "booking_not_eligible", "booking_status", string(b.Status))
		return nil
	}

	existing, err := w.contracts.FindByBooking(ctx, b.ID)
	if err != nil {
		return w.fail(span, fmt.Errorf("load contract for booking %s: %w", b.ID, err))
	}

	c, err := w.contracts.GenerateWith(ctx, *b, existing)
	if err != nil {
		if c != nil && dErrors.HasCode(err, dErrors.CodeAuditIncomplete) {
			w.logger.WarnContext(ctx, "contract generated without audit entry",
				"booking_id", b.ID.String(),
				"contract_id", c.ID.String(),
				"error", err,
			)
			w.handled(ctx, msg, c)
			return nil
		}
		return w.fail(span, fmt.Errorf("generate contract for booking %s: %w", b.ID, err))
	}
	w.handled(ctx, msg, c)
	return nil
}

func (w *Worker) skip(ctx context.Context, msg Message, reason string, extra ...any) {
	args := append([]any{
		"booking_id", msg.BookingID.String(),
		"trigger", msg.Trigger,
		"reason", reason,
	}, extra...)
	w.logger.InfoContext(ctx, "contract request skipped", args...)
}

func (w *Worker) handled(ctx context.Context, msg Message, c *models.Contract) {
	status := "generated"
	if c.IsSigned() {
		status = "signed"
	}
	w.logger.InfoContext(ctx, "contract request handled",
		"booking_id", msg.BookingID.String(),
		"trigger", msg.Trigger,
		"contract_id", c.ID.String(),
		"contract_status", status,
	)
}

func (w *Worker) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "contract request failed")
	return err
}
