// Package handler exposes the admin HTTP surface for contracts.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ranchdesk/internal/contract/models"
	"ranchdesk/internal/contract/service"
	"ranchdesk/internal/contract/worker"
	id "ranchdesk/pkg/domain"
	dErrors "ranchdesk/pkg/domain-errors"
	"ranchdesk/pkg/platform/audit"
	"ranchdesk/pkg/platform/httputil"
	authmw "ranchdesk/pkg/platform/middleware/auth"
	"ranchdesk/pkg/platform/middleware/metadata"
	"ranchdesk/pkg/platform/middleware/request"
	listutil "ranchdesk/pkg/platform/strings"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,Requester

// Service defines the contract operations the admin surface needs.
type Service interface {
	Verify(ctx context.Context, contractID id.ContractID) (*models.Contract, models.ValidationResult, error)
	DownloadUnsigned(ctx context.Context, contractID id.ContractID) (*service.Download, error)
	AuditTrail(ctx context.Context, contractID id.ContractID, actions []audit.Action) ([]audit.Entry, error)
	RecordSignature(ctx context.Context, contractID id.ContractID, signed models.SignedArtifact) (*models.Contract, error)
}

// Requester enqueues a contract generation request.
type Requester interface {
	Request(ctx context.Context, msg worker.Message) error
}

// Handler serves /admin contract routes.
type Handler struct {
	contracts    Service
	requester    Requester
	jwtValidator authmw.JWTValidator
	logger       *slog.Logger
}

// New creates a new contract Handler.
func New(contracts Service, requester Requester, jwtValidator authmw.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		contracts:    contracts,
		requester:    requester,
		jwtValidator: jwtValidator,
		logger:       logger,
	}
}

// Register mounts the admin routes on r. Every route requires an admin token.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(metadata.ClientMetadata)
		admin.Use(authmw.RequireAdmin(h.jwtValidator, h.logger))
		admin.Get("/contracts/{id}/verify", h.handleVerify)
		admin.Get("/contracts/{id}/download", h.handleDownload)
		admin.Get("/contracts/{id}/audit", h.handleAuditTrail)
		admin.Post("/contracts/{id}/signature", h.handleRecordSignature)
		admin.Post("/bookings/{id}/contract", h.handleRequestContract)
	})
}

func (h *Handler) contractID(w http.ResponseWriter, r *http.Request) (id.ContractID, bool) {
	contractID, err := id.ParseContractID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid contract id"))
		return id.ContractID{}, false
	}
	return contractID, true
}

// writeServiceError logs and writes err. A partial audit failure is not an
// error for the caller; those are handled before reaching here.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}

	c, result, err := h.contracts.Verify(ctx, contractID)
	incomplete := dErrors.HasCode(err, dErrors.CodeAuditIncomplete)
	if err != nil && !incomplete {
		h.writeServiceError(ctx, w, "verify contract", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVerifyResponse(c, result, incomplete))
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}

	dl, err := h.contracts.DownloadUnsigned(ctx, contractID)
	if err != nil {
		h.writeServiceError(ctx, w, "download contract", err)
		return
	}
	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Body)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+dl.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(dl.Body); err != nil {
		h.logger.WarnContext(ctx, "failed to write contract download", "error", err)
	}
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}
	actions, err := parseActions(r.URL.Query()["action"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.contracts.AuditTrail(ctx, contractID, actions)
	if err != nil {
		h.writeServiceError(ctx, w, "load audit trail", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditResponse(contractID, entries))
}

func (h *Handler) handleRecordSignature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}

	var req SignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid signature request",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	signedAt, err := time.Parse(time.RFC3339, req.SignedAt)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "signed_at must be an RFC 3339 timestamp"))
		return
	}

	c, err := h.contracts.RecordSignature(ctx, contractID, models.SignedArtifact{
		Path:     strings.TrimSpace(req.SignedPath),
		Hash:     strings.ToLower(strings.TrimSpace(req.SignedHash)),
		SignedAt: signedAt,
	})
	incomplete := dErrors.HasCode(err, dErrors.CodeAuditIncomplete)
	if err != nil && !incomplete {
		h.writeServiceError(ctx, w, "record signature", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toContractResponse(c, incomplete))
}

func (h *Handler) handleRequestContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bookingID, err := id.ParseBookingID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid booking id"))
		return
	}

	msg := worker.Message{BookingID: bookingID, Trigger: worker.TriggerAdminRequested}
	if err := h.requester.Request(ctx, msg); err != nil {
		h.logger.ErrorContext(ctx, "failed to enqueue contract request",
			"request_id", request.GetRequestID(ctx),
			"booking_id", bookingID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue contract request"))
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, RequestContractResponse{
		BookingID: bookingID.String(),
		Trigger:   msg.Trigger,
	})
}

var knownActions = map[audit.Action]bool{
	audit.ActionContractGenerated: true,
	audit.ActionContractVerified:  true,
	audit.ActionContractSigned:    true,
}

// parseActions accepts repeated or comma-separated action names.
func parseActions(values []string) ([]audit.Action, error) {
	var actions []audit.Action
	for _, name := range listutil.SplitListUpper(values) {
		action := audit.Action(name)
		if !knownActions[action] {
			return nil, dErrors.New(dErrors.CodeBadRequest, "unknown audit action: "+name)
		}
		actions = append(actions, action)
	}
	return actions, nil
}
