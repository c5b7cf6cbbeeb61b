package handler

import (
	"time"

	"ranchdesk/internal/contract/models"
	id "ranchdesk/pkg/domain"
	"ranchdesk/pkg/platform/audit"
)

const warningAuditIncomplete = "audit_incomplete"

// SignatureRequest is the signer callback body.
type SignatureRequest struct {
	SignedPath string `json:"signed_path"`
	SignedHash string `json:"signed_hash"`
	SignedAt   string `json:"signed_at"`
}

type VerifyResponse struct {
	ContractID     string   `json:"contract_id"`
	Status         string   `json:"status"`
	Hash           string   `json:"hash"`
	SignedHash     string   `json:"signed_hash,omitempty"`
	CalculatedHash string   `json:"calculated_hash,omitempty"`
	CheckedAt      string   `json:"checked_at"`
	Warnings       []string `json:"warnings,omitempty"`
}

type ContractResponse struct {
	ID         string   `json:"id"`
	BookingID  string   `json:"booking_id"`
	Status     string   `json:"status"`
	Path       string   `json:"path"`
	Hash       string   `json:"hash"`
	SignedPath string   `json:"signed_path,omitempty"`
	SignedHash string   `json:"signed_hash,omitempty"`
	SignedAt   string   `json:"signed_at,omitempty"`
	UpdatedAt  string   `json:"updated_at"`
	Warnings   []string `json:"warnings,omitempty"`
}

type AuditEntryResponse struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	Timestamp string            `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type AuditTrailResponse struct {
	ContractID string               `json:"contract_id"`
	Entries    []AuditEntryResponse `json:"entries"`
}

type RequestContractResponse struct {
	BookingID string `json:"booking_id"`
	Trigger   string `json:"trigger"`
}

func warnings(auditIncomplete bool) []string {
	if auditIncomplete {
		return []string{warningAuditIncomplete}
	}
	return nil
}

func toVerifyResponse(c *models.Contract, result models.ValidationResult, auditIncomplete bool) VerifyResponse {
	return VerifyResponse{
		ContractID:     c.ID.String(),
		Status:         string(result.Status),
		Hash:           c.Hash,
		SignedHash:     c.SignedHash,
		CalculatedHash: result.CalculatedHash,
		CheckedAt:      result.CheckedAt.UTC().Format(time.RFC3339Nano),
		Warnings:       warnings(auditIncomplete),
	}
}

func toContractResponse(c *models.Contract, auditIncomplete bool) ContractResponse {
	resp := ContractResponse{
		ID:         c.ID.String(),
		BookingID:  c.BookingID.String(),
		Status:     string(c.Status),
		Path:       c.Path,
		Hash:       c.Hash,
		SignedPath: c.SignedPath,
		SignedHash: c.SignedHash,
		UpdatedAt:  c.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Warnings:   warnings(auditIncomplete),
	}
	if c.SignedAt != nil {
		resp.SignedAt = c.SignedAt.UTC().Format(time.RFC3339Nano)
	}
	return resp
}

func toAuditResponse(contractID id.ContractID, entries []audit.Entry) AuditTrailResponse {
	resp := AuditTrailResponse{ContractID: contractID.String(), Entries: make([]AuditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, AuditEntryResponse{
			ID:        e.ID.String(),
			Action:    string(e.Action),
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			Metadata:  e.Metadata,
		})
	}
	return resp
}
