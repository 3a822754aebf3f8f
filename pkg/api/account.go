// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/dustin/go-humanize"
)

// handleAccount returns the caller's quota snapshot. First contact
// provisions a free-plan account.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	acct, err := s.db.EnsureAccount(r.Context(), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"owner_id":            acct.OwnerID,
		"plan":                acct.Plan,
		"storage_used_bytes":  acct.StorageUsedBytes,
		"storage_limit_bytes": acct.StorageLimitBytes,
		"remaining_bytes":     acct.RemainingBytes(),
		"storage_used":        humanize.IBytes(uint64(acct.StorageUsedBytes)),
		"storage_limit":       humanize.IBytes(uint64(acct.StorageLimitBytes)),
		"usage_percent":       acct.UsagePercent(),
	})
}

// handleBillingConfirm redeems a payment receipt for a plan upgrade.
func (s *Server) handleBillingConfirm(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	if s.billing == nil {
		writeError(w, r, http.StatusNotImplemented, "billing_disabled", "plan upgrades are not enabled")
		return
	}

	var req struct {
		Receipt string `json:"receipt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Receipt == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", `body must be {"receipt": "<token>"}`)
		return
	}

	receipt, err := s.billing.Confirm(r.Context(), owner, req.Receipt)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.emitter.PlanChanged(r.Context(), owner, receipt.Plan)

	writeJSON(w, r, http.StatusOK, map[string]any{
		"plan":                receipt.Plan,
		"storage_limit_bytes": receipt.Plan.LimitBytes(),
		"receipt_id":          receipt.ReceiptID,
	})
}

// handleCancelUpload raises the cancellation flag of the caller's
// in-flight batch. Idempotent: cancelling twice, or with nothing
// running, simply reports cancelled=false.
func (s *Server) handleCancelUpload(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	cancelled := s.up.Cancel(owner)
	writeJSON(w, r, http.StatusOK, map[string]any{"cancelled": cancelled})
}
