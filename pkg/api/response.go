// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LeeDigitalWorks/zapdrive/pkg/billing"
	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
	"github.com/LeeDigitalWorks/zapdrive/pkg/metastore"
	"github.com/LeeDigitalWorks/zapdrive/pkg/uploader"
)

// errorBody is the JSON error envelope every failed request returns.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("api: encode response failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	body.RequestID = requestIDFrom(r.Context())
	writeJSON(w, r, status, body)
}

// writeDomainError maps service-layer errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, metastore.ErrFileNotFound):
		writeError(w, r, http.StatusNotFound, "file_not_found", "file does not exist")
	case errors.Is(err, metastore.ErrAccountNotFound):
		writeError(w, r, http.StatusNotFound, "account_not_found", "account does not exist")
	case errors.Is(err, metastore.ErrDuplicateReceipt):
		writeError(w, r, http.StatusConflict, "receipt_already_applied", "this receipt was already redeemed")
	case errors.Is(err, billing.ErrReceiptExpired):
		writeError(w, r, http.StatusBadRequest, "receipt_expired", "the receipt has expired")
	case errors.Is(err, billing.ErrWrongOwner):
		writeError(w, r, http.StatusForbidden, "receipt_wrong_owner", "the receipt belongs to a different account")
	case errors.Is(err, billing.ErrUnknownPlan), errors.Is(err, billing.ErrInvalidReceipt):
		writeError(w, r, http.StatusBadRequest, "invalid_receipt", "the receipt could not be verified")
	default:
		if pe, ok := uploader.IsPreflight(err); ok {
			writePreflightError(w, r, pe)
			return
		}
		logger.Ctx(r.Context()).Error().Err(err).Msg("api: internal error")
		writeError(w, r, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// writePreflightError maps upload preflight rejections. These carry a
// reason the client can act on, so the reason doubles as the code.
func writePreflightError(w http.ResponseWriter, r *http.Request, pe *uploader.PreflightError) {
	status := http.StatusBadRequest
	switch pe.Reason {
	case uploader.ReasonUnauthenticated:
		status = http.StatusUnauthorized
	case uploader.ReasonQuotaExceeded:
		status = http.StatusForbidden
	case uploader.ReasonFileTooLarge:
		status = http.StatusRequestEntityTooLarge
	case uploader.ReasonTypeNotAllowed:
		status = http.StatusUnsupportedMediaType
	}
	writeError(w, r, status, pe.Reason, pe.Error())
}
