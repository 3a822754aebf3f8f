// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

// Package billing verifies payment receipts and applies plan upgrades.
//
// The checkout flow itself is external: the payment provider's backend
// collects the payment and issues a short-lived receipt JWT signed with
// its RSA private key. This package validates receipts offline against
// the provider's public key; no callback to the provider is needed.
// Each receipt is single-use: the receipt id is recorded in the meta
// store and a replayed id is rejected.
package billing

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
	"github.com/LeeDigitalWorks/zapdrive/pkg/metastore"
	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
)

var (
	// ErrInvalidReceipt is returned for malformed, unsigned, or
	// wrongly-signed receipt tokens.
	ErrInvalidReceipt = errors.New("billing: invalid receipt")

	// ErrReceiptExpired is returned when the receipt's expiry passed.
	ErrReceiptExpired = errors.New("billing: receipt expired")

	// ErrWrongOwner is returned when the receipt was issued for a
	// different user than the one presenting it.
	ErrWrongOwner = errors.New("billing: receipt issued for a different user")

	// ErrUnknownPlan is returned when the receipt names a plan this
	// service does not sell.
	ErrUnknownPlan = errors.New("billing: unknown plan")
)

// Receipt is a validated payment receipt.
type Receipt struct {
	ReceiptID string
	OwnerID   string
	Plan      types.Plan
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// receiptClaims is the JWT claim layout the payment provider signs.
type receiptClaims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"uid"`
	Plan    string `json:"plan"`
}

// Verifier validates receipt tokens against the provider's public key.
type Verifier struct {
	publicKey *rsa.PublicKey
}

// NewVerifier parses the provider's PEM-encoded RSA public key.
func NewVerifier(publicKeyPEM []byte) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("billing: parse public key: %w", err)
	}
	return &Verifier{publicKey: key}, nil
}

// NewVerifierFromFile reads the provider key from a PEM file.
func NewVerifierFromFile(path string) (*Verifier, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("billing: read public key file: %w", err)
	}
	return NewVerifier(pem)
}

// Verify checks the token's signature, expiry, and claims.
func (v *Verifier) Verify(token string) (*Receipt, error) {
	parsed, err := jwt.ParseWithClaims(token, &receiptClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.publicKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrReceiptExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}

	claims, ok := parsed.Claims.(*receiptClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidReceipt
	}
	if claims.ID == "" || claims.OwnerID == "" {
		return nil, ErrInvalidReceipt
	}

	plan := types.Plan(claims.Plan)
	if !plan.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, claims.Plan)
	}

	r := &Receipt{
		ReceiptID: claims.ID,
		OwnerID:   claims.OwnerID,
		Plan:      plan,
	}
	if claims.IssuedAt != nil {
		r.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		r.ExpiresAt = claims.ExpiresAt.Time
	}
	return r, nil
}

// Service turns verified receipts into plan changes.
type Service struct {
	verifier *Verifier
	db       metastore.DB
}

// NewService wires the verifier to the meta store.
func NewService(verifier *Verifier, db metastore.DB) *Service {
	return &Service{verifier: verifier, db: db}
}

// Confirm validates a receipt presented by ownerID and applies the
// plan change. The receipt id is the replay guard: a receipt already
// applied fails with metastore.ErrDuplicateReceipt.
func (s *Service) Confirm(ctx context.Context, ownerID, token string) (*Receipt, error) {
	r, err := s.verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != ownerID {
		return nil, ErrWrongOwner
	}

	err = s.db.ApplyReceipt(ctx, metastore.Receipt{
		ReceiptID: r.ReceiptID,
		OwnerID:   r.OwnerID,
		Plan:      r.Plan,
		AppliedAt: time.Now().Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("apply receipt %s: %w", r.ReceiptID, err)
	}

	receiptsAppliedTotal.WithLabelValues(string(r.Plan)).Inc()
	logger.Info().
		Str("owner_id", r.OwnerID).
		Str("receipt_id", r.ReceiptID).
		Str("plan", string(r.Plan)).
		Msg("billing: plan upgraded")

	return r, nil
}
