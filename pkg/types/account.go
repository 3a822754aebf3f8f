// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package types

// Plan identifies a storage subscription tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

const (
	// FreePlanLimitBytes is the storage cap for free accounts (2 GiB).
	FreePlanLimitBytes int64 = 2 << 30
	// PremiumPlanLimitBytes is the storage cap for premium accounts (50 GiB).
	PremiumPlanLimitBytes int64 = 50 << 30
)

// Valid returns true for a known plan name.
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPremium
}

// LimitBytes returns the default storage cap for the plan.
func (p Plan) LimitBytes() int64 {
	if p == PlanPremium {
		return PremiumPlanLimitBytes
	}
	return FreePlanLimitBytes
}

// Account represents a user's storage account row.
// StorageUsedBytes is trigger-maintained: it reflects the sum of file
// record sizes and must be treated as read-only by application code.
type Account struct {
	OwnerID           string `json:"owner_id"`
	Plan              Plan   `json:"plan"`
	StorageUsedBytes  int64  `json:"storage_used_bytes"`
	StorageLimitBytes int64  `json:"storage_limit_bytes"`
	CreatedAt         int64  `json:"created_at"`
	UpdatedAt         int64  `json:"updated_at"`
}

// RemainingBytes returns the unused portion of the account's quota.
func (a *Account) RemainingBytes() int64 {
	r := a.StorageLimitBytes - a.StorageUsedBytes
	if r < 0 {
		return 0
	}
	return r
}

// CanStore reports whether n additional bytes fit within the quota.
func (a *Account) CanStore(n int64) bool {
	return a.StorageUsedBytes+n <= a.StorageLimitBytes
}

// UsagePercent returns used storage as a percentage of the limit.
func (a *Account) UsagePercent() float64 {
	if a.StorageLimitBytes <= 0 {
		return 0
	}
	return float64(a.StorageUsedBytes) / float64(a.StorageLimitBytes) * 100
}
