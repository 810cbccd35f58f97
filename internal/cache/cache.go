package cache

import (
	"context"
	"time"
)

// Cache is a process local read-through cache for derived ledger and ownership
// values. It is never the source of truth: a miss falls back to the store and
// every ledger write deletes the affected key.
type Cache interface {
	// Get returns the cached value of key and whether it was present
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores value under key. A zero expiration uses ledger.balance_cache_ttl.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	// Delete drops key. It applies even when caching is disabled.
	Delete(ctx context.Context, key string)

	// Incr atomically increments the counter under key and returns the new
	// value. Counters never expire. A disabled cache returns 0.
	Incr(ctx context.Context, key string) int64
}

const (
	prefixOrgBalance = "org_balance:v1:"
	prefixOrgOwner   = "org_owner:v1:"
	prefixOrgVersion = "org_balance_version:v1:"
)

// BalanceKey is the key of an organization's credit balance
func BalanceKey(orgID string) string {
	return prefixOrgBalance + orgID
}

// BalanceVersionKey is the counter bumped after every committed ledger write
// of an organization. A cached balance is only served while the counter still
// holds the value read before the balance was loaded.
func BalanceVersionKey(orgID string) string {
	return prefixOrgVersion + orgID
}

// OwnerKey is the key of an organization's owner. Owners never change once
// claimed so the entry is only written after a successful read of a claimed org.
func OwnerKey(orgID string) string {
	return prefixOrgOwner + orgID
}
