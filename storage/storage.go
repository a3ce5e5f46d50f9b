// Package storage defines the persistence interfaces the routing core
// consumes. The core never talks to a database directly; it loads algorithm
// rows, connector accounts, business profiles and default configs through
// these interfaces.
package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/switchpay/routing/types"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("storage: not found")

// RoutingAlgorithmRow is a stored routing algorithm. AlgorithmData holds the
// untagged algorithm JSON.
type RoutingAlgorithmRow struct {
	AlgorithmID   string          `json:"algorithm_id"`
	ProfileID     string          `json:"profile_id"`
	MerchantID    string          `json:"merchant_id"`
	Name          string          `json:"name"`
	AlgorithmData json.RawMessage `json:"algorithm_data"`
}

// RoutingStore is the storage surface the routing core consumes.
// Implementations must be safe for concurrent use.
type RoutingStore interface {
	// FindRoutingAlgorithmByProfileIDAlgorithmID fetches one stored algorithm.
	FindRoutingAlgorithmByProfileIDAlgorithmID(ctx context.Context, profileID, algorithmID string) (*RoutingAlgorithmRow, error)

	// FindMerchantConnectorAccountsByMerchantIDAndDisabledList lists a
	// merchant's connector accounts. With includeDisabled false, disabled
	// accounts are excluded.
	FindMerchantConnectorAccountsByMerchantIDAndDisabledList(ctx context.Context, merchantID string, includeDisabled bool) ([]types.MerchantConnectorAccount, error)

	// FindBusinessProfileByProfileID fetches a business profile.
	FindBusinessProfileByProfileID(ctx context.Context, profileID string) (*types.BusinessProfile, error)

	// GetMerchantDefaultConfig returns the profile's default fallback
	// connector list for the transaction type.
	GetMerchantDefaultConfig(ctx context.Context, profileID string, transactionType types.TransactionType) ([]types.RoutableConnectorChoice, error)
}
