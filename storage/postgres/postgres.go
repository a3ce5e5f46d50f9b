// Package postgres implements storage.RoutingStore on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/switchpay/routing/storage"
	"github.com/switchpay/routing/types"
)

// Store is a pgx-backed RoutingStore.
type Store struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool and verifies connectivity.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close gracefully closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Schema is the DDL for the tables this store reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS routing_algorithm (
	algorithm_id   TEXT PRIMARY KEY,
	profile_id     TEXT NOT NULL,
	merchant_id    TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	algorithm_data JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_routing_algorithm_profile
	ON routing_algorithm (profile_id, algorithm_id);

CREATE TABLE IF NOT EXISTS merchant_connector_account (
	merchant_connector_id   TEXT PRIMARY KEY,
	merchant_id             TEXT NOT NULL,
	connector_name          TEXT NOT NULL,
	connector_type          TEXT NOT NULL,
	profile_id              TEXT,
	disabled                BOOLEAN NOT NULL DEFAULT FALSE,
	payment_methods_enabled JSONB
);
CREATE INDEX IF NOT EXISTS idx_mca_merchant
	ON merchant_connector_account (merchant_id, disabled);

CREATE TABLE IF NOT EXISTS business_profile (
	profile_id        TEXT PRIMARY KEY,
	merchant_id       TEXT NOT NULL,
	routing_algorithm JSONB
);

CREATE TABLE IF NOT EXISTS merchant_default_config (
	profile_id       TEXT NOT NULL,
	transaction_type TEXT NOT NULL,
	connectors       JSONB NOT NULL,
	PRIMARY KEY (profile_id, transaction_type)
);
`

// InitSchema executes the schema DDL.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %w", err)
	}
	return nil
}

// FindRoutingAlgorithmByProfileIDAlgorithmID implements storage.RoutingStore.
func (s *Store) FindRoutingAlgorithmByProfileIDAlgorithmID(ctx context.Context, profileID, algorithmID string) (*storage.RoutingAlgorithmRow, error) {
	const query = `
		SELECT algorithm_id, profile_id, merchant_id, name, algorithm_data
		FROM routing_algorithm
		WHERE profile_id = $1 AND algorithm_id = $2
	`
	var row storage.RoutingAlgorithmRow
	err := s.pool.QueryRow(ctx, query, profileID, algorithmID).Scan(
		&row.AlgorithmID, &row.ProfileID, &row.MerchantID, &row.Name, &row.AlgorithmData,
	)
	if err == pgx.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query routing_algorithm: %w", err)
	}
	return &row, nil
}

// FindMerchantConnectorAccountsByMerchantIDAndDisabledList implements
// storage.RoutingStore.
func (s *Store) FindMerchantConnectorAccountsByMerchantIDAndDisabledList(ctx context.Context, merchantID string, includeDisabled bool) ([]types.MerchantConnectorAccount, error) {
	const query = `
		SELECT merchant_connector_id, merchant_id, connector_name, connector_type,
		       profile_id, disabled, payment_methods_enabled
		FROM merchant_connector_account
		WHERE merchant_id = $1 AND (disabled = FALSE OR $2)
	`
	rows, err := s.pool.Query(ctx, query, merchantID, includeDisabled)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant_connector_account: %w", err)
	}
	defer rows.Close()

	var accounts []types.MerchantConnectorAccount
	for rows.Next() {
		var (
			account types.MerchantConnectorAccount
			enabled []byte
		)
		err := rows.Scan(
			&account.MerchantConnectorID, &account.MerchantID, &account.ConnectorName,
			&account.ConnectorType, &account.ProfileID, &account.Disabled, &enabled,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan merchant_connector_account: %w", err)
		}
		if len(enabled) > 0 {
			if err := json.Unmarshal(enabled, &account.PaymentMethodsEnabled); err != nil {
				return nil, fmt.Errorf("failed to decode payment_methods_enabled for %s: %w", account.MerchantConnectorID, err)
			}
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindBusinessProfileByProfileID implements storage.RoutingStore.
func (s *Store) FindBusinessProfileByProfileID(ctx context.Context, profileID string) (*types.BusinessProfile, error) {
	const query = `
		SELECT profile_id, merchant_id, routing_algorithm
		FROM business_profile
		WHERE profile_id = $1
	`
	var profile types.BusinessProfile
	var algorithm []byte
	err := s.pool.QueryRow(ctx, query, profileID).Scan(&profile.ProfileID, &profile.MerchantID, &algorithm)
	if err == pgx.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query business_profile: %w", err)
	}
	profile.RoutingAlgorithm = algorithm
	return &profile, nil
}

// GetMerchantDefaultConfig implements storage.RoutingStore.
func (s *Store) GetMerchantDefaultConfig(ctx context.Context, profileID string, transactionType types.TransactionType) ([]types.RoutableConnectorChoice, error) {
	const query = `
		SELECT connectors
		FROM merchant_default_config
		WHERE profile_id = $1 AND transaction_type = $2
	`
	var raw []byte
	err := s.pool.QueryRow(ctx, query, profileID, string(transactionType)).Scan(&raw)
	if err == pgx.ErrNoRows {
		return []types.RoutableConnectorChoice{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant_default_config: %w", err)
	}
	var connectors []types.RoutableConnectorChoice
	if err := json.Unmarshal(raw, &connectors); err != nil {
		return nil, fmt.Errorf("failed to decode merchant_default_config: %w", err)
	}
	return connectors, nil
}

// SaveRoutingAlgorithm inserts or replaces a stored algorithm. A blank
// algorithm id gets a generated one; the id in use is returned.
func (s *Store) SaveRoutingAlgorithm(ctx context.Context, row storage.RoutingAlgorithmRow) (string, error) {
	if row.AlgorithmID == "" {
		row.AlgorithmID = "routing_" + uuid.NewString()
	}
	const query = `
		INSERT INTO routing_algorithm (algorithm_id, profile_id, merchant_id, name, algorithm_data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (algorithm_id) DO UPDATE
		SET algorithm_data = EXCLUDED.algorithm_data, name = EXCLUDED.name
	`
	if _, err := s.pool.Exec(ctx, query, row.AlgorithmID, row.ProfileID, row.MerchantID, row.Name, row.AlgorithmData); err != nil {
		return "", fmt.Errorf("failed to insert routing_algorithm: %w", err)
	}
	return row.AlgorithmID, nil
}

// SetMerchantDefaultConfig inserts or replaces a profile's default fallback
// connector list.
func (s *Store) SetMerchantDefaultConfig(ctx context.Context, profileID string, transactionType types.TransactionType, connectors []types.RoutableConnectorChoice) error {
	raw, err := json.Marshal(connectors)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO merchant_default_config (profile_id, transaction_type, connectors)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile_id, transaction_type) DO UPDATE
		SET connectors = EXCLUDED.connectors
	`
	if _, err := s.pool.Exec(ctx, query, profileID, string(transactionType), raw); err != nil {
		return fmt.Errorf("failed to upsert merchant_default_config: %w", err)
	}
	return nil
}
