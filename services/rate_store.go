package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mearone/cellar-sage/models"
)

// RateStore is the persistence boundary for fee records and their audit log.
type RateStore interface {
	// Get returns the record for a house, or (nil, nil) when absent.
	Get(ctx context.Context, house string) (*models.FeeRecord, error)
	// Upsert writes a record keyed by house.
	Upsert(ctx context.Context, record *models.FeeRecord) error
	// AppendAudit appends one audit entry. Entries are never updated or deleted.
	AppendAudit(ctx context.Context, entry *models.FeeAuditEntry) error
	// ListAll returns all records ordered by house name.
	ListAll(ctx context.Context) ([]models.FeeRecord, error)
	// ListAudit returns the most recent audit entries, newest first.
	ListAudit(ctx context.Context, limit int) ([]models.FeeAuditEntry, error)
}

// PostgresRateStore implements RateStore over a fees/fees_audit schema.
type PostgresRateStore struct {
	db *sql.DB
}

func NewPostgresRateStore(db *sql.DB) *PostgresRateStore {
	return &PostgresRateStore{db: db}
}

func (s *PostgresRateStore) Get(ctx context.Context, house string) (*models.FeeRecord, error) {
	var record models.FeeRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT house, buyers_premium, last_verified, source_url
		FROM fees
		WHERE house = $1
	`, house).Scan(&record.House, &record.BuyersPremium, &record.LastVerified, &record.SourceURL)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fee record for %s: %w", house, err)
	}

	return &record, nil
}

func (s *PostgresRateStore) Upsert(ctx context.Context, record *models.FeeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fees (house, buyers_premium, last_verified, source_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (house) DO UPDATE SET
			buyers_premium = EXCLUDED.buyers_premium,
			last_verified = EXCLUDED.last_verified,
			source_url = EXCLUDED.source_url
	`, record.House, record.BuyersPremium, record.LastVerified, record.SourceURL)

	if err != nil {
		return fmt.Errorf("failed to upsert fee record for %s: %w", record.House, err)
	}
	return nil
}

func (s *PostgresRateStore) AppendAudit(ctx context.Context, entry *models.FeeAuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fees_audit (id, house, old_rate, new_rate, source_url, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.House, entry.OldRate, entry.NewRate, entry.SourceURL, entry.ChangedAt)

	if err != nil {
		return fmt.Errorf("failed to append audit entry for %s: %w", entry.House, err)
	}
	return nil
}

func (s *PostgresRateStore) ListAll(ctx context.Context) ([]models.FeeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT house, buyers_premium, last_verified, source_url
		FROM fees
		ORDER BY house
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fee records: %w", err)
	}
	defer rows.Close()

	var records []models.FeeRecord
	for rows.Next() {
		var record models.FeeRecord
		if err := rows.Scan(&record.House, &record.BuyersPremium, &record.LastVerified, &record.SourceURL); err != nil {
			return nil, fmt.Errorf("failed to scan fee record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (s *PostgresRateStore) ListAudit(ctx context.Context, limit int) ([]models.FeeAuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, house, old_rate, new_rate, source_url, changed_at
		FROM fees_audit
		ORDER BY changed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.FeeAuditEntry
	for rows.Next() {
		var entry models.FeeAuditEntry
		if err := rows.Scan(&entry.ID, &entry.House, &entry.OldRate, &entry.NewRate, &entry.SourceURL, &entry.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
