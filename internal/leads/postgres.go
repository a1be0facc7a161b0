package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxPool is the subset of pgxpool.Pool used by PostgresStore.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore stores leads in the relational database.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool pgxPool) *PostgresStore {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// Append inserts a new row.
func (s *PostgresStore) Append(ctx context.Context, rec *Record) (AppendResult, error) {
	if rec == nil || rec.ID == "" {
		return AppendResult{}, fmt.Errorf("%w: record id required", ErrPersistence)
	}

	query := `
		INSERT INTO leads (
			id, created_at, name, company, email, phone, channel, service,
			quantity, required_date, description, attachment_url, attachment_name,
			source_page, utm_source, utm_medium, utm_campaign, ip, user_agent,
			status, internal_notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	if _, err := s.pool.Exec(ctx, query,
		rec.ID,
		rec.CreatedAt,
		rec.Name,
		rec.Company,
		rec.Email,
		rec.Phone,
		rec.Channel,
		rec.Service,
		rec.Quantity,
		rec.RequiredDate,
		rec.Description,
		rec.AttachmentURL,
		rec.AttachmentName,
		rec.SourcePage,
		rec.UTMSource,
		rec.UTMMedium,
		rec.UTMCampaign,
		rec.IP,
		rec.UserAgent,
		rec.Status,
		rec.InternalNotes,
	); err != nil {
		return AppendResult{}, fmt.Errorf("%w: insert: %v", ErrPersistence, err)
	}

	return AppendResult{LeadID: rec.ID}, nil
}

// AppendNotes concatenates notes onto internal_notes.
func (s *PostgresStore) AppendNotes(ctx context.Context, leadID, notes string) error {
	query := `
		UPDATE leads
		SET internal_notes = CASE
			WHEN internal_notes = '' THEN $2
			ELSE internal_notes || ' | ' || $2
		END
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, leadID, notes)
	if err != nil {
		return fmt.Errorf("leads: append notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// GetByID fetches a single lead.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, created_at, name, company, email, phone, channel, service,
			quantity, required_date, description, attachment_url, attachment_name,
			source_page, utm_source, utm_medium, utm_campaign, ip, user_agent,
			status, internal_notes
		FROM leads
		WHERE id = $1
	`
	var rec Record
	if err := s.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.CreatedAt,
		&rec.Name,
		&rec.Company,
		&rec.Email,
		&rec.Phone,
		&rec.Channel,
		&rec.Service,
		&rec.Quantity,
		&rec.RequiredDate,
		&rec.Description,
		&rec.AttachmentURL,
		&rec.AttachmentName,
		&rec.SourcePage,
		&rec.UTMSource,
		&rec.UTMMedium,
		&rec.UTMCampaign,
		&rec.IP,
		&rec.UserAgent,
		&rec.Status,
		&rec.InternalNotes,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return &rec, nil
}
