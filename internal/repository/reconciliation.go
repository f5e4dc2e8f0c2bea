package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kharon-pay/whatsapp-bot/internal/domain"
)

const reconciliationColumns = `id, reference, phone, outcome, attempts, detail,
	initiated_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

// ReconciliationRepository is the audit trail of finished reconciliation
// tasks. Timed-out and cancelled rows are withdrawals whose users were never
// told the result.
type ReconciliationRepository struct {
	db *sql.DB
}

func NewReconciliationRepository(db *sql.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) Record(ctx context.Context, o domain.ReconciliationOutcome) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO withdrawal_reconciliations (
			id, reference, phone, outcome, attempts, detail, initiated_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.Reference, o.Phone, o.Result, o.Attempts, o.Detail, o.InitiatedAt, o.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

func (r *ReconciliationRepository) ListUnresolved(ctx context.Context, limit int) ([]domain.ReconciliationOutcome, error) {
	unresolved := []string{
		string(domain.ReconciliationTimedOut),
		string(domain.ReconciliationCancelled),
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reconciliationColumns+` FROM withdrawal_reconciliations
		WHERE outcome = ANY($1) ORDER BY finished_at DESC LIMIT $2`,
		pq.Array(unresolved), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListUnresolved: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.ReconciliationOutcome
	for rows.Next() {
		o, err := scanReconciliation(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUnresolved: scan: %w", err)
		}
		outcomes = append(outcomes, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUnresolved: rows: %w", err)
	}
	return outcomes, nil
}

func (r *ReconciliationRepository) GetByReference(ctx context.Context, reference string) (*domain.ReconciliationOutcome, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reconciliationColumns+` FROM withdrawal_reconciliations
		WHERE reference = $1 ORDER BY finished_at DESC LIMIT 1`,
		reference,
	)
	o, err := scanReconciliation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetByReference: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	return o, nil
}

func scanReconciliation(s scanner) (*domain.ReconciliationOutcome, error) {
	var o domain.ReconciliationOutcome
	err := s.Scan(
		&o.ID, &o.Reference, &o.Phone, &o.Result, &o.Attempts, &o.Detail,
		&o.InitiatedAt, &o.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
