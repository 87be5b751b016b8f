package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

// JournalRepo persists processed crash records using PostgreSQL.
type JournalRepo struct {
	db *DB
}

// NewJournalRepo creates a new PostgreSQL crash journal repository.
func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Record inserts one crash record.
func (r *JournalRepo) Record(ctx context.Context, rec *domain.CrashRecord) error {
	const query = `
		INSERT INTO crash_journal (
			id, program_name, package_name, uid, pid,
			origin, kind, outcome, report, crashed_at, created_at
		) VALUES (
			:id, :program_name, :package_name, :uid, :pid,
			:origin, :kind, :outcome, :report, :crashed_at, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to insert crash record: %w", err)
	}
	return nil
}

// Recent returns the most recent crash records, newest first.
func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]*domain.CrashRecord, error) {
	const query = `
		SELECT id, program_name, package_name, uid, pid,
		       origin, kind, outcome, report, crashed_at, created_at
		FROM crash_journal
		ORDER BY crashed_at DESC
		LIMIT $1`

	var records []*domain.CrashRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list crash records: %w", err)
	}
	return records, nil
}
