package postgres

import (
	"context"
	"fmt"
	"strings"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const journalColumns = `id, operation, leg, reference_id, owner, from_address, to_address, mint,
		amount, digest, created_at`

// JournalRepo implements ports.JournalRepository.
type JournalRepo struct {
	db DBTX
}

// NewJournalRepo creates a new JournalRepo.
func NewJournalRepo(db DBTX) *JournalRepo {
	return &JournalRepo{db: db}
}

// Append inserts one sealed journal entry.
func (r *JournalRepo) Append(ctx context.Context, e *domain.JournalEntry) error {
	amount, err := toBigint(e.Amount)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	query := `INSERT INTO journal_entries (` + journalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		e.ID, string(e.Operation), string(e.Leg), e.ReferenceID, e.Owner.String(),
		e.From.String(), e.To.String(), e.Mint.String(), amount, e.Digest, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// ListByOwner returns a page of an owner's journal, newest first, plus the total count.
func (r *JournalRepo) ListByOwner(ctx context.Context, params ports.JournalListParams) ([]domain.JournalEntry, int64, error) {
	var (
		conditions = []string{"owner = $1"}
		args       = []any{params.Owner.String()}
		argIdx     = 2
	)
	if params.Operation != nil {
		conditions = append(conditions, fmt.Sprintf("operation = $%d", argIdx))
		args = append(args, string(*params.Operation))
		argIdx++
	}
	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM journal_entries WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count journal entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM journal_entries WHERE %s
		ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, journalColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.JournalEntry{}
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate journal entries: %w", err)
	}
	return entries, total, nil
}

func scanJournalEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var (
		e                     domain.JournalEntry
		op, leg               string
		owner, from, to, mint string
		amount                int64
	)
	err := row.Scan(&e.ID, &op, &leg, &e.ReferenceID, &owner, &from, &to, &mint,
		&amount, &e.Digest, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan journal entry: %w", err)
	}
	e.Operation = domain.Operation(op)
	e.Leg = domain.Leg(leg)
	if e.Owner, err = parseKey(owner); err != nil {
		return nil, err
	}
	if e.From, err = parseKey(from); err != nil {
		return nil, err
	}
	if e.To, err = parseKey(to); err != nil {
		return nil, err
	}
	if e.Mint, err = parseKey(mint); err != nil {
		return nil, err
	}
	if e.Amount, err = fromBigint(amount); err != nil {
		return nil, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
