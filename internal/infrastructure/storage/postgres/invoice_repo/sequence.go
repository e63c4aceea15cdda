package invoice_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"fakturo/internal/core/apperror"
	"fakturo/internal/domain/invoice"
	"fakturo/internal/infrastructure/storage/postgres"
)

const sequenceTable = "invoice_sequence"

// sequenceRowID is the only id ever present in invoice_sequence; the table
// carries a CHECK (id = 1) to enforce it.
const sequenceRowID = 1

// startNumberSetting names the configuration value the bootstrap consumes.
const startNumberSetting = "invoicing.start_number"

// SequenceRepo implements invoice.SequenceAllocator on the singleton
// invoice_sequence row.
type SequenceRepo struct {
	tm *postgres.TxManager
}

var _ invoice.SequenceAllocator = (*SequenceRepo)(nil)

// NewSequenceRepo creates a new sequence repository.
func NewSequenceRepo(tm *postgres.TxManager) *SequenceRepo {
	return &SequenceRepo{tm: tm}
}

// EnsureInitialized inserts the singleton row with last_number =
// startNumber-1 unless it already exists. The configured start only matters
// before the row first exists; afterwards it is ignored entirely.
func (r *SequenceRepo) EnsureInitialized(ctx context.Context, startNumber int64) error {
	if startNumber < 1 {
		initialized, err := r.exists(ctx)
		if err != nil {
			return err
		}
		if initialized {
			return nil
		}
		return apperror.NewConfigurationMissing(startNumberSetting)
	}

	q := builder().
		Insert(sequenceTable).
		Columns("id", "last_number").
		Values(sequenceRowID, startNumber-1).
		Suffix("ON CONFLICT (id) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("initialize sequence: %w", err)
	}

	return nil
}

// NextNumber increments last_number by one and returns it. The UPDATE takes
// a row lock, so two transactions can never read the same value.
func (r *SequenceRepo) NextNumber(ctx context.Context) (int64, error) {
	q := builder().
		Update(sequenceTable).
		Set("last_number", squirrel.Expr("last_number + 1")).
		Where(squirrel.Eq{"id": sequenceRowID}).
		Suffix("RETURNING last_number")

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	var n int64
	querier := r.tm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperror.NewConfigurationMissing(startNumberSetting)
		}
		return 0, fmt.Errorf("advance sequence: %w", err)
	}

	return n, nil
}

// AdvanceTo raises last_number to n when n is greater. The counter never
// moves backwards.
func (r *SequenceRepo) AdvanceTo(ctx context.Context, n int64) error {
	q := builder().
		Update(sequenceTable).
		Set("last_number", squirrel.Expr("GREATEST(last_number, ?)", n)).
		Where(squirrel.Eq{"id": sequenceRowID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("advance sequence: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConfigurationMissing(startNumberSetting)
	}

	return nil
}

// PeekNext reports the number the next allocation would yield without
// touching the row. With no row yet it answers from the configured start and
// creates nothing.
func (r *SequenceRepo) PeekNext(ctx context.Context, startNumber int64) (int64, error) {
	q := builder().
		Select("last_number").
		From(sequenceTable).
		Where(squirrel.Eq{"id": sequenceRowID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var last int64
	querier := r.tm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if startNumber < 1 {
				return 0, apperror.NewConfigurationMissing(startNumberSetting)
			}
			return startNumber, nil
		}
		return 0, fmt.Errorf("read sequence: %w", err)
	}

	return last + 1, nil
}

func (r *SequenceRepo) exists(ctx context.Context) (bool, error) {
	q := builder().
		Select("1").
		From(sequenceTable).
		Where(squirrel.Eq{"id": sequenceRowID})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	querier := r.tm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("read sequence: %w", err)
	}

	return true, nil
}
