package invoice_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"fakturo/internal/core/id"
	"fakturo/internal/domain/invoice"
	"fakturo/internal/infrastructure/storage/postgres"
)

const revisionsTable = "invoice_revisions"

// revisionRow mirrors the invoice_revisions table. Snapshots are stored as
// zstd-compressed JSON.
type revisionRow struct {
	ID            id.ID     `db:"id"`
	InvoiceNumber int64     `db:"invoice_number"`
	Revision      int       `db:"revision"`
	Snapshot      []byte    `db:"snapshot"`
	CreatedAt     time.Time `db:"created_at"`
}

var revisionColumns = postgres.ExtractDBColumns[revisionRow]()

// RevisionRepo implements invoice.RevisionArchive.
type RevisionRepo struct {
	tm      *postgres.TxManager
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ invoice.RevisionArchive = (*RevisionRepo)(nil)

// NewRevisionRepo creates a new revision repository.
func NewRevisionRepo(tm *postgres.TxManager) (*RevisionRepo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &RevisionRepo{tm: tm, encoder: encoder, decoder: decoder}, nil
}

// Archive stores prior as the next revision of the invoice and returns the
// assigned revision number. Runs in the caller's transaction, so the
// snapshot and the content replacement commit or roll back together.
func (r *RevisionRepo) Archive(ctx context.Context, number int64, prior invoice.Content) (int, error) {
	payload, err := json.Marshal(prior)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	compressed := r.encoder.EncodeAll(payload, nil)

	next, err := r.nextRevision(ctx, number)
	if err != nil {
		return 0, err
	}

	q := builder().
		Insert(revisionsTable).
		Columns(revisionColumns...).
		Values(id.New(), number, next, compressed, time.Now().UTC())

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return 0, fmt.Errorf("insert revision: %w", err)
	}

	return next, nil
}

// List returns all revisions of an invoice, oldest first.
func (r *RevisionRepo) List(ctx context.Context, number int64) ([]*invoice.Revision, error) {
	q := builder().
		Select(revisionColumns...).
		From(revisionsTable).
		Where(squirrel.Eq{"invoice_number": number}).
		OrderBy("revision")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []revisionRow
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}

	revisions := make([]*invoice.Revision, len(rows))
	for i, row := range rows {
		decompressed, err := r.decoder.DecodeAll(row.Snapshot, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}

		var content invoice.Content
		if err := json.Unmarshal(decompressed, &content); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}

		revisions[i] = &invoice.Revision{
			ID:            row.ID,
			InvoiceNumber: row.InvoiceNumber,
			Revision:      row.Revision,
			Content:       content,
			CreatedAt:     row.CreatedAt,
		}
	}

	return revisions, nil
}

func (r *RevisionRepo) nextRevision(ctx context.Context, number int64) (int, error) {
	q := builder().
		Select("COALESCE(MAX(revision), 0) + 1").
		From(revisionsTable).
		Where(squirrel.Eq{"invoice_number": number})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var next int
	querier := r.tm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("read max revision: %w", err)
	}

	return next, nil
}
