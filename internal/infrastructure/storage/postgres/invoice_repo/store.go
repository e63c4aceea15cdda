// Package invoice_repo provides the PostgreSQL implementations of the
// invoice persistence contracts: the keyed store, the sequence allocator and
// the revision archive. All of them run their statements through the
// transaction found in ctx, so a facade operation spans exactly one
// transaction.
package invoice_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/types"
	"fakturo/internal/domain/invoice"
	"fakturo/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable     = "invoices"
	invoiceLinesTable = "invoice_lines"
)

// invoiceRow mirrors the invoices table.
type invoiceRow struct {
	Number           int64     `db:"number"`
	Date             time.Time `db:"date"`
	SellerName       string    `db:"seller_name"`
	SellerStreet     string    `db:"seller_street"`
	SellerCity       string    `db:"seller_city"`
	SellerPostalCode string    `db:"seller_postal_code"`
	SellerTaxID      string    `db:"seller_tax_id"`
	BuyerName        string    `db:"buyer_name"`
	BuyerStreet      string    `db:"buyer_street"`
	BuyerCity        string    `db:"buyer_city"`
	BuyerPostalCode  string    `db:"buyer_postal_code"`
	BuyerTaxID       string    `db:"buyer_tax_id"`
	BankName         string    `db:"bank_name"`
	BankAccount      string    `db:"bank_account"`
	IsCorrected      bool      `db:"is_corrected"`
	IsLegacy         bool      `db:"is_legacy"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// lineRow mirrors the invoice_lines table.
type lineRow struct {
	InvoiceNumber int64  `db:"invoice_number"`
	LineNo        int    `db:"line_no"`
	Description   string `db:"description"`
	AmountCents   int64  `db:"amount_cents"`
	Currency      string `db:"currency"`
}

var lineColumns = postgres.ExtractDBColumns[lineRow]()

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	tm         *postgres.TxManager
	selectCols []string
}

var _ invoice.Repository = (*InvoiceRepo)(nil)

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(tm *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		tm:         tm,
		selectCols: postgres.ExtractDBColumns[invoiceRow](),
	}
}

// builder returns a new squirrel builder with Postgres placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *InvoiceRepo) baseSelect() squirrel.SelectBuilder {
	return builder().
		Select(r.selectCols...).
		From(invoicesTable)
}

// Insert persists a new invoice with its lines. A primary key collision on
// the number maps to a duplicate-number error.
func (r *InvoiceRepo) Insert(ctx context.Context, inv *invoice.Invoice) error {
	row := rowFromInvoice(inv)
	data := postgres.StructToMap(&row)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in invoice row")
	}

	q := builder().
		Insert(invoicesTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicateNumber(invoice.FormatNumber(inv.Number))
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	return r.saveLines(ctx, inv.Number, inv.Content.Lines)
}

// FindByNumber loads an invoice and its lines.
func (r *InvoiceRepo) FindByNumber(ctx context.Context, number int64) (*invoice.Invoice, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"number": number})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row invoiceRow
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("invoice", invoice.FormatNumber(number))
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	inv := row.toDomain()
	lines, err := r.getLines(ctx, number)
	if err != nil {
		return nil, err
	}
	inv.Content.Lines = lines

	return inv, nil
}

// Replace swaps the stored content and sets the corrected flag. The number,
// the legacy flag and created_at are left untouched.
func (r *InvoiceRepo) Replace(ctx context.Context, number int64, content invoice.Content, corrected bool) error {
	row := rowFromInvoice(&invoice.Invoice{Number: number, Content: content})
	data := postgres.StructToMap(&row)
	delete(data, "number")
	delete(data, "is_corrected")
	delete(data, "is_legacy")
	delete(data, "created_at")
	delete(data, "updated_at")

	q := builder().
		Update(invoicesTable).
		SetMap(data).
		Set("is_corrected", corrected).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"number": number})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("invoice", invoice.FormatNumber(number))
	}

	return r.saveLines(ctx, number, content.Lines)
}

// FindHighestNumbered returns the invoice with the greatest number, without
// lines, or nil when the store is empty.
func (r *InvoiceRepo) FindHighestNumbered(ctx context.Context) (*invoice.Invoice, error) {
	q := r.baseSelect().
		OrderBy("number DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row invoiceRow
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get highest invoice: %w", err)
	}

	return row.toDomain(), nil
}

// FindNeighbors returns the invoices adjacent to number in numeric order.
// Either side may be nil. Lines are not loaded.
func (r *InvoiceRepo) FindNeighbors(ctx context.Context, number int64) (*invoice.Invoice, *invoice.Invoice, error) {
	prev, err := r.findAdjacent(ctx, squirrel.Lt{"number": number}, "number DESC")
	if err != nil {
		return nil, nil, err
	}

	next, err := r.findAdjacent(ctx, squirrel.Gt{"number": number}, "number ASC")
	if err != nil {
		return nil, nil, err
	}

	return prev, next, nil
}

func (r *InvoiceRepo) findAdjacent(ctx context.Context, cond squirrel.Sqlizer, orderBy string) (*invoice.Invoice, error) {
	q := r.baseSelect().
		Where(cond).
		OrderBy(orderBy).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row invoiceRow
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get adjacent invoice: %w", err)
	}

	return row.toDomain(), nil
}

// ScanDescending returns up to limit invoices ordered by number descending,
// lines included. A non-nil before restricts the scan to numbers strictly
// below it.
func (r *InvoiceRepo) ScanDescending(ctx context.Context, limit int, before *int64) ([]*invoice.Invoice, error) {
	q := r.baseSelect().
		OrderBy("number DESC").
		Limit(uint64(limit))

	if before != nil {
		q = q.Where(squirrel.Lt{"number": *before})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []invoiceRow
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("scan invoices: %w", err)
	}

	invoices := make([]*invoice.Invoice, len(rows))
	numbers := make([]int64, len(rows))
	byNumber := make(map[int64]*invoice.Invoice, len(rows))
	for i, row := range rows {
		inv := row.toDomain()
		invoices[i] = inv
		numbers[i] = inv.Number
		byNumber[inv.Number] = inv
	}

	if len(numbers) == 0 {
		return invoices, nil
	}

	// One round trip for all lines on the page.
	lq := builder().
		Select(lineColumns...).
		From(invoiceLinesTable).
		Where(squirrel.Eq{"invoice_number": numbers}).
		OrderBy("invoice_number", "line_no")

	lineSQL, lineArgs, err := lq.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []lineRow
	if err := pgxscan.Select(ctx, querier, &lines, lineSQL, lineArgs...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	for _, line := range lines {
		inv := byNumber[line.InvoiceNumber]
		inv.Content.Lines = append(inv.Content.Lines, line.toItem())
	}

	return invoices, nil
}

// getLines retrieves the lines of one invoice in line order.
func (r *InvoiceRepo) getLines(ctx context.Context, number int64) ([]invoice.LineItem, error) {
	q := builder().
		Select(lineColumns...).
		From(invoiceLinesTable).
		Where(squirrel.Eq{"invoice_number": number}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var rows []lineRow
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	items := make([]invoice.LineItem, len(rows))
	for i, row := range rows {
		items[i] = row.toItem()
	}

	return items, nil
}

// saveLines replaces the lines of an invoice (delete existing + insert new).
func (r *InvoiceRepo) saveLines(ctx context.Context, number int64, lines []invoice.LineItem) error {
	querier := r.tm.GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + invoiceLinesTable + " WHERE invoice_number = $1"
	if _, err := querier.Exec(ctx, deleteSQL, number); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := builder().
		Insert(invoiceLinesTable).
		Columns(lineColumns...)

	for i, line := range lines {
		q = q.Values(number, i+1, line.Description, line.Amount.Cents, line.Amount.Currency)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

func rowFromInvoice(inv *invoice.Invoice) invoiceRow {
	return invoiceRow{
		Number:           inv.Number,
		Date:             inv.Content.Date,
		SellerName:       inv.Content.Seller.Name,
		SellerStreet:     inv.Content.Seller.Street,
		SellerCity:       inv.Content.Seller.City,
		SellerPostalCode: inv.Content.Seller.PostalCode,
		SellerTaxID:      inv.Content.Seller.TaxID,
		BuyerName:        inv.Content.Buyer.Name,
		BuyerStreet:      inv.Content.Buyer.Street,
		BuyerCity:        inv.Content.Buyer.City,
		BuyerPostalCode:  inv.Content.Buyer.PostalCode,
		BuyerTaxID:       inv.Content.Buyer.TaxID,
		BankName:         inv.Content.BankTransfer.BankName,
		BankAccount:      inv.Content.BankTransfer.AccountNumber,
		IsCorrected:      inv.IsCorrected,
		IsLegacy:         inv.IsLegacy,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}

func (r invoiceRow) toDomain() *invoice.Invoice {
	return &invoice.Invoice{
		Number: r.Number,
		Content: invoice.Content{
			Date: invoice.DateOnly(r.Date),
			Seller: invoice.Address{
				Name:       r.SellerName,
				Street:     r.SellerStreet,
				City:       r.SellerCity,
				PostalCode: r.SellerPostalCode,
				TaxID:      r.SellerTaxID,
			},
			Buyer: invoice.Address{
				Name:       r.BuyerName,
				Street:     r.BuyerStreet,
				City:       r.BuyerCity,
				PostalCode: r.BuyerPostalCode,
				TaxID:      r.BuyerTaxID,
			},
			BankTransfer: invoice.BankTransferInfo{
				BankName:      r.BankName,
				AccountNumber: r.BankAccount,
			},
		},
		IsCorrected: r.IsCorrected,
		IsLegacy:    r.IsLegacy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r lineRow) toItem() invoice.LineItem {
	return invoice.LineItem{
		Description: r.Description,
		Amount:      types.NewAmount(r.AmountCents, r.Currency),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == postgres.CodeUniqueViolation
}
