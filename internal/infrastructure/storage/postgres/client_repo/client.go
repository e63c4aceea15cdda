// Package client_repo provides the PostgreSQL implementation of the client
// catalog persistence.
package client_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/id"
	"fakturo/internal/domain/client"
	"fakturo/internal/domain/invoice"
	"fakturo/internal/infrastructure/storage/postgres"
)

const clientsTable = "clients"

// clientRow mirrors the clients table.
type clientRow struct {
	ID                id.ID     `db:"id"`
	Nickname          string    `db:"nickname"`
	BillingName       string    `db:"billing_name"`
	BillingStreet     string    `db:"billing_street"`
	BillingCity       string    `db:"billing_city"`
	BillingPostalCode string    `db:"billing_postal_code"`
	BillingTaxID      string    `db:"billing_tax_id"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// ClientRepo implements client.Repository.
type ClientRepo struct {
	tm         *postgres.TxManager
	selectCols []string
}

var _ client.Repository = (*ClientRepo)(nil)

// NewClientRepo creates a new client repository.
func NewClientRepo(tm *postgres.TxManager) *ClientRepo {
	return &ClientRepo{
		tm:         tm,
		selectCols: postgres.ExtractDBColumns[clientRow](),
	}
}

func (r *ClientRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ClientRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(r.selectCols...).
		From(clientsTable)
}

// Insert persists a new client. A unique violation on the nickname maps to
// a duplicate error.
func (r *ClientRepo) Insert(ctx context.Context, c *client.Client) error {
	row := rowFromClient(c)
	data := postgres.StructToMap(&row)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in client row")
	}

	q := r.builder().
		Insert(clientsTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("client", "nickname", c.Nickname)
		}
		return fmt.Errorf("insert client: %w", err)
	}

	return nil
}

// GetByID retrieves a client.
func (r *ClientRepo) GetByID(ctx context.Context, clientID id.ID) (*client.Client, error) {
	return r.findOne(ctx, squirrel.Eq{"id": clientID}, clientID.String())
}

// GetByNickname retrieves a client by its unique nickname.
func (r *ClientRepo) GetByNickname(ctx context.Context, nickname string) (*client.Client, error) {
	return r.findOne(ctx, squirrel.Eq{"nickname": nickname}, nickname)
}

func (r *ClientRepo) findOne(ctx context.Context, cond squirrel.Sqlizer, key string) (*client.Client, error) {
	q := r.baseSelect().
		Where(cond).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row clientRow
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("client", key)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	return row.toDomain(), nil
}

// List returns all clients ordered by nickname.
func (r *ClientRepo) List(ctx context.Context) ([]*client.Client, error) {
	q := r.baseSelect().
		OrderBy("nickname")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []clientRow
	querier := r.tm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	clients := make([]*client.Client, len(rows))
	for i, row := range rows {
		clients[i] = row.toDomain()
	}

	return clients, nil
}

// Update replaces the stored client.
func (r *ClientRepo) Update(ctx context.Context, c *client.Client) error {
	row := rowFromClient(c)
	data := postgres.StructToMap(&row)
	delete(data, "id")
	delete(data, "created_at")
	delete(data, "updated_at")

	q := r.builder().
		Update(clientsTable).
		SetMap(data).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": c.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("client", "nickname", c.Nickname)
		}
		return fmt.Errorf("update client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("client", c.ID.String())
	}

	return nil
}

// Delete removes a client.
func (r *ClientRepo) Delete(ctx context.Context, clientID id.ID) error {
	q := r.builder().
		Delete(clientsTable).
		Where(squirrel.Eq{"id": clientID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.tm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("client", clientID.String())
	}

	return nil
}

func rowFromClient(c *client.Client) clientRow {
	return clientRow{
		ID:                c.ID,
		Nickname:          c.Nickname,
		BillingName:       c.Billing.Name,
		BillingStreet:     c.Billing.Street,
		BillingCity:       c.Billing.City,
		BillingPostalCode: c.Billing.PostalCode,
		BillingTaxID:      c.Billing.TaxID,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (r clientRow) toDomain() *client.Client {
	return &client.Client{
		ID:       r.ID,
		Nickname: r.Nickname,
		Billing: invoice.Address{
			Name:       r.BillingName,
			Street:     r.BillingStreet,
			City:       r.BillingCity,
			PostalCode: r.BillingPostalCode,
			TaxID:      r.BillingTaxID,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == postgres.CodeUniqueViolation
}
