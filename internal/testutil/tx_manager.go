package testutil

import (
	"context"

	"fakturo/internal/core/tx"
)

// txKey marks a context as being inside an in-memory transaction.
type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// TxManager runs transactions against an InMemoryInvoiceStore. A single
// mutex serializes them and a deep snapshot is restored when fn fails, so a
// failed operation leaves the store exactly as it was.
type TxManager struct {
	store *InMemoryInvoiceStore
}

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// NewTxManager creates a transaction manager bound to store.
func NewTxManager(store *InMemoryInvoiceStore) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction executes fn atomically. Nested calls join the enclosing
// transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snapshot := m.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.store.restore(snapshot)
		return err
	}
	return nil
}

// ReadOnly executes fn against a stable view of the store.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}
