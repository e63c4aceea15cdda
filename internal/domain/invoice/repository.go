package invoice

import (
	"context"
)

// Repository defines keyed persistence for invoice records. Implementations
// must honor the transaction in ctx when one is open: every mutating facade
// operation runs inside exactly one transaction.
type Repository interface {
	// Insert persists a new invoice with its lines. Fails with a duplicate
	// error when the number is already used.
	Insert(ctx context.Context, inv *Invoice) error

	// FindByNumber loads an invoice with its lines. NotFound when absent.
	FindByNumber(ctx context.Context, number int64) (*Invoice, error)

	// Replace swaps the stored content wholesale and sets the corrected
	// flag. The number never changes. NotFound when absent.
	Replace(ctx context.Context, number int64, content Content, corrected bool) error

	// FindHighestNumbered returns the invoice with the greatest number, or
	// nil when the store is empty. Lines are not loaded.
	FindHighestNumbered(ctx context.Context) (*Invoice, error)

	// FindNeighbors returns the invoices with the greatest number below and
	// the smallest number above the given one. Either may be nil. Lines are
	// not loaded.
	FindNeighbors(ctx context.Context, number int64) (prev, next *Invoice, err error)

	// ScanDescending returns up to limit invoices ordered by number
	// descending, with lines loaded. A non-nil before bound restricts the
	// scan to numbers strictly below it (exclusive cursor).
	ScanDescending(ctx context.Context, limit int, before *int64) ([]*Invoice, error)
}

// SequenceAllocator owns the singleton "last issued number" record. All
// methods participate in the caller's transaction; the store's isolation is
// what serializes concurrent increments.
type SequenceAllocator interface {
	// EnsureInitialized bootstraps the singleton with lastNumber =
	// startNumber-1 when absent, so the first allocation yields startNumber.
	// No-op when the record exists. Safe to call on every operation.
	EnsureInitialized(ctx context.Context, startNumber int64) error

	// NextNumber increments the last issued number by one and returns it.
	// Two concurrent callers never observe the same value.
	NextNumber(ctx context.Context) (int64, error)

	// AdvanceTo raises the last issued number to n when n is greater.
	// Import only; the counter never decreases.
	AdvanceTo(ctx context.Context, n int64) error

	// PeekNext returns the number the next allocation would yield, without
	// mutating anything. With no singleton record yet it reports the
	// configured start number and does not create the record.
	PeekNext(ctx context.Context, startNumber int64) (int64, error)
}

// RevisionArchive stores a snapshot of the content every correction
// replaces, within the caller's transaction.
type RevisionArchive interface {
	// Archive stores prior as the next revision of the invoice and returns
	// the assigned revision number (1-based).
	Archive(ctx context.Context, number int64, prior Content) (int, error)

	// List returns all revisions of an invoice, oldest first.
	List(ctx context.Context, number int64) ([]*Revision, error)
}

// Page is one page of a descending invoice scan. NextCursor is the number of
// the last item, or empty once the scan reached the oldest invoice.
type Page struct {
	Items      []*Invoice `json:"items"`
	NextCursor string     `json:"nextCursor,omitempty"`
}
