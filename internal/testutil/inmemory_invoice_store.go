// Package testutil provides in-memory implementations of the persistence
// contracts for service-level tests. The store behaves like the real one in
// every way the services depend on: numbers are unique, the sequence is a
// singleton, and a transaction either commits whole or leaves no trace.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/id"
	"fakturo/internal/domain/invoice"
)

const startNumberSetting = "invoicing.start_number"

// InMemoryInvoiceStore implements invoice.Repository,
// invoice.SequenceAllocator and invoice.RevisionArchive on plain maps.
type InMemoryInvoiceStore struct {
	mu          sync.Mutex
	invoices    map[int64]*invoice.Invoice
	lastNumber  int64
	initialized bool
	revisions   map[int64][]*invoice.Revision
}

var (
	_ invoice.Repository        = (*InMemoryInvoiceStore)(nil)
	_ invoice.SequenceAllocator = (*InMemoryInvoiceStore)(nil)
	_ invoice.RevisionArchive   = (*InMemoryInvoiceStore)(nil)
)

// NewInMemoryInvoiceStore creates an empty in-memory invoice store.
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		invoices:  make(map[int64]*invoice.Invoice),
		revisions: make(map[int64][]*invoice.Revision),
	}
}

// enter locks the store unless the context already carries a transaction,
// in which case the transaction manager holds the lock.
func (s *InMemoryInvoiceStore) enter(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *InMemoryInvoiceStore) Insert(ctx context.Context, inv *invoice.Invoice) error {
	defer s.enter(ctx)()

	if _, exists := s.invoices[inv.Number]; exists {
		return apperror.NewDuplicateNumber(invoice.FormatNumber(inv.Number))
	}
	s.invoices[inv.Number] = copyInvoice(inv)
	return nil
}

func (s *InMemoryInvoiceStore) FindByNumber(ctx context.Context, number int64) (*invoice.Invoice, error) {
	defer s.enter(ctx)()

	inv, ok := s.invoices[number]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoice.FormatNumber(number))
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) Replace(ctx context.Context, number int64, content invoice.Content, corrected bool) error {
	defer s.enter(ctx)()

	inv, ok := s.invoices[number]
	if !ok {
		return apperror.NewNotFound("invoice", invoice.FormatNumber(number))
	}
	inv.Content = copyContent(content)
	inv.IsCorrected = corrected
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryInvoiceStore) FindHighestNumbered(ctx context.Context) (*invoice.Invoice, error) {
	defer s.enter(ctx)()

	var highest *invoice.Invoice
	for _, inv := range s.invoices {
		if highest == nil || inv.Number > highest.Number {
			highest = inv
		}
	}
	if highest == nil {
		return nil, nil
	}
	return copyWithoutLines(highest), nil
}

func (s *InMemoryInvoiceStore) FindNeighbors(ctx context.Context, number int64) (*invoice.Invoice, *invoice.Invoice, error) {
	defer s.enter(ctx)()

	var prev, next *invoice.Invoice
	for _, inv := range s.invoices {
		if inv.Number < number && (prev == nil || inv.Number > prev.Number) {
			prev = inv
		}
		if inv.Number > number && (next == nil || inv.Number < next.Number) {
			next = inv
		}
	}
	return copyWithoutLines(prev), copyWithoutLines(next), nil
}

func (s *InMemoryInvoiceStore) ScanDescending(ctx context.Context, limit int, before *int64) ([]*invoice.Invoice, error) {
	defer s.enter(ctx)()

	numbers := make([]int64, 0, len(s.invoices))
	for n := range s.invoices {
		if before != nil && n >= *before {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] > numbers[j] })

	if limit < len(numbers) {
		numbers = numbers[:limit]
	}

	result := make([]*invoice.Invoice, len(numbers))
	for i, n := range numbers {
		result[i] = copyInvoice(s.invoices[n])
	}
	return result, nil
}

func (s *InMemoryInvoiceStore) EnsureInitialized(ctx context.Context, startNumber int64) error {
	defer s.enter(ctx)()

	if s.initialized {
		return nil
	}
	if startNumber < 1 {
		return apperror.NewConfigurationMissing(startNumberSetting)
	}
	s.lastNumber = startNumber - 1
	s.initialized = true
	return nil
}

func (s *InMemoryInvoiceStore) NextNumber(ctx context.Context) (int64, error) {
	defer s.enter(ctx)()

	if !s.initialized {
		return 0, apperror.NewConfigurationMissing(startNumberSetting)
	}
	s.lastNumber++
	return s.lastNumber, nil
}

func (s *InMemoryInvoiceStore) AdvanceTo(ctx context.Context, n int64) error {
	defer s.enter(ctx)()

	if !s.initialized {
		return apperror.NewConfigurationMissing(startNumberSetting)
	}
	if n > s.lastNumber {
		s.lastNumber = n
	}
	return nil
}

func (s *InMemoryInvoiceStore) PeekNext(ctx context.Context, startNumber int64) (int64, error) {
	defer s.enter(ctx)()

	if !s.initialized {
		if startNumber < 1 {
			return 0, apperror.NewConfigurationMissing(startNumberSetting)
		}
		return startNumber, nil
	}
	return s.lastNumber + 1, nil
}

func (s *InMemoryInvoiceStore) Archive(ctx context.Context, number int64, prior invoice.Content) (int, error) {
	defer s.enter(ctx)()

	next := len(s.revisions[number]) + 1
	s.revisions[number] = append(s.revisions[number], &invoice.Revision{
		ID:            id.New(),
		InvoiceNumber: number,
		Revision:      next,
		Content:       copyContent(prior),
		CreatedAt:     time.Now().UTC(),
	})
	return next, nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, number int64) ([]*invoice.Revision, error) {
	defer s.enter(ctx)()

	revs := s.revisions[number]
	result := make([]*invoice.Revision, len(revs))
	for i, rev := range revs {
		result[i] = copyRevision(rev)
	}
	return result, nil
}

// Count reports how many invoices the store holds.
func (s *InMemoryInvoiceStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

// state captures a deep copy of everything the store holds.
type state struct {
	invoices    map[int64]*invoice.Invoice
	lastNumber  int64
	initialized bool
	revisions   map[int64][]*invoice.Revision
}

func (s *InMemoryInvoiceStore) snapshot() state {
	invoices := make(map[int64]*invoice.Invoice, len(s.invoices))
	for n, inv := range s.invoices {
		invoices[n] = copyInvoice(inv)
	}
	revisions := make(map[int64][]*invoice.Revision, len(s.revisions))
	for n, revs := range s.revisions {
		cp := make([]*invoice.Revision, len(revs))
		for i, rev := range revs {
			cp[i] = copyRevision(rev)
		}
		revisions[n] = cp
	}
	return state{
		invoices:    invoices,
		lastNumber:  s.lastNumber,
		initialized: s.initialized,
		revisions:   revisions,
	}
}

func (s *InMemoryInvoiceStore) restore(st state) {
	s.invoices = st.invoices
	s.lastNumber = st.lastNumber
	s.initialized = st.initialized
	s.revisions = st.revisions
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	cp := *inv
	cp.Content = copyContent(inv.Content)
	return &cp
}

func copyWithoutLines(inv *invoice.Invoice) *invoice.Invoice {
	cp := copyInvoice(inv)
	if cp != nil {
		cp.Content.Lines = nil
	}
	return cp
}

func copyContent(c invoice.Content) invoice.Content {
	if c.Lines != nil {
		lines := make([]invoice.LineItem, len(c.Lines))
		copy(lines, c.Lines)
		c.Lines = lines
	}
	return c
}

func copyRevision(rev *invoice.Revision) *invoice.Revision {
	cp := *rev
	cp.Content = copyContent(rev.Content)
	return &cp
}
