// Package invoice provides the invoice repository facade.
package invoice

import (
	"context"
	"time"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/tx"
	"fakturo/pkg/logger"
)

const (
	// DefaultPageSize is used when Latest is called without a limit.
	DefaultPageSize = 20
	// MaxPageSize caps a single Latest page.
	MaxPageSize = 100
)

// Service composes the allocator, the ordering rule and the store into the
// externally consumed contract. Every mutating operation runs in exactly one
// transaction; reads run in a read-only transaction so multi-statement loads
// see one consistent snapshot. The service holds no state beyond its wiring:
// all coordination lives in the store's transaction isolation.
type Service struct {
	repo      Repository
	seq       SequenceAllocator
	revisions RevisionArchive
	txManager tx.ReadOnlyManager

	// startNumber feeds sequence bootstrap; never consulted again once the
	// singleton record exists.
	startNumber int64
}

// NewService creates the invoice service.
func NewService(
	repo Repository,
	seq SequenceAllocator,
	revisions RevisionArchive,
	txManager tx.ReadOnlyManager,
	startNumber int64,
) *Service {
	return &Service{
		repo:        repo,
		seq:         seq,
		revisions:   revisions,
		txManager:   txManager,
		startNumber: startNumber,
	}
}

// Create assigns the next sequential number to content and persists it.
// The candidate date must not precede the current highest-numbered invoice's
// date; on violation nothing is written and OrderViolation is returned.
func (s *Service) Create(ctx context.Context, content Content) (*Invoice, error) {
	content = content.Normalize()
	if err := content.Validate(); err != nil {
		return nil, err
	}

	var created *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.seq.EnsureInitialized(ctx, s.startNumber); err != nil {
			return err
		}

		highest, err := s.repo.FindHighestNumbered(ctx)
		if err != nil {
			return err
		}
		var prevDate *time.Time
		if highest != nil {
			d := highest.Content.Date
			prevDate = &d
		}
		if err := ValidateOrdering(content.Date, prevDate, nil); err != nil {
			return err
		}

		number, err := s.seq.NextNumber(ctx)
		if err != nil {
			return err
		}

		created = NewInvoice(number, content)
		return s.repo.Insert(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice created",
		"number", FormatNumber(created.Number),
		"date", created.Content.Date.Format(time.DateOnly))

	return created, nil
}

// Import inserts a historical invoice at an explicit number. Date ordering is
// not validated: legacy data is allowed to be globally out of order. The
// sequence still advances so later creates never collide with imports.
func (s *Service) Import(ctx context.Context, content Content, number string) (*Invoice, error) {
	n, err := ParseNumber(number)
	if err != nil {
		return nil, err
	}
	content = content.Normalize()
	if err := content.Validate(); err != nil {
		return nil, err
	}

	var imported *Invoice
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.seq.EnsureInitialized(ctx, s.startNumber); err != nil {
			return err
		}

		_, err := s.repo.FindByNumber(ctx, n)
		if err == nil {
			return apperror.NewDuplicateNumber(number)
		}
		if !apperror.IsNotFound(err) {
			return err
		}

		imported = NewInvoice(n, content)
		imported.IsLegacy = true
		if err := s.repo.Insert(ctx, imported); err != nil {
			return err
		}

		return s.seq.AdvanceTo(ctx, n)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "legacy invoice imported",
		"number", FormatNumber(imported.Number))

	return imported, nil
}

// Get returns the invoice with the given number.
func (s *Service) Get(ctx context.Context, number string) (*Invoice, error) {
	n, err := ParseNumber(number)
	if err != nil {
		return nil, err
	}

	var inv *Invoice
	err = s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		inv, err = s.repo.FindByNumber(ctx, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Update replaces the content of an existing invoice. The new date must fit
// between the record's current numeric neighbors; on violation the stored
// record is left untouched. A successful update archives the prior content
// and sets IsCorrected, which never resets.
func (s *Service) Update(ctx context.Context, number string, content Content) (*Invoice, error) {
	n, err := ParseNumber(number)
	if err != nil {
		return nil, err
	}
	content = content.Normalize()
	if err := content.Validate(); err != nil {
		return nil, err
	}

	var (
		updated  *Invoice
		revision int
	)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByNumber(ctx, n)
		if err != nil {
			return err
		}

		prev, next, err := s.repo.FindNeighbors(ctx, n)
		if err != nil {
			return err
		}
		var prevDate, nextDate *time.Time
		if prev != nil {
			d := prev.Content.Date
			prevDate = &d
		}
		if next != nil {
			d := next.Content.Date
			nextDate = &d
		}
		if err := ValidateOrdering(content.Date, prevDate, nextDate); err != nil {
			return err
		}

		revision, err = s.revisions.Archive(ctx, n, existing.Content)
		if err != nil {
			return err
		}

		if err := s.repo.Replace(ctx, n, content, true); err != nil {
			return err
		}

		existing.Content = content
		existing.IsCorrected = true
		existing.UpdatedAt = time.Now().UTC()
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice corrected",
		"number", FormatNumber(n),
		"revision", revision)

	return updated, nil
}

// Latest returns up to limit invoices newest-first. A non-empty cursor (the
// number of the last item of the previous page) makes the scan start
// strictly below it. NextCursor is empty once the oldest invoice is reached.
func (s *Service) Latest(ctx context.Context, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	var before *int64
	if cursor != "" {
		n, err := ParseNumber(cursor)
		if err != nil {
			return Page{}, err
		}
		before = &n
	}

	var items []*Invoice
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		// One extra row distinguishes a full final page from a page with
		// more behind it.
		var err error
		items, err = s.repo.ScanDescending(ctx, limit+1, before)
		return err
	})
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = FormatNumber(page.Items[limit-1].Number)
	}
	return page, nil
}

// PeekNextNumber reports the number the next Create would assign, without
// allocating it.
func (s *Service) PeekNextNumber(ctx context.Context) (string, error) {
	var n int64
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.seq.PeekNext(ctx, s.startNumber)
		return err
	})
	if err != nil {
		return "", err
	}
	return FormatNumber(n), nil
}

// Revisions returns the correction history of an invoice, oldest first.
func (s *Service) Revisions(ctx context.Context, number string) ([]*Revision, error) {
	n, err := ParseNumber(number)
	if err != nil {
		return nil, err
	}

	var revs []*Revision
	err = s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		if _, err := s.repo.FindByNumber(ctx, n); err != nil {
			return err
		}
		revs, err = s.revisions.List(ctx, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	return revs, nil
}
