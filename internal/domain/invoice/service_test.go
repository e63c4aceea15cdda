package invoice_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/types"
	"fakturo/internal/domain/invoice"
	"fakturo/internal/testutil"
)

func newTestService(t *testing.T, startNumber int64) (*invoice.Service, *testutil.InMemoryInvoiceStore) {
	t.Helper()
	store := testutil.NewInMemoryInvoiceStore()
	svc := invoice.NewService(store, store, store, testutil.NewTxManager(store), startNumber)
	return svc, store
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func contentOn(t *testing.T, day string) invoice.Content {
	t.Helper()
	c := invoice.Content{
		Date: date(t, day),
		Seller: invoice.Address{
			Name:       "Soft & Code GmbH",
			Street:     "Hauptstr. 1",
			City:       "Berlin",
			PostalCode: "10115",
			TaxID:      "DE123456789",
		},
		Buyer: invoice.Address{
			Name:       "ACME Corp",
			Street:     "Langer Weg 2",
			City:       "Hamburg",
			PostalCode: "20095",
		},
		BankTransfer: invoice.BankTransferInfo{
			BankName:      "Commerzbank",
			AccountNumber: "DE02120300000000202051",
		},
	}
	c.AddLine("Consulting", types.NewAmount(120000, "EUR"))
	return c
}

func mustCreate(t *testing.T, svc *invoice.Service, day string) *invoice.Invoice {
	t.Helper()
	inv, err := svc.Create(context.Background(), contentOn(t, day))
	require.NoError(t, err)
	return inv
}

func TestCreate_AssignsContiguousNumbers(t *testing.T) {
	svc, store := newTestService(t, 1)

	days := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-03", "2024-01-05"}
	for i, day := range days {
		inv := mustCreate(t, svc, day)
		assert.Equal(t, int64(i+1), inv.Number)
		assert.False(t, inv.IsCorrected)
		assert.False(t, inv.IsLegacy)
	}
	assert.Equal(t, 5, store.Count())
}

func TestCreate_StartsAtConfiguredNumber(t *testing.T) {
	svc, _ := newTestService(t, 1000)

	first := mustCreate(t, svc, "2024-01-01")
	second := mustCreate(t, svc, "2024-01-02")

	assert.Equal(t, int64(1000), first.Number)
	assert.Equal(t, int64(1001), second.Number)
}

func TestCreate_ConcurrentAllSucceedWithDistinctNumbers(t *testing.T) {
	svc, store := newTestService(t, 1)

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int64
		errs    []error
	)
	content := contentOn(t, "2024-03-01")
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := svc.Create(context.Background(), content)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, inv.Number)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, numbers, workers)
	seen := make(map[int64]bool, workers)
	for _, n := range numbers {
		assert.GreaterOrEqual(t, n, int64(1))
		assert.LessOrEqual(t, n, int64(workers))
		assert.False(t, seen[n], "number %d allocated twice", n)
		seen[n] = true
	}
	assert.Equal(t, workers, store.Count())
}

func TestCreate_RejectsDateBeforeHighestNumbered(t *testing.T) {
	svc, store := newTestService(t, 1)

	mustCreate(t, svc, "2024-01-01")
	mustCreate(t, svc, "2024-01-02")

	_, err := svc.Create(context.Background(), contentOn(t, "2023-12-31"))
	require.Error(t, err)
	assert.True(t, apperror.IsOrderViolation(err))
	assert.Equal(t, 2, store.Count())

	// The rejected attempt must not burn a number.
	next := mustCreate(t, svc, "2024-01-02")
	assert.Equal(t, int64(3), next.Number)
}

func TestCreate_AllowsEqualDate(t *testing.T) {
	svc, _ := newTestService(t, 1)

	mustCreate(t, svc, "2024-01-01")
	inv := mustCreate(t, svc, "2024-01-01")
	assert.Equal(t, int64(2), inv.Number)
}

func TestCreate_IgnoresTimeOfDay(t *testing.T) {
	svc, _ := newTestService(t, 1)

	late := contentOn(t, "2024-01-01")
	late.Date = late.Date.Add(23*time.Hour + 59*time.Minute)
	_, err := svc.Create(context.Background(), late)
	require.NoError(t, err)

	// Earlier clock time on the same calendar day is not a violation.
	early := contentOn(t, "2024-01-01")
	early.Date = early.Date.Add(time.Minute)
	inv, err := svc.Create(context.Background(), early)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inv.Number)
	assert.Equal(t, date(t, "2024-01-01"), inv.Content.Date)
}

func TestCreate_RejectsZeroDate(t *testing.T) {
	svc, store := newTestService(t, 1)

	content := contentOn(t, "2024-01-01")
	content.Date = time.Time{}
	_, err := svc.Create(context.Background(), content)
	require.Error(t, err)
	assert.Equal(t, 0, store.Count())
}

func TestGet_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t, 1)

	content := contentOn(t, "2024-02-10")
	created, err := svc.Create(context.Background(), content)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, created.Number, got.Number)
	assert.Equal(t, content.Normalize(), got.Content)
	assert.False(t, got.IsCorrected)
	assert.False(t, got.IsLegacy)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t, 1)

	_, err := svc.Get(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestGet_RejectsMalformedNumber(t *testing.T) {
	svc, _ := newTestService(t, 1)

	for _, bad := range []string{"", "abc", "1.5", "-3", "0"} {
		_, err := svc.Get(context.Background(), bad)
		require.Error(t, err, "number %q", bad)
		assert.False(t, apperror.IsNotFound(err), "number %q must fail validation, not lookup", bad)
	}
}

func TestImport_InsertsLegacyAtExplicitNumber(t *testing.T) {
	svc, _ := newTestService(t, 1)

	imported, err := svc.Import(context.Background(), contentOn(t, "2023-11-02"), "997")
	require.NoError(t, err)
	assert.Equal(t, int64(997), imported.Number)
	assert.True(t, imported.IsLegacy)
	assert.False(t, imported.IsCorrected)

	got, err := svc.Get(context.Background(), "997")
	require.NoError(t, err)
	assert.True(t, got.IsLegacy)
}

func TestImport_RejectsTakenNumber(t *testing.T) {
	svc, store := newTestService(t, 1)

	mustCreate(t, svc, "2024-01-01")

	_, err := svc.Import(context.Background(), contentOn(t, "2023-01-01"), "1")
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicate(err))
	assert.Equal(t, 1, store.Count())
}

func TestImport_SkipsDateValidation(t *testing.T) {
	svc, _ := newTestService(t, 1)

	mustCreate(t, svc, "2024-06-01")

	// Far earlier than the newest invoice; legacy data may be out of order.
	imported, err := svc.Import(context.Background(), contentOn(t, "2021-01-01"), "999")
	require.NoError(t, err)
	assert.True(t, imported.IsLegacy)
}

func TestImport_AdvancesSequence(t *testing.T) {
	svc, _ := newTestService(t, 1)

	_, err := svc.Import(context.Background(), contentOn(t, "2023-12-01"), "999")
	require.NoError(t, err)

	created := mustCreate(t, svc, "2024-01-01")
	assert.Equal(t, int64(1000), created.Number)
}

func TestImport_LowNumberDoesNotRegressSequence(t *testing.T) {
	svc, _ := newTestService(t, 1)

	_, err := svc.Import(context.Background(), contentOn(t, "2023-12-01"), "999")
	require.NoError(t, err)
	mustCreate(t, svc, "2024-01-01") // 1000

	_, err = svc.Import(context.Background(), contentOn(t, "2020-05-05"), "5")
	require.NoError(t, err)

	created := mustCreate(t, svc, "2024-01-02")
	assert.Equal(t, int64(1001), created.Number)
}

func TestUpdate_ReplacesContentAndMarksCorrected(t *testing.T) {
	svc, _ := newTestService(t, 1)

	original := contentOn(t, "2024-01-10")
	_, err := svc.Create(context.Background(), original)
	require.NoError(t, err)

	replacement := contentOn(t, "2024-01-12")
	replacement.Lines = nil
	replacement.AddLine("Consulting, corrected scope", types.NewAmount(95000, "EUR"))

	updated, err := svc.Update(context.Background(), "1", replacement)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Number)
	assert.True(t, updated.IsCorrected)
	assert.Equal(t, replacement.Normalize(), updated.Content)

	got, err := svc.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, got.IsCorrected)
	assert.Equal(t, replacement.Normalize(), got.Content)
}

func TestUpdate_CorrectionFlagNeverResets(t *testing.T) {
	svc, _ := newTestService(t, 1)

	mustCreate(t, svc, "2024-01-10")

	_, err := svc.Update(context.Background(), "1", contentOn(t, "2024-01-11"))
	require.NoError(t, err)

	// A second correction, even back to the original date, stays corrected.
	updated, err := svc.Update(context.Background(), "1", contentOn(t, "2024-01-10"))
	require.NoError(t, err)
	assert.True(t, updated.IsCorrected)
}

func TestUpdate_OnlyTargetGetsFlagged(t *testing.T) {
	svc, _ := newTestService(t, 1)

	mustCreate(t, svc, "2024-01-01")
	mustCreate(t, svc, "2024-01-05")
	mustCreate(t, svc, "2024-01-10")

	_, err := svc.Update(context.Background(), "2", contentOn(t, "2024-01-06"))
	require.NoError(t, err)

	for _, n := range []string{"1", "3"} {
		got, err := svc.Get(context.Background(), n)
		require.NoError(t, err)
		assert.False(t, got.IsCorrected, "invoice %s must stay uncorrected", n)
	}
}

func TestUpdate_RejectsDateOutsideNeighbors(t *testing.T) {
	svc, _ := newTestService(t, 1)

	mustCreate(t, svc, "2024-01-01")
	original := contentOn(t, "2024-01-05")
	_, err := svc.Create(context.Background(), original)
	require.NoError(t, err)
	mustCreate(t, svc, "2024-01-10")

	tests := []struct {
		name string
		day  string
	}{
		{"before previous neighbor", "2023-12-31"},
		{"after next neighbor", "2024-01-11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), "2", contentOn(t, tt.day))
			require.Error(t, err)
			assert.True(t, apperror.IsOrderViolation(err))

			got, err := svc.Get(context.Background(), "2")
			require.NoError(t, err)
			assert.Equal(t, original.Normalize(), got.Content)
			assert.False(t, got.IsCorrected)
		})
	}
}

func TestUpdate_AllowsNeighborBoundaryDates(t *testing.T) {
	svc, _ := newTestService(t, 1)

	mustCreate(t, svc, "2024-01-01")
	mustCreate(t, svc, "2024-01-05")
	mustCreate(t, svc, "2024-01-10")

	for _, day := range []string{"2024-01-01", "2024-01-10"} {
		_, err := svc.Update(context.Background(), "2", contentOn(t, day))
		require.NoError(t, err, "date equal to a neighbor must pass")
	}
}

func TestUpdate_EndpointsAreHalfOpen(t *testing.T) {
	svc, _ := newTestService(t, 1)

	mustCreate(t, svc, "2024-01-05")
	mustCreate(t, svc, "2024-01-10")

	// Lowest number has no previous neighbor: any date up to the next works.
	_, err := svc.Update(context.Background(), "1", contentOn(t, "2019-01-01"))
	require.NoError(t, err)

	// Highest number has no next neighbor: any date from the previous works.
	_, err = svc.Update(context.Background(), "2", contentOn(t, "2030-12-31"))
	require.NoError(t, err)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService(t, 1)

	_, err := svc.Update(context.Background(), "7", contentOn(t, "2024-01-01"))
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdate_ArchivesPriorContent(t *testing.T) {
	svc, _ := newTestService(t, 1)

	v1 := contentOn(t, "2024-01-10")
	_, err := svc.Create(context.Background(), v1)
	require.NoError(t, err)

	v2 := contentOn(t, "2024-01-11")
	_, err = svc.Update(context.Background(), "1", v2)
	require.NoError(t, err)
	v3 := contentOn(t, "2024-01-12")
	_, err = svc.Update(context.Background(), "1", v3)
	require.NoError(t, err)

	revs, err := svc.Revisions(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, revs, 2)

	assert.Equal(t, 1, revs[0].Revision)
	assert.Equal(t, v1.Normalize(), revs[0].Content)
	assert.Equal(t, 2, revs[1].Revision)
	assert.Equal(t, v2.Normalize(), revs[1].Content)
}

func TestRevisions_NotFoundForUnknownInvoice(t *testing.T) {
	svc, _ := newTestService(t, 1)

	_, err := svc.Revisions(context.Background(), "12")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestLatest_PaginatesNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, 1)

	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		mustCreate(t, svc, day)
	}

	page1, err := svc.Latest(context.Background(), 2, "")
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.Equal(t, int64(5), page1.Items[0].Number)
	assert.Equal(t, int64(4), page1.Items[1].Number)
	assert.Equal(t, "4", page1.NextCursor)

	page2, err := svc.Latest(context.Background(), 2, page1.NextCursor)
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)
	assert.Equal(t, int64(3), page2.Items[0].Number)
	assert.Equal(t, int64(2), page2.Items[1].Number)
	assert.Equal(t, "2", page2.NextCursor)

	page3, err := svc.Latest(context.Background(), 2, page2.NextCursor)
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.Equal(t, int64(1), page3.Items[0].Number)
	assert.Empty(t, page3.NextCursor)
}

func TestLatest_FullFinalPageHasNoCursor(t *testing.T) {
	svc, _ := newTestService(t, 1)

	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"} {
		mustCreate(t, svc, day)
	}

	page1, err := svc.Latest(context.Background(), 2, "")
	require.NoError(t, err)
	assert.Equal(t, "3", page1.NextCursor)

	page2, err := svc.Latest(context.Background(), 2, page1.NextCursor)
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)
	assert.Empty(t, page2.NextCursor, "a full page ending at the oldest invoice carries no cursor")
}

func TestLatest_DefaultsLimit(t *testing.T) {
	svc, _ := newTestService(t, 1)

	mustCreate(t, svc, "2024-01-01")
	mustCreate(t, svc, "2024-01-02")

	page, err := svc.Latest(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Empty(t, page.NextCursor)
}

func TestLatest_RejectsMalformedCursor(t *testing.T) {
	svc, _ := newTestService(t, 1)

	_, err := svc.Latest(context.Background(), 2, "not-a-number")
	require.Error(t, err)
}

func TestLatest_EmptyStore(t *testing.T) {
	svc, _ := newTestService(t, 1)

	page, err := svc.Latest(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Empty(t, page.NextCursor)
}

func TestPeekNextNumber_DoesNotAllocate(t *testing.T) {
	svc, store := newTestService(t, 7)

	for i := 0; i < 3; i++ {
		got, err := svc.PeekNextNumber(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "7", got)
	}
	assert.Equal(t, 0, store.Count())

	created := mustCreate(t, svc, "2024-01-01")
	assert.Equal(t, int64(7), created.Number)

	got, err := svc.PeekNextNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "8", got)
}

func TestSequence_ConfigIrrelevantOnceInitialized(t *testing.T) {
	store := testutil.NewInMemoryInvoiceStore()
	tm := testutil.NewTxManager(store)

	seeded := invoice.NewService(store, store, store, tm, 5)
	mustCreate(t, seeded, "2024-01-01")

	// A service with no usable start value still works against an
	// initialized sequence.
	unconfigured := invoice.NewService(store, store, store, tm, 0)
	inv, err := unconfigured.Create(context.Background(), contentOn(t, "2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), inv.Number)

	got, err := unconfigured.PeekNextNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7", got)
}

func TestSequence_MissingConfigurationSurfaces(t *testing.T) {
	svc, store := newTestService(t, 0)

	_, err := svc.Create(context.Background(), contentOn(t, "2024-01-01"))
	require.Error(t, err)
	assert.True(t, apperror.IsConfigurationMissing(err))
	assert.Equal(t, 0, store.Count())

	_, err = svc.PeekNextNumber(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsConfigurationMissing(err))
}

func TestScenario_RejectionLeavesStoreIntact(t *testing.T) {
	svc, store := newTestService(t, 1)

	first := mustCreate(t, svc, "2024-01-01")
	assert.Equal(t, int64(1), first.Number)

	second := mustCreate(t, svc, "2024-01-02")
	assert.Equal(t, int64(2), second.Number)

	_, err := svc.Create(context.Background(), contentOn(t, "2023-12-31"))
	require.Error(t, err)
	assert.True(t, apperror.IsOrderViolation(err))

	assert.Equal(t, 2, store.Count())
	page, err := svc.Latest(context.Background(), 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Items[0].Number)
	assert.Equal(t, int64(1), page.Items[1].Number)
}
