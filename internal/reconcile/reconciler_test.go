package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DealScanner/internal/domain"
	"DealScanner/internal/infrastructure/storage"
	"DealScanner/internal/reconcile"
	"DealScanner/internal/retry"
)

var fastPolicy = retry.Policy{Attempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

func newReconciler(store *storage.MemoryStore) *reconcile.Reconciler {
	return reconcile.New(store, store, nil).WithPolicy(fastPolicy)
}

func amount(v float64) *float64 { return &v }

func TestReconcileCreatesThenLeavesUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	rec := newReconciler(store)

	_, err := store.SaveArticle(ctx, domain.RawArticle{URL: "https://www.etoday.co.kr/news/view/1", Title: "부스터즈 투자", SiteName: "이투데이", Score: 4})
	require.NoError(t, err)

	proposed := domain.Deal{
		CompanyName: "부스터스",
		Amount:      amount(200),
		NewsURL:     "https://www.etoday.co.kr/news/view/1",
		SiteName:    "이투데이",
		Score:       4,
	}
	outcome, err := rec.Reconcile(ctx, proposed)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreated, outcome)

	outcome, err = rec.Reconcile(ctx, proposed)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnchanged, outcome)

	deals, err := store.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.False(t, deals[0].CreatedAt.IsZero())
}

func TestReconcileUpdatesOnHigherScoreKeepingCreatedAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	created := time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)
	rec := newReconciler(store).WithClock(func() time.Time { return created })

	_, err := store.SaveArticle(ctx, domain.RawArticle{URL: "https://platum.kr/archives/1", Title: "A", SiteName: "플래텀", Score: 5})
	require.NoError(t, err)
	_, err = rec.Reconcile(ctx, domain.Deal{CompanyName: "에봄에이아이", NewsURL: "https://platum.kr/archives/1", SiteName: "플래텀", Score: 5})
	require.NoError(t, err)

	_, err = store.SaveArticle(ctx, domain.RawArticle{URL: "https://wowtale.net/2025/11/08/2", Title: "B", SiteName: "WOWTALE", Score: 8})
	require.NoError(t, err)

	rec.WithClock(func() time.Time { return created.Add(48 * time.Hour) })
	outcome, err := rec.Reconcile(ctx, domain.Deal{CompanyName: "에봄에이아이", NewsURL: "https://wowtale.net/2025/11/08/2", SiteName: "WOWTALE", Score: 8})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, outcome)

	deal, err := store.FindDeal(ctx, "에봄에이아이")
	require.NoError(t, err)
	assert.Equal(t, "https://wowtale.net/2025/11/08/2", deal.NewsURL)
	assert.True(t, deal.CreatedAt.Equal(created))

	outcome, err = rec.Reconcile(ctx, domain.Deal{CompanyName: "에봄에이아이", NewsURL: "https://platum.kr/archives/3", SiteName: "플래텀", Score: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnchanged, outcome, "lower score must not replace the citation")
}

func TestReconcileOverwritesNullCitation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	_, err := store.InsertDeal(ctx, domain.Deal{CompanyName: "엘리시젠", Stage: "시드"})
	require.NoError(t, err)

	outcome, err := newReconciler(store).Reconcile(ctx, domain.Deal{
		CompanyName: "엘리시젠",
		NewsURL:     "https://platum.kr/archives/9",
		SiteName:    "플래텀",
		Score:       3,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, outcome)
}

func TestReconcileRejectsAggregatorLabel(t *testing.T) {
	t.Parallel()

	_, err := newReconciler(storage.NewMemoryStore()).Reconcile(context.Background(), domain.Deal{CompanyName: "부스터스", SiteName: "Naver News"})
	assert.Error(t, err)
}

func TestReconcileSerializesPerCompany(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	rec := newReconciler(store)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := rec.Reconcile(ctx, domain.Deal{
				CompanyName: "부스터스",
				NewsURL:     fmt.Sprintf("https://platum.kr/archives/%d", i),
				SiteName:    "플래텀",
				Score:       i % 5,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	deals, err := store.ListDeals(ctx)
	require.NoError(t, err)
	assert.Len(t, deals, 1)
}

// flakyDeals wraps a store with scripted failures.
type flakyDeals struct {
	*storage.MemoryStore
	mu           sync.Mutex
	insertErrs   []error
	renumberErrs []error
	raceWith     *domain.Deal
}

func (f *flakyDeals) InsertDeal(ctx context.Context, d domain.Deal) (domain.Deal, error) {
	f.mu.Lock()
	if f.raceWith != nil {
		// Another writer lands the row between our read and our insert.
		race := *f.raceWith
		f.raceWith = nil
		f.mu.Unlock()
		if _, err := f.MemoryStore.InsertDeal(ctx, race); err != nil {
			return domain.Deal{}, err
		}
		return f.MemoryStore.InsertDeal(ctx, d)
	}
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		f.mu.Unlock()
		return domain.Deal{}, err
	}
	f.mu.Unlock()
	return f.MemoryStore.InsertDeal(ctx, d)
}

func (f *flakyDeals) Renumber(ctx context.Context) error {
	f.mu.Lock()
	if len(f.renumberErrs) > 0 {
		err := f.renumberErrs[0]
		f.renumberErrs = f.renumberErrs[1:]
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()
	return f.MemoryStore.Renumber(ctx)
}

func TestReconcileRetriesTransientWrite(t *testing.T) {
	t.Parallel()

	flaky := &flakyDeals{MemoryStore: storage.NewMemoryStore(), insertErrs: []error{errors.New("connection reset")}}
	rec := reconcile.New(flaky, flaky, nil).WithPolicy(fastPolicy)

	outcome, err := rec.Reconcile(context.Background(), domain.Deal{CompanyName: "부스터스", NewsURL: "https://a.example/1", Score: 4})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreated, outcome)
}

func TestReconcileMergesWriteConflict(t *testing.T) {
	t.Parallel()

	flaky := &flakyDeals{
		MemoryStore: storage.NewMemoryStore(),
		raceWith:    &domain.Deal{CompanyName: "부스터스", NewsURL: "https://a.example/old"},
	}
	rec := reconcile.New(flaky, flaky, nil).WithPolicy(fastPolicy)

	outcome, err := rec.Reconcile(context.Background(), domain.Deal{CompanyName: "부스터스", NewsURL: "https://a.example/new", SiteName: "이투데이", Score: 4})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdated, outcome)

	deal, err := flaky.FindDeal(context.Background(), "부스터스")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/new", deal.NewsURL)
}

func TestReconcileSurfacesPersistentFailure(t *testing.T) {
	t.Parallel()

	down := errors.New("connection refused")
	flaky := &flakyDeals{MemoryStore: storage.NewMemoryStore(), insertErrs: []error{down, down, down}}
	rec := reconcile.New(flaky, flaky, nil).WithPolicy(fastPolicy)

	_, err := rec.Reconcile(context.Background(), domain.Deal{CompanyName: "부스터스", NewsURL: "https://a.example/1", Score: 4})
	assert.ErrorIs(t, err, domain.ErrWriteFailed)
	assert.ErrorIs(t, err, down)
}

func TestRenumberFailureIsFatal(t *testing.T) {
	t.Parallel()

	down := errors.New("connection refused")
	flaky := &flakyDeals{MemoryStore: storage.NewMemoryStore(), renumberErrs: []error{down, down, down}}
	rec := reconcile.New(flaky, flaky, nil).WithPolicy(fastPolicy)

	assert.ErrorIs(t, rec.Renumber(context.Background()), domain.ErrRenumberFailed)

	recovering := &flakyDeals{MemoryStore: storage.NewMemoryStore(), renumberErrs: []error{down}}
	assert.NoError(t, reconcile.New(recovering, recovering, nil).WithPolicy(fastPolicy).Renumber(context.Background()))
}

func TestCleanupKeepsDealCitation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	profile, err := store.SaveArticle(ctx, domain.RawArticle{URL: "https://example.com/organizations/boosters", Title: "부스터스 투자 유치", SiteName: "example"})
	require.NoError(t, err)
	_, err = store.SaveArticle(ctx, domain.RawArticle{URL: "https://platum.kr/archives/2", Title: "XYZ 상장 기념 세미나 개최", SiteName: "플래텀"})
	require.NoError(t, err)
	kept, err := store.SaveArticle(ctx, domain.RawArticle{URL: "https://platum.kr/archives/3", Title: "부스터스 시리즈A 투자 유치", SiteName: "플래텀"})
	require.NoError(t, err)
	_, err = store.InsertDeal(ctx, domain.Deal{CompanyName: "부스터스", NewsURL: profile.URL, SiteName: "example"})
	require.NoError(t, err)

	deleted, err := newReconciler(store).Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	articles, err := store.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, kept.URL, articles[0].URL)

	deal, err := store.FindDeal(ctx, "부스터스")
	require.NoError(t, err)
	assert.Equal(t, profile.URL, deal.NewsURL)
}
