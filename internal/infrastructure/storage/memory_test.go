package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DealScanner/internal/domain"
	"DealScanner/internal/normalize"
)

func day(offset int) time.Time {
	return time.Date(2025, time.January, 1, 0, 0, 0, 0, normalize.KST).AddDate(0, 0, offset)
}

func TestMemorySaveArticleFirstSightingWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.SaveArticle(ctx, domain.RawArticle{URL: "https://platum.kr/archives/1", Title: "A", SiteName: "플래텀", PublishedAt: day(3), Score: 2})
	require.NoError(t, err)

	again, err := store.SaveArticle(ctx, domain.RawArticle{URL: "https://platum.kr/archives/1", Title: "B", SiteName: "다른곳", PublishedAt: day(5), Score: 6})
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "A", again.Title)
	assert.Equal(t, "플래텀", again.SiteName)
	assert.True(t, again.PublishedAt.Equal(day(3)))
	assert.Equal(t, 6, again.Score)

	all, err := store.ListArticles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryInsertDealUniqueCompany(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.InsertDeal(ctx, domain.Deal{CompanyName: "부스터스"})
	require.NoError(t, err)

	_, err = store.InsertDeal(ctx, domain.Deal{CompanyName: "부스터스"})
	assert.ErrorIs(t, err, domain.ErrWriteConflict)
}

func TestMemoryRenumberAfterInsertion(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name      string
		date      time.Time
		wantFirst bool
	}{
		{name: "latest", date: day(200), wantFirst: true},
		{name: "older", date: day(-10), wantFirst: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := NewMemoryStore()
			for i := 0; i < 124; i++ {
				_, err := store.InsertDeal(ctx, domain.Deal{CompanyName: fmt.Sprintf("company-%03d", i), NewsDate: day(i)})
				require.NoError(t, err)
			}
			require.NoError(t, store.Renumber(ctx))

			inserted, err := store.InsertDeal(ctx, domain.Deal{CompanyName: "new", NewsDate: tc.date})
			require.NoError(t, err)
			require.NoError(t, store.Renumber(ctx))

			deals, err := store.ListDeals(ctx)
			require.NoError(t, err)
			require.Len(t, deals, 125)
			for i, d := range deals {
				assert.Equal(t, i+1, d.Number)
				if i > 0 {
					assert.True(t, RecencyLess(deals[i-1], d), "order broken at %d", i)
				}
			}

			found, err := store.FindDeal(ctx, "new")
			require.NoError(t, err)
			assert.Equal(t, inserted.ID, found.ID)
			assert.Equal(t, tc.wantFirst, found.Number == 1)
		})
	}
}

func TestMemoryDealScoreFollowsArticle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.SaveArticle(ctx, domain.RawArticle{URL: "https://platum.kr/archives/1", Title: "A", SiteName: "플래텀", Score: 7})
	require.NoError(t, err)
	_, err = store.InsertDeal(ctx, domain.Deal{CompanyName: "에봄에이아이", NewsURL: "https://platum.kr/archives/1"})
	require.NoError(t, err)

	deal, err := store.FindDeal(ctx, "에봄에이아이")
	require.NoError(t, err)
	assert.Equal(t, 7, deal.Score)
}

func TestSnapshotCopiesTables(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := NewMemoryStore()
	_, err := src.SaveArticle(ctx, domain.RawArticle{URL: "https://platum.kr/archives/1", Title: "A", SiteName: "플래텀"})
	require.NoError(t, err)
	_, err = src.InsertDeal(ctx, domain.Deal{CompanyName: "부스터스"})
	require.NoError(t, err)
	require.NoError(t, src.UpsertSources(ctx, []domain.Source{{Number: 100, Name: "Naver", Method: domain.MethodSearchAPI, Active: true}}))

	copyStore, err := Snapshot(ctx, src)
	require.NoError(t, err)

	_, err = copyStore.InsertDeal(ctx, domain.Deal{CompanyName: "엘리시젠"})
	require.NoError(t, err)

	original, err := src.ListDeals(ctx)
	require.NoError(t, err)
	assert.Len(t, original, 1, "snapshot writes must not reach the source store")

	sources, err := copyStore.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, sources, 1)

	assert.Error(t, copyStore.UpsertSources(ctx, []domain.Source{{Number: 101, Name: "too high"}}))
}
