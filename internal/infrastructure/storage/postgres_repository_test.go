package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"DealScanner/internal/domain"
	"DealScanner/internal/normalize"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresSaveArticleReturnsStoredRow(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	day := time.Date(2025, time.November, 8, 0, 0, 0, 0, normalize.KST)

	mock.ExpectQuery(`INSERT INTO articles .* ON CONFLICT \(article_url\) DO UPDATE`).
		WithArgs(
			int64(3), "이투데이", "https://www.etoday.co.kr", "부스터즈, 200억 규모 투자 유치",
			"https://www.etoday.co.kr/news/view/1", "2025-11-08", nil,
			true, false, false, false, false, 4,
		).
		WillReturnRows(sqlmock.NewRows(articleColumns).AddRow(
			int64(7), int64(3), "이투데이", "https://www.etoday.co.kr", "부스터즈, 200억 규모 투자 유치",
			"https://www.etoday.co.kr/news/view/1", time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC), nil,
			true, false, false, false, false, 4,
		))

	stored, err := repo.SaveArticle(context.Background(), domain.RawArticle{
		URL:         "https://www.etoday.co.kr/news/view/1",
		Title:       "부스터즈, 200억 규모 투자 유치",
		SiteName:    "이투데이",
		SiteNumber:  3,
		SiteURL:     "https://www.etoday.co.kr",
		PublishedAt: day,
		Flags:       domain.QualityFlags{HasAmount: true},
		Score:       4,
	})
	if err != nil {
		t.Fatalf("SaveArticle() error = %v", err)
	}
	if stored.ID != 7 || !stored.PublishedAt.Equal(day) {
		t.Fatalf("unexpected stored row: %+v", stored)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresInsertDealConflict(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`INSERT INTO deals`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.InsertDeal(context.Background(), domain.Deal{CompanyName: "부스터스"})
	if !errors.Is(err, domain.ErrWriteConflict) {
		t.Fatalf("expected write conflict, got %v", err)
	}
}

func TestPostgresFindDealNotFound(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .* FROM deals d LEFT JOIN articles a`).
		WithArgs("엘리시젠").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindDeal(context.Background(), "엘리시젠")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresFindDealResolvesScore(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	created := time.Date(2025, time.November, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM deals d LEFT JOIN articles a`).
		WithArgs("부스터스").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "number", "company_name", "industry", "stage", "investors", "amount",
			"news_title", "news_url", "site_name", "news_date", "created_at", "score",
		}).AddRow(
			int64(1), int64(1), "부스터스", nil, nil, nil, []byte("200.0"),
			"부스터즈, 200억 규모 투자 유치", "https://www.etoday.co.kr/news/view/1", "이투데이",
			time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC), created, int64(4),
		))

	deal, err := repo.FindDeal(context.Background(), "부스터스")
	if err != nil {
		t.Fatalf("FindDeal() error = %v", err)
	}
	if deal.Score != 4 || deal.Amount == nil || *deal.Amount != 200.0 || deal.Stage != "" {
		t.Fatalf("unexpected deal: %+v", deal)
	}
}

func TestPostgresUpdateDealKeepsCreatedAt(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE deals SET industry = \$1, stage = \$2, investors = \$3, amount = \$4, news_title = \$5, news_url = \$6, site_name = \$7, news_date = \$8 WHERE id = \$9`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateDeal(context.Background(), domain.Deal{ID: 5, NewsURL: "https://platum.kr/archives/1"})
	if err != nil {
		t.Fatalf("UpdateDeal() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRenumberIsOneStatement(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE deals AS d SET number = r.rn FROM \(\s*SELECT id, row_number\(\) OVER \(ORDER BY news_date DESC NULLS LAST, id DESC\)`).
		WillReturnResult(sqlmock.NewResult(0, 125))
	mock.ExpectCommit()

	if err := repo.Renumber(context.Background()); err != nil {
		t.Fatalf("Renumber() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRenumberFailureRollsBack(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE deals AS d`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if err := repo.Renumber(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresDeleteArticles(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectExec(`DELETE FROM articles WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	deleted, err := repo.DeleteArticles(context.Background(), []int64{3, 9})
	if err != nil || deleted != 2 {
		t.Fatalf("DeleteArticles() = %d, %v", deleted, err)
	}

	if n, err := repo.DeleteArticles(context.Background(), nil); n != 0 || err != nil {
		t.Fatalf("empty delete should be a no-op, got %d %v", n, err)
	}
}

func TestPostgresListSourcesSkipsUnknownMethods(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT source_number, source_name, source_url, collection_method, category, is_active FROM sources ORDER BY source_number`).
		WillReturnRows(sqlmock.NewRows([]string{"source_number", "source_name", "source_url", "collection_method", "category", "is_active"}).
			AddRow(1, "WOWTALE", "https://wowtale.net", "HTML", "media", true).
			AddRow(2, "legacy", "https://legacy.example", "FTP", "media", false).
			AddRow(100, "Naver Search", "https://openapi.naver.com", "SEARCH_API", "search", true))

	sources, err := repo.ListSources(context.Background())
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 2 || sources[1].Number != 100 || sources[1].Method != domain.MethodSearchAPI {
		t.Fatalf("unexpected sources: %+v", sources)
	}
}
