package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"DealScanner/internal/domain"
)

var articleColumns = []string{
	"id", "site_number", "site_name", "site_url", "article_title", "article_url",
	"published_date", "content_snippet", "has_amount", "has_investors", "has_stage",
	"has_industry", "has_location", "score",
}

type articleRow struct {
	ID            int64          `db:"id"`
	SiteNumber    sql.NullInt64  `db:"site_number"`
	SiteName      string         `db:"site_name"`
	SiteURL       sql.NullString `db:"site_url"`
	Title         string         `db:"article_title"`
	URL           string         `db:"article_url"`
	PublishedDate sql.NullTime   `db:"published_date"`
	Snippet       sql.NullString `db:"content_snippet"`
	HasAmount     bool           `db:"has_amount"`
	HasInvestors  bool           `db:"has_investors"`
	HasStage      bool           `db:"has_stage"`
	HasIndustry   bool           `db:"has_industry"`
	HasLocation   bool           `db:"has_location"`
	Score         int            `db:"score"`
}

func (r articleRow) toDomain() domain.RawArticle {
	return domain.RawArticle{
		ID:          r.ID,
		URL:         r.URL,
		Title:       r.Title,
		SiteName:    r.SiteName,
		SiteNumber:  int(r.SiteNumber.Int64),
		SiteURL:     r.SiteURL.String,
		PublishedAt: dateValue(r.PublishedDate),
		Snippet:     r.Snippet.String,
		Flags: domain.QualityFlags{
			HasAmount:    r.HasAmount,
			HasInvestors: r.HasInvestors,
			HasStage:     r.HasStage,
			HasIndustry:  r.HasIndustry,
			HasLocation:  r.HasLocation,
		},
		Score: r.Score,
	}
}

// SaveArticle inserts on first sighting. Later sightings only refresh the flags and score,
// so the stored publisher and date stay those of the first sighting.
func (r *PostgresRepository) SaveArticle(ctx context.Context, article domain.RawArticle) (domain.RawArticle, error) {
	if !domain.ValidSiteNumber(article.SiteNumber) {
		article.SiteNumber = 0
	}

	query, args, err := psql.Insert("articles").
		Columns(articleColumns[1:]...).
		Values(
			nullInt(article.SiteNumber),
			article.SiteName,
			nullString(article.SiteURL),
			article.Title,
			article.URL,
			dateParam(article.PublishedAt),
			nullString(article.Snippet),
			article.Flags.HasAmount,
			article.Flags.HasInvestors,
			article.Flags.HasStage,
			article.Flags.HasIndustry,
			article.Flags.HasLocation,
			article.Score,
		).
		Suffix(`ON CONFLICT (article_url) DO UPDATE SET
			has_amount = EXCLUDED.has_amount,
			has_investors = EXCLUDED.has_investors,
			has_stage = EXCLUDED.has_stage,
			has_industry = EXCLUDED.has_industry,
			has_location = EXCLUDED.has_location,
			score = EXCLUDED.score
			RETURNING ` + strings.Join(articleColumns, ", ")).
		ToSql()
	if err != nil {
		return domain.RawArticle{}, fmt.Errorf("build article upsert: %w", err)
	}

	var row articleRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return domain.RawArticle{}, classify("upsert article", err)
	}
	return row.toDomain(), nil
}

// FindArticle returns domain.ErrNotFound when url is not in the log.
func (r *PostgresRepository) FindArticle(ctx context.Context, url string) (domain.RawArticle, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"article_url": url}).
		ToSql()
	if err != nil {
		return domain.RawArticle{}, fmt.Errorf("build article select: %w", err)
	}

	var row articleRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return domain.RawArticle{}, classify("find article", err)
	}
	return row.toDomain(), nil
}

// ListArticles returns the whole log ordered by id.
func (r *PostgresRepository) ListArticles(ctx context.Context) ([]domain.RawArticle, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article list: %w", err)
	}

	var rows []articleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify("list articles", err)
	}

	articles := make([]domain.RawArticle, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, row.toDomain())
	}
	return articles, nil
}

// DeleteArticles removes the given rows and reports how many were deleted.
func (r *PostgresRepository) DeleteArticles(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := psql.Delete("articles").
		Where("id = ANY(?)", pq.Array(ids)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build article delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify("delete articles", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}
