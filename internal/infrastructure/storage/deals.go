package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"DealScanner/internal/domain"
)

var dealColumns = []string{
	"d.id", "d.number", "d.company_name", "d.industry", "d.stage", "d.investors", "d.amount",
	"d.news_title", "d.news_url", "d.site_name", "d.news_date", "d.created_at",
	"COALESCE(a.score, 0) AS score",
}

// renumberSQL assigns a dense 1..N sequence in one statement, so no partial state is visible.
const renumberSQL = `UPDATE deals AS d
SET number = r.rn
FROM (
	SELECT id, row_number() OVER (ORDER BY news_date DESC NULLS LAST, id DESC) AS rn
	FROM deals
) AS r
WHERE d.id = r.id AND d.number IS DISTINCT FROM r.rn`

type dealRow struct {
	ID          int64           `db:"id"`
	Number      sql.NullInt64   `db:"number"`
	CompanyName string          `db:"company_name"`
	Industry    sql.NullString  `db:"industry"`
	Stage       sql.NullString  `db:"stage"`
	Investors   sql.NullString  `db:"investors"`
	Amount      sql.NullFloat64 `db:"amount"`
	NewsTitle   sql.NullString  `db:"news_title"`
	NewsURL     sql.NullString  `db:"news_url"`
	SiteName    sql.NullString  `db:"site_name"`
	NewsDate    sql.NullTime    `db:"news_date"`
	CreatedAt   time.Time       `db:"created_at"`
	Score       int             `db:"score"`
}

func (r dealRow) toDomain() domain.Deal {
	deal := domain.Deal{
		ID:          r.ID,
		Number:      int(r.Number.Int64),
		CompanyName: r.CompanyName,
		Industry:    r.Industry.String,
		Stage:       r.Stage.String,
		Investors:   r.Investors.String,
		NewsTitle:   r.NewsTitle.String,
		NewsURL:     r.NewsURL.String,
		SiteName:    r.SiteName.String,
		NewsDate:    dateValue(r.NewsDate),
		CreatedAt:   r.CreatedAt,
		Score:       r.Score,
	}
	if r.Amount.Valid {
		amount := r.Amount.Float64
		deal.Amount = &amount
	}
	return deal
}

func selectDeals() sq.SelectBuilder {
	return psql.Select(dealColumns...).
		From("deals d").
		LeftJoin("articles a ON a.article_url = d.news_url")
}

// FindDeal returns domain.ErrNotFound when the company has no deal.
func (r *PostgresRepository) FindDeal(ctx context.Context, companyName string) (domain.Deal, error) {
	query, args, err := selectDeals().
		Where(sq.Eq{"d.company_name": companyName}).
		ToSql()
	if err != nil {
		return domain.Deal{}, fmt.Errorf("build deal select: %w", err)
	}

	var row dealRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return domain.Deal{}, classify("find deal", err)
	}
	return row.toDomain(), nil
}

// InsertDeal creates a row; a duplicate company maps to domain.ErrWriteConflict.
func (r *PostgresRepository) InsertDeal(ctx context.Context, deal domain.Deal) (domain.Deal, error) {
	createdAt := deal.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query, args, err := psql.Insert("deals").
		Columns("company_name", "industry", "stage", "investors", "amount",
			"news_title", "news_url", "site_name", "news_date", "created_at").
		Values(
			deal.CompanyName,
			nullString(deal.Industry),
			nullString(deal.Stage),
			nullString(deal.Investors),
			nullFloat(deal.Amount),
			nullString(deal.NewsTitle),
			nullString(deal.NewsURL),
			nullString(deal.SiteName),
			dateParam(deal.NewsDate),
			createdAt,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return domain.Deal{}, fmt.Errorf("build deal insert: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&deal.ID, &deal.CreatedAt); err != nil {
		return domain.Deal{}, classify("insert deal", err)
	}
	return deal, nil
}

// UpdateDeal overwrites every column except created_at and number.
func (r *PostgresRepository) UpdateDeal(ctx context.Context, deal domain.Deal) error {
	query, args, err := psql.Update("deals").
		Set("industry", nullString(deal.Industry)).
		Set("stage", nullString(deal.Stage)).
		Set("investors", nullString(deal.Investors)).
		Set("amount", nullFloat(deal.Amount)).
		Set("news_title", nullString(deal.NewsTitle)).
		Set("news_url", nullString(deal.NewsURL)).
		Set("site_name", nullString(deal.SiteName)).
		Set("news_date", dateParam(deal.NewsDate)).
		Where(sq.Eq{"id": deal.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deal update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify("update deal", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update deal %d: %w", deal.ID, domain.ErrNotFound)
	}
	return nil
}

// ListDeals returns all deals in number order.
func (r *PostgresRepository) ListDeals(ctx context.Context) ([]domain.Deal, error) {
	query, args, err := selectDeals().
		OrderBy("d.number NULLS LAST", "d.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build deal list: %w", err)
	}

	var rows []dealRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify("list deals", err)
	}

	deals := make([]domain.Deal, 0, len(rows))
	for _, row := range rows {
		deals = append(deals, row.toDomain())
	}
	return deals, nil
}

// Renumber runs the single-statement renumbering inside a transaction.
func (r *PostgresRepository) Renumber(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin renumber: %w", err)
	}
	if _, err := tx.ExecContext(ctx, renumberSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("renumber deals: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit renumber: %w", err)
	}
	return nil
}
