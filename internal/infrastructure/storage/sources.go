package storage

import (
	"context"
	"fmt"

	"DealScanner/internal/domain"
)

type sourceRow struct {
	Number   int    `db:"source_number"`
	Name     string `db:"source_name"`
	URL      string `db:"source_url"`
	Method   string `db:"collection_method"`
	Category string `db:"category"`
	Active   bool   `db:"is_active"`
}

// ListSources returns the roster ordered by source number. Unknown methods are skipped.
func (r *PostgresRepository) ListSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := psql.Select("source_number", "source_name", "source_url", "collection_method", "category", "is_active").
		From("sources").
		OrderBy("source_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build source list: %w", err)
	}

	var rows []sourceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify("list sources", err)
	}

	sources := make([]domain.Source, 0, len(rows))
	for _, row := range rows {
		method, ok := domain.ParseCollectionMethod(row.Method)
		if !ok {
			continue
		}
		sources = append(sources, domain.Source{
			Number:   row.Number,
			Name:     row.Name,
			BaseURL:  row.URL,
			Method:   method,
			Category: row.Category,
			Active:   row.Active,
		})
	}
	return sources, nil
}

// UpsertSources writes the roster in one transaction.
func (r *PostgresRepository) UpsertSources(ctx context.Context, sources []domain.Source) error {
	if len(sources) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin source upsert: %w", err)
	}
	for _, src := range sources {
		if !domain.ValidSiteNumber(src.Number) {
			_ = tx.Rollback()
			return fmt.Errorf("source %q: number %d outside %d..%d", src.Name, src.Number, domain.MinSiteNumber, domain.MaxSiteNumber)
		}
		query, args, buildErr := psql.Insert("sources").
			Columns("source_number", "source_name", "source_url", "collection_method", "category", "is_active").
			Values(src.Number, src.Name, src.BaseURL, string(src.Method), src.Category, src.Active).
			Suffix(`ON CONFLICT (source_number) DO UPDATE SET
				source_name = EXCLUDED.source_name,
				source_url = EXCLUDED.source_url,
				collection_method = EXCLUDED.collection_method,
				category = EXCLUDED.category,
				is_active = EXCLUDED.is_active`).
			ToSql()
		if buildErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("build source upsert: %w", buildErr)
		}
		if _, execErr := tx.ExecContext(ctx, query, args...); execErr != nil {
			_ = tx.Rollback()
			return classify("upsert source", execErr)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit source upsert: %w", err)
	}
	return nil
}
