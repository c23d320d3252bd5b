package ports

import (
	"context"
	"time"

	"DealScanner/internal/domain"
)

// ArticleRepository is the append-mostly raw article log.
type ArticleRepository interface {
	// SaveArticle inserts the article on first sighting and refreshes its quality
	// flags on later sightings. It returns the row as stored.
	SaveArticle(ctx context.Context, article domain.RawArticle) (domain.RawArticle, error)
	FindArticle(ctx context.Context, url string) (domain.RawArticle, error)
	ListArticles(ctx context.Context) ([]domain.RawArticle, error)
	DeleteArticles(ctx context.Context, ids []int64) (int64, error)
}

// DealRepository exposes row-level deal operations; upsert rules live in reconcile.
type DealRepository interface {
	FindDeal(ctx context.Context, companyName string) (domain.Deal, error)
	InsertDeal(ctx context.Context, deal domain.Deal) (domain.Deal, error)
	UpdateDeal(ctx context.Context, deal domain.Deal) error
	ListDeals(ctx context.Context) ([]domain.Deal, error)
	Renumber(ctx context.Context) error
}

// SourceRepository reads and seeds the sources table.
type SourceRepository interface {
	ListSources(ctx context.Context) ([]domain.Source, error)
	UpsertSources(ctx context.Context, sources []domain.Source) error
}

// Store bundles every repository the orchestrator needs.
type Store interface {
	ArticleRepository
	DealRepository
	SourceRepository
}

// PageFetcher downloads publisher pages.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (domain.Page, error)
	// ResolveRedirect follows at most one redirect hop and returns the target URL.
	ResolveRedirect(ctx context.Context, url string) (string, error)
}

// SearchClient queries a web/news search API.
type SearchClient interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error)
}

// LLMClient sends one prompt to a language model.
type LLMClient interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// Notifier publishes the run digest to a chat channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
