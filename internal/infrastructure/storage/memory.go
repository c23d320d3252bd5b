package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"DealScanner/internal/domain"
	"DealScanner/internal/ports"
)

// MemoryStore keeps every table in process memory. It backs dry runs and tests
// and follows the same write rules as PostgresRepository.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[int64]domain.RawArticle
	byURL    map[string]int64
	deals    map[int64]domain.Deal
	sources  map[int]domain.Source
	nextID   int64
	now      func() time.Time
}

var _ ports.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: map[int64]domain.RawArticle{},
		byURL:    map[string]int64{},
		deals:    map[int64]domain.Deal{},
		sources:  map[int]domain.Source{},
		now:      time.Now,
	}
}

// Snapshot copies every table of src into a new MemoryStore.
func Snapshot(ctx context.Context, src ports.Store) (*MemoryStore, error) {
	store := NewMemoryStore()

	articles, err := src.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot articles: %w", err)
	}
	deals, err := src.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot deals: %w", err)
	}
	sources, err := src.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot sources: %w", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, a := range articles {
		store.articles[a.ID] = a
		store.byURL[a.URL] = a.ID
		store.nextID = max(store.nextID, a.ID)
	}
	for _, d := range deals {
		store.deals[d.ID] = d
		store.nextID = max(store.nextID, d.ID)
	}
	for _, s := range sources {
		store.sources[s.Number] = s
	}
	return store, nil
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// SaveArticle mirrors the Postgres upsert: first sighting wins, flags refresh.
func (m *MemoryStore) SaveArticle(_ context.Context, article domain.RawArticle) (domain.RawArticle, error) {
	if article.URL == "" {
		return domain.RawArticle{}, fmt.Errorf("save article: empty url")
	}
	if !domain.ValidSiteNumber(article.SiteNumber) {
		article.SiteNumber = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byURL[article.URL]; ok {
		stored := m.articles[id]
		stored.Flags = article.Flags
		stored.Score = article.Score
		m.articles[id] = stored
		return persistedArticle(stored), nil
	}

	article.ID = m.id()
	stored := persistedArticle(article)
	m.articles[article.ID] = stored
	m.byURL[article.URL] = article.ID
	return stored, nil
}

// persistedArticle drops the fields that have no column.
func persistedArticle(a domain.RawArticle) domain.RawArticle {
	return domain.RawArticle{
		ID:          a.ID,
		URL:         a.URL,
		Title:       a.Title,
		SiteName:    a.SiteName,
		SiteNumber:  a.SiteNumber,
		SiteURL:     a.SiteURL,
		PublishedAt: a.PublishedAt,
		Snippet:     a.Snippet,
		Flags:       a.Flags,
		Score:       a.Score,
	}
}

func (m *MemoryStore) FindArticle(_ context.Context, url string) (domain.RawArticle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byURL[url]
	if !ok {
		return domain.RawArticle{}, fmt.Errorf("find article %s: %w", url, domain.ErrNotFound)
	}
	return m.articles[id], nil
}

func (m *MemoryStore) ListArticles(_ context.Context) ([]domain.RawArticle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RawArticle, 0, len(m.articles))
	for _, a := range m.articles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DeleteArticles(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		a, ok := m.articles[id]
		if !ok {
			continue
		}
		delete(m.articles, id)
		delete(m.byURL, a.URL)
		deleted++
	}
	return deleted, nil
}

func (m *MemoryStore) FindDeal(_ context.Context, companyName string) (domain.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.deals {
		if d.CompanyName == companyName {
			return m.withScore(d), nil
		}
	}
	return domain.Deal{}, fmt.Errorf("find deal %s: %w", companyName, domain.ErrNotFound)
}

// withScore resolves the score of the cited article, like the Postgres LEFT JOIN.
func (m *MemoryStore) withScore(d domain.Deal) domain.Deal {
	d.Score = 0
	if id, ok := m.byURL[d.NewsURL]; ok && d.NewsURL != "" {
		d.Score = m.articles[id].Score
	}
	return d
}

func (m *MemoryStore) InsertDeal(_ context.Context, deal domain.Deal) (domain.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.deals {
		if d.CompanyName == deal.CompanyName {
			return domain.Deal{}, fmt.Errorf("insert deal %s: %w", deal.CompanyName, domain.ErrWriteConflict)
		}
	}
	deal.ID = m.id()
	deal.Number = 0
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = m.now()
	}
	deal.Score = 0
	m.deals[deal.ID] = deal
	return m.withScore(deal), nil
}

func (m *MemoryStore) UpdateDeal(_ context.Context, deal domain.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.deals[deal.ID]
	if !ok {
		return fmt.Errorf("update deal %d: %w", deal.ID, domain.ErrNotFound)
	}
	deal.CompanyName = existing.CompanyName
	deal.CreatedAt = existing.CreatedAt
	deal.Number = existing.Number
	deal.Score = 0
	m.deals[deal.ID] = deal
	return nil
}

func (m *MemoryStore) ListDeals(_ context.Context) ([]domain.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Deal, 0, len(m.deals))
	for _, d := range m.deals {
		out = append(out, m.withScore(d))
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := out[i].Number, out[j].Number
		if (ni == 0) != (nj == 0) {
			return nj == 0
		}
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Renumber orders by news_date desc with undated rows last, then id desc.
func (m *MemoryStore) Renumber(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	deals := make([]domain.Deal, 0, len(m.deals))
	for _, d := range m.deals {
		deals = append(deals, d)
	}
	sort.Slice(deals, func(i, j int) bool { return RecencyLess(deals[i], deals[j]) })
	for i, d := range deals {
		d.Number = i + 1
		m.deals[d.ID] = d
	}
	return nil
}

// RecencyLess is the renumbering order: news_date desc (undated last), then id desc.
func RecencyLess(a, b domain.Deal) bool {
	if a.NewsDate.IsZero() != b.NewsDate.IsZero() {
		return b.NewsDate.IsZero()
	}
	if !a.NewsDate.Equal(b.NewsDate) {
		return a.NewsDate.After(b.NewsDate)
	}
	return a.ID > b.ID
}

func (m *MemoryStore) ListSources(_ context.Context) ([]domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Source, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *MemoryStore) UpsertSources(_ context.Context, sources []domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range sources {
		if !domain.ValidSiteNumber(s.Number) {
			return fmt.Errorf("source %q: number %d outside %d..%d", s.Name, s.Number, domain.MinSiteNumber, domain.MaxSiteNumber)
		}
		m.sources[s.Number] = s
	}
	return nil
}
