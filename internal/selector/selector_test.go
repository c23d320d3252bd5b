package selector_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DealScanner/internal/domain"
	"DealScanner/internal/selector"
)

func candidate(url, title, site string, score int, day int) domain.Candidate {
	return domain.Candidate{
		Status: domain.CandidateOK,
		Article: domain.RawArticle{
			URL:         url,
			Title:       title,
			SiteName:    site,
			Score:       score,
			PublishedAt: time.Date(2025, time.November, day, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestBestPicksHigherScore(t *testing.T) {
	t.Parallel()

	a := candidate("https://platum.kr/archives/1", "에봄에이아이, 시리즈A 투자 유치", "플래텀", 5, 10)
	b := candidate("https://www.etoday.co.kr/news/2", "에봄에이아이, 30억 시리즈A 투자 유치", "이투데이", 8, 3)

	for _, order := range [][]domain.Candidate{{a, b}, {b, a}} {
		best, ok := selector.Best("에봄에이아이", order)
		require.True(t, ok)
		assert.Equal(t, b.Article.URL, best.Article.URL)
	}
}

func TestRankTieBreaks(t *testing.T) {
	t.Parallel()

	aggregated := candidate("https://n.news.naver.com/article/1/2", "부스터스 투자 유치", "이투데이", 6, 5)
	older := candidate("https://wowtale.net/2025/11/01/1", "부스터스 투자 유치", "WOWTALE", 6, 1)
	newerOther := candidate("https://www.etoday.co.kr/news/2", "부스터스 투자 유치", "이투데이", 6, 4)
	newerPreferred := candidate("https://platum.kr/archives/3", "부스터스 투자 유치", "플래텀", 6, 4)

	ranked := selector.Rank([]domain.Candidate{aggregated, older, newerOther, newerPreferred})
	urls := make([]string, 0, len(ranked))
	for _, c := range ranked {
		urls = append(urls, c.Article.URL)
	}
	assert.Equal(t, []string{
		newerPreferred.Article.URL,
		newerOther.Article.URL,
		older.Article.URL,
		aggregated.Article.URL,
	}, urls)
}

func TestFilterDropsUnrelatedAndUnscored(t *testing.T) {
	t.Parallel()

	mention := candidate("https://a.example/1", "FSN 子 부스터즈, 200억 규모 투자 유치", "이투데이", 4, 1)
	unrelated := candidate("https://a.example/2", "카카오 투자 유치", "이투데이", 9, 1)
	excluded := candidate("https://a.example/3", "부스터스 세미나", "이투데이", 3, 1)
	excluded.Status = domain.CandidateExcluded

	kept := selector.Filter("부스터스", []domain.Candidate{mention, unrelated, excluded})
	require.Len(t, kept, 1)
	assert.Equal(t, mention.Article.URL, kept[0].Article.URL)
}

func TestBestWithoutCandidates(t *testing.T) {
	t.Parallel()

	_, ok := selector.Best("엘리시젠", nil)
	assert.False(t, ok)
}
