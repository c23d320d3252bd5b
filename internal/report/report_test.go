package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DealScanner/internal/domain"
)

var summary = domain.RunSummary{
	RunID:              "run-1",
	StartedAt:          time.Date(2025, time.November, 10, 7, 0, 0, 0, time.UTC),
	FinishedAt:         time.Date(2025, time.November, 10, 7, 2, 30, 0, time.UTC),
	CompaniesProcessed: 3,
	ArticlesSeen:       12,
	ArticlesKept:       4,
	DealsCreated:       2,
	DealsUnchanged:     1,
	NoCandidate:        []string{"엘리시젠"},
	AdaptersDegraded:   []string{"html/wowtale", "search/naver"},
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	WriteSummary(&buf, summary)
	out := buf.String()
	assert.Contains(t, out, "deals created")
	assert.Contains(t, out, "엘리시젠")
	assert.Contains(t, out, "html/wowtale, search/naver")
	assert.Contains(t, out, "2m30s")
}

func TestWriteDeals(t *testing.T) {
	t.Parallel()

	amount := 200.0
	var buf bytes.Buffer
	WriteDeals(&buf, []domain.Deal{{
		Number: 1, CompanyName: "부스터스", Amount: &amount, SiteName: "이투데이",
		NewsDate: time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC), NewsTitle: "FSN 子 부스터즈, 200억 규모 투자 유치",
	}})
	out := buf.String()
	assert.Contains(t, out, "200.0")
	assert.Contains(t, out, "2025-11-08")
	assert.True(t, strings.Contains(out, "부스터스"))
}

func TestMetricsTextfile(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.Observe(summary)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deals.WithLabelValues("created")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.duration))
	assert.Equal(t, 2, testutil.CollectAndCount(m.degraded))

	path := filepath.Join(t.TempDir(), "dealscanner.prom")
	require.NoError(t, m.WriteTextfile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `dealscanner_deals{outcome="created"} 2`)
	assert.Contains(t, string(raw), `dealscanner_adapter_degraded{adapter="search/naver"} 1`)
}
