package finnhub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/signalist/internal/clientdata"
	"github.com/aristath/signalist/internal/database"
	"github.com/aristath/signalist/internal/domain"
	testingutil "github.com/aristath/signalist/internal/testing"
)

var testNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

type fakeFinnhub struct {
	mu       sync.Mutex
	company  map[string][]domain.RawArticle
	general  []domain.RawArticle
	failing  map[string]bool
	status   int
	requests []string
	calls    atomic.Int32
}

func (f *fakeFinnhub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.String())
	f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	if r.URL.Query().Get("token") != "test-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var body interface{}
	switch r.URL.Path {
	case "/company-news":
		symbol := r.URL.Query().Get("symbol")
		if f.failing[symbol] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body = f.company[symbol]
	case "/news":
		body = f.general
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if body == nil {
		body = []domain.RawArticle{}
	}
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, fake *fakeFinnhub, withCache bool) (*Client, clockwork.FakeClock) {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	clock := clockwork.NewFakeClockAt(testNow)

	var cache *clientdata.Repository
	if withCache {
		db := testingutil.NewTestDB(t, database.NameClientData)
		cache = clientdata.NewRepositoryWithClock(db.Conn(), clock)
	}

	return NewClient(srv.URL, "test-key", cache, zerolog.Nop(), WithClock(clock)), clock
}

func article(id int64, headline string, datetime int64) domain.RawArticle {
	return domain.RawArticle{
		ID:       id,
		Headline: headline,
		Summary:  "Summary of " + headline,
		URL:      "https://news.example.com/" + headline,
		Datetime: datetime,
	}
}

func TestNews_RoundRobinAcrossSymbols(t *testing.T) {
	fake := &fakeFinnhub{company: map[string][]domain.RawArticle{
		"AAPL": {article(1, "a1", 100), article(2, "a2", 200), article(3, "a3", 300), article(4, "a4", 400)},
		"MSFT": {article(5, "m1", 150), article(6, "m2", 250), article(7, "m3", 350), article(8, "m4", 450)},
	}}
	client, _ := newTestClient(t, fake, false)

	news, err := client.News(context.Background(), []string{" aapl", "MSFT ", ""})
	require.NoError(t, err)
	require.Len(t, news, 6)

	// Three rounds of two symbols, then sorted newest first
	headlines := make([]string, 0, len(news))
	for _, a := range news {
		headlines = append(headlines, a.Headline)
		assert.Equal(t, "company", a.Category)
		assert.Equal(t, "Company News", a.Source)
	}
	assert.Equal(t, []string{"m3", "a3", "m2", "a2", "m1", "a1"}, headlines)
	assert.Equal(t, "MSFT", news[0].Related)

	for _, req := range fake.requests {
		if strings.HasPrefix(req, "/company-news") {
			assert.Contains(t, req, "from=2025-03-05")
			assert.Contains(t, req, "to=2025-03-10")
		}
	}
}

func TestNews_SkipsInvalidArticles(t *testing.T) {
	invalid := article(9, "no-url", 999)
	invalid.URL = ""
	fake := &fakeFinnhub{company: map[string][]domain.RawArticle{
		"NVDA": {invalid, article(10, "ok", 500)},
	}}
	client, _ := newTestClient(t, fake, false)

	news, err := client.News(context.Background(), []string{"NVDA"})
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, "ok", news[0].Headline)
}

func TestNews_FailingSymbolContributesNothing(t *testing.T) {
	fake := &fakeFinnhub{
		company: map[string][]domain.RawArticle{"AAPL": {article(1, "a1", 100)}},
		failing: map[string]bool{"TSLA": true},
	}
	client, _ := newTestClient(t, fake, false)

	news, err := client.News(context.Background(), []string{"TSLA", "AAPL"})
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, "AAPL", news[0].Related)
}

func TestNews_FallsBackToGeneralNews(t *testing.T) {
	general := []domain.RawArticle{
		article(1, "g1", 100),
		article(1, "g1", 100), // duplicate
		{ID: 2, Headline: "missing summary", URL: "https://x", Datetime: 1},
		article(3, "g3", 300),
	}
	general[3].Category = "forex"
	general[3].Source = "Reuters"
	general[3].Related = "EURUSD"

	fake := &fakeFinnhub{general: general}
	client, _ := newTestClient(t, fake, false)

	for _, symbols := range [][]string{nil, {"UNKNOWN"}} {
		news, err := client.News(context.Background(), symbols)
		require.NoError(t, err)
		require.Len(t, news, 2)

		assert.Equal(t, "g1", news[0].Headline)
		assert.Equal(t, "general", news[0].Category)
		assert.Equal(t, "Market News", news[0].Source)

		assert.Equal(t, "forex", news[1].Category)
		assert.Equal(t, "Reuters", news[1].Source)
		assert.Equal(t, "EURUSD", news[1].Related)
	}
}

func TestNews_GeneralLimitedToSix(t *testing.T) {
	var general []domain.RawArticle
	for i := int64(1); i <= 30; i++ {
		general = append(general, article(i, "g"+string(rune('a'+i%26)), i))
	}
	client, _ := newTestClient(t, &fakeFinnhub{general: general}, false)

	news, err := client.News(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, news, domain.MaxArticlesPerDigest)
}

func TestNews_GeneralFailureIsAnError(t *testing.T) {
	client, _ := newTestClient(t, &fakeFinnhub{status: http.StatusBadGateway}, false)

	_, err := client.News(context.Background(), nil)
	require.Error(t, err)
}

func TestFetch_RateLimitedAndMissingKey(t *testing.T) {
	client, _ := newTestClient(t, &fakeFinnhub{status: http.StatusTooManyRequests}, false)
	_, err := client.GeneralNews(context.Background())
	assert.ErrorIs(t, err, ErrRateLimited)

	noKey := NewClient("http://127.0.0.1:1", "", nil, zerolog.Nop())
	_, err = noKey.GeneralNews(context.Background())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCache_FreshHitAndStaleFallback(t *testing.T) {
	fake := &fakeFinnhub{general: []domain.RawArticle{article(1, "cached", 100)}}
	client, clock := newTestClient(t, fake, true)
	ctx := context.Background()

	_, err := client.GeneralNews(ctx)
	require.NoError(t, err)
	_, err = client.GeneralNews(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load(), "second call should be served from cache")

	// Expire the entry and break the API: the stale copy is served
	clock.Advance(clientdata.TTLGeneralNews + time.Minute)
	fake.status = http.StatusInternalServerError

	articles, err := client.GeneralNews(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "cached", articles[0].Headline)
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestCleanSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "BRK.B"}, CleanSymbols([]string{" aapl ", "", "  ", "brk.b"}))
	assert.Empty(t, CleanSymbols(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short...", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	// Multi-byte runes are never split
	assert.Equal(t, "📈📈...", truncate("📈📈📈", 2))
}
