package clientdata

import (
	"database/sql"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSchema creates all tables needed for testing
const testSchema = `
CREATE TABLE company_news (cache_key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE general_news (cache_key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
`

type cachedArticle struct {
	Headline string `msgpack:"headline"`
	Datetime int64  `msgpack:"datetime"`
}

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive across queries
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func TestStoreAndGetIfFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC))
	repo := NewRepositoryWithClock(db, clock)

	in := []cachedArticle{{Headline: "Chips rally", Datetime: 1746439200}}
	require.NoError(t, repo.Store(TableCompanyNews, "NVDA:2025-04-30:2025-05-05", in, TTLCompanyNews))

	var out []cachedArticle
	found, err := repo.GetIfFresh(TableCompanyNews, "NVDA:2025-04-30:2025-05-05", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)

	var expiresAt int64
	require.NoError(t, db.QueryRow("SELECT expires_at FROM company_news").Scan(&expiresAt))
	assert.Equal(t, clock.Now().Add(5*time.Minute).Unix(), expiresAt)
}

func TestStoreUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	require.NoError(t, repo.Store(TableGeneralNews, "general", map[string]string{"version": "1"}, time.Hour))
	require.NoError(t, repo.Store(TableGeneralNews, "general", map[string]string{"version": "2"}, time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM general_news").Scan(&count))
	assert.Equal(t, 1, count)

	var out map[string]string
	found, err := repo.GetIfFresh(TableGeneralNews, "general", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2", out["version"])
}

func TestGet_ReturnsStaleData(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	clock := clockwork.NewFakeClock()
	repo := NewRepositoryWithClock(db, clock)

	require.NoError(t, repo.Store(TableGeneralNews, "general", []cachedArticle{{Headline: "stale but useful"}}, TTLGeneralNews))
	clock.Advance(TTLGeneralNews + time.Second)

	var fresh []cachedArticle
	found, err := repo.GetIfFresh(TableGeneralNews, "general", &fresh)
	require.NoError(t, err)
	assert.False(t, found, "GetIfFresh should ignore expired data")

	var stale []cachedArticle
	found, err = repo.Get(TableGeneralNews, "general", &stale)
	require.NoError(t, err)
	require.True(t, found, "Get should return stale data")
	assert.Equal(t, "stale but useful", stale[0].Headline)
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	var out []cachedArticle
	found, err := repo.Get(TableCompanyNews, "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	err := repo.Store("users; DROP TABLE users", "k", "v", time.Hour)
	assert.Error(t, err)

	_, err = repo.Get("nope", "k", new(string))
	assert.Error(t, err)

	_, err = repo.DeleteExpired("nope")
	assert.Error(t, err)
}

func TestDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	clock := clockwork.NewFakeClock()
	repo := NewRepositoryWithClock(db, clock)

	require.NoError(t, repo.Store(TableCompanyNews, "short", "x", time.Minute))
	require.NoError(t, repo.Store(TableCompanyNews, "long", "x", time.Hour))
	require.NoError(t, repo.Store(TableGeneralNews, "short", "x", time.Minute))
	clock.Advance(10 * time.Minute)

	deleted, err := repo.DeleteExpired(TableCompanyNews)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteExpired(TableGeneralNews)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.DeleteExpired("positions")
	assert.Error(t, err)
}
