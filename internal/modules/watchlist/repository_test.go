package watchlist

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/signalist/internal/database"
	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/modules/users"
	testingutil "github.com/aristath/signalist/internal/testing"
)

func setup(t *testing.T) (*Repository, *users.Repository) {
	db := testingutil.NewTestDB(t, database.NameSignalist)
	return NewRepository(db.Conn(), zerolog.Nop()), users.NewRepository(db.Conn(), zerolog.Nop())
}

func TestSymbolsByEmail_UnknownUserIsEmpty(t *testing.T) {
	repo, _ := setup(t)

	symbols, err := repo.SymbolsByEmail(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.NotNil(t, symbols)
	assert.Empty(t, symbols)
}

func TestAddListRemove(t *testing.T) {
	repo, userRepo := setup(t)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, domain.User{Email: "ada@example.com"})
	require.NoError(t, err)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	_, err = repo.Add(ctx, "ada@example.com", " aapl ", "Apple")
	require.NoError(t, err)
	_, err = repo.Add(ctx, "ADA@example.com", "MSFT", "Microsoft")
	require.NoError(t, err)
	_, err = repo.Add(ctx, "ada@example.com", "AAPL", "Apple Inc.")
	require.NoError(t, err)

	symbols, err := repo.SymbolsByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	items, err := repo.ListByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Apple Inc.", items[0].Company)

	removed, err := repo.Remove(ctx, "ada@example.com", "aapl")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove(ctx, "ada@example.com", "aapl")
	require.NoError(t, err)
	assert.False(t, removed)

	symbols, err = repo.SymbolsByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, symbols)
}

func TestAdd_Errors(t *testing.T) {
	repo, userRepo := setup(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, "ghost@example.com", "AAPL", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = userRepo.Create(ctx, domain.User{Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = repo.Add(ctx, "ada@example.com", "   ", "")
	assert.Error(t, err)

	_, err = repo.ListByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
