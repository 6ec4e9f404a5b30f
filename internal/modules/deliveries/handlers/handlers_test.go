package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/signalist/internal/database"
	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/modules/deliveries"
	testingutil "github.com/aristath/signalist/internal/testing"
)

func TestHandleList(t *testing.T) {
	db := testingutil.NewTestDB(t, database.NameSignalist)
	repo := deliveries.NewRepository(db.Conn(), zerolog.Nop())

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, d := range []domain.Delivery{
		{Kind: domain.DeliveryWelcome, Recipient: "ada@example.com", Subject: "Welcome", Status: domain.DeliverySent},
		{Kind: domain.DeliveryDigest, Recipient: "ada@example.com", Subject: "Digest", Status: domain.DeliverySent},
		{Kind: domain.DeliveryDigest, Recipient: "grace@example.com", Subject: "Digest", Status: domain.DeliveryFailed, Error: "smtp down"},
	} {
		d.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Record(context.Background(), d))
	}

	r := chi.NewRouter()
	NewHandler(repo, zerolog.Nop()).RegisterRoutes(r)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("all", func(t *testing.T) {
		rec := get("/deliveries")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var list []domain.Delivery
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 3)
		assert.Equal(t, "grace@example.com", list[0].Recipient)
		assert.Equal(t, "smtp down", list[0].Error)
	})

	t.Run("by recipient with limit", func(t *testing.T) {
		rec := get("/deliveries?recipient=ada@example.com&limit=1")
		require.Equal(t, http.StatusOK, rec.Code)

		var list []domain.Delivery
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, domain.DeliveryDigest, list[0].Kind)
	})

	t.Run("invalid limit", func(t *testing.T) {
		for _, limit := range []string{"abc", "0", "5000"} {
			assert.Equal(t, http.StatusBadRequest, get("/deliveries?limit="+limit).Code, limit)
		}
	})

	t.Run("unknown recipient", func(t *testing.T) {
		rec := get("/deliveries?recipient=ghost@example.com")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}
