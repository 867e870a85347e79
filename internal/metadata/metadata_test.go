package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		switch r.URL.Query().Get("t") {
		case "Dune":
			w.Write([]byte(`{
				"Poster": "https://example.com/dune.jpg",
				"Year": "2021",
				"Genre": "Sci-Fi",
				"Runtime": "155 min",
				"Director": "Denis Villeneuve",
				"Plot": "Paul Atreides leads nomadic tribes.",
				"imdbRating": "8.0",
				"imdbID": "tt1160419",
				"Response": "True"
			}`))
		case "Sparse":
			w.Write([]byte(`{
				"Poster": "N/A",
				"Year": "1999",
				"Genre": "N/A",
				"Runtime": "N/A",
				"Director": "N/A",
				"Plot": "N/A",
				"imdbRating": "N/A",
				"imdbID": "tt0000001",
				"Response": "True"
			}`))
		case "boom":
			http.Error(w, "upstream broken", http.StatusBadGateway)
		default:
			w.Write([]byte(`{"Response": "False", "Error": "Movie not found!"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		meta, err := c.Lookup(ctx, "Dune")
		require.NoError(t, err)
		assert.Equal(t, "2021", meta.Year)
		assert.Equal(t, "Denis Villeneuve", meta.Director)
		assert.Equal(t, "tt1160419", meta.ExternalID)
		assert.Equal(t, "8.0", meta.ExternalRating)
	})

	t.Run("N/A fields come back empty", func(t *testing.T) {
		meta, err := c.Lookup(ctx, "Sparse")
		require.NoError(t, err)
		assert.Empty(t, meta.Poster)
		assert.Empty(t, meta.Genre)
		assert.Equal(t, "1999", meta.Year)
		assert.Equal(t, "tt0000001", meta.ExternalID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.Lookup(ctx, "No Such Movie")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("non-2xx surfaces as error", func(t *testing.T) {
		_, err := c.Lookup(ctx, "boom")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "non-2xx")
	})
}
