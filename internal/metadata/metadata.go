// Package metadata is the client for the external movie-metadata lookup
// service. One free-text title in, at most one best-guess record out.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

var ErrNotFound = errors.New("title not found")

const defaultBaseURL = "https://www.omdbapi.com"

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type lookupDTO struct {
	Poster     string `json:"Poster"`
	Year       string `json:"Year"`
	Genre      string `json:"Genre"`
	Runtime    string `json:"Runtime"`
	Director   string `json:"Director"`
	Plot       string `json:"Plot"`
	ImdbRating string `json:"imdbRating"`
	ImdbID     string `json:"imdbID"`
	Response   string `json:"Response"`
}

// Lookup returns the best-guess metadata for a title, or ErrNotFound. There
// is no disambiguation list; the service picks one candidate.
func (c *Client) Lookup(ctx context.Context, title string) (model.MovieMeta, error) {
	q := url.Values{}
	q.Set("t", title)
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return model.MovieMeta{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.MovieMeta{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return model.MovieMeta{}, fmt.Errorf("non-2xx status: %s - %s", resp.Status, string(body))
	}

	var dto lookupDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return model.MovieMeta{}, err
	}
	if dto.Response == "False" {
		return model.MovieMeta{}, ErrNotFound
	}

	return model.MovieMeta{
		Poster:         clean(dto.Poster),
		Year:           clean(dto.Year),
		Genre:          clean(dto.Genre),
		Runtime:        clean(dto.Runtime),
		Director:       clean(dto.Director),
		Plot:           clean(dto.Plot),
		ExternalRating: clean(dto.ImdbRating),
		ExternalID:     dto.ImdbID,
	}, nil
}

// The service uses "N/A" for fields it has no data for.
func clean(s string) string {
	if s == "N/A" {
		return ""
	}
	return s
}
