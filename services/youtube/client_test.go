package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"songbook-api-go/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, threshold int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		OEmbedURL:  srv.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 0,
		Breaker:    circuitbreaker.New(circuitbreaker.Config{Name: "youtube-test", Threshold: threshold, Cooldown: time.Hour}),
	})
}

func TestClient_OEmbed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "https://www.youtube.com/watch?v=abc123", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Song","author_name":"Artist","author_url":"https://youtube.com/@artist","thumbnail_url":"https://i.ytimg.com/vi/abc123/hqdefault.jpg"}`))
	}, 3)

	meta, err := client.OEmbed(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", meta.VideoID)
	assert.Equal(t, "Song", meta.Title)
	assert.Equal(t, "Artist", meta.AuthorName)
	assert.Equal(t, "https://i.ytimg.com/vi/abc123/hqdefault.jpg", meta.ThumbnailURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", meta.VideoURL)
	assert.Equal(t, "https://www.youtube.com/embed/abc123", meta.EmbedURL)
}

func TestClient_OEmbedFallsBackToBuiltThumbnail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"Song"}`))
	}, 3)

	meta, err := client.OEmbed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, ThumbnailURL("abc", QualityHigh), meta.ThumbnailURL)
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	}, 1)

	for i := 0; i < 3; i++ {
		_, err := client.OEmbed(context.Background(), "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrVideoNotFound)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	}
	assert.Equal(t, circuitbreaker.StateClosed, client.Breaker().State())
}

func TestClient_ServerErrorsOpenBreaker(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, 2)

	for i := 0; i < 2; i++ {
		_, err := client.OEmbed(context.Background(), "abc")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		assert.NotErrorIs(t, err, ErrVideoNotFound)
	}
	assert.True(t, client.Breaker().IsOpen())

	_, err := client.OEmbed(context.Background(), "abc")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"title":"Recovered"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{OEmbedURL: srv.URL, MaxRetries: 2})
	client.http.RetryWaitMin = time.Millisecond
	client.http.RetryWaitMax = 5 * time.Millisecond

	meta, err := client.OEmbed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Recovered", meta.Title)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_EmptyVideoID(t *testing.T) {
	client := NewClient(ClientConfig{})
	_, err := client.OEmbed(context.Background(), "")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestClient_BadJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}, 5)

	_, err := client.OEmbed(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, 1, client.Breaker().Failures())
}
