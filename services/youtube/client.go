package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"songbook-api-go/circuitbreaker"
	"songbook-api-go/logcolors"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
)

const DefaultOEmbedURL = "https://www.youtube.com/oembed"

// ErrVideoNotFound is returned when oEmbed does not know the video or it is
// private or not embeddable.
var ErrVideoNotFound = errors.New("youtube video not found")

// APIError is an unexpected oEmbed response.
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("youtube oembed: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("youtube oembed: status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Metadata is the subset of the oEmbed response the API exposes.
type Metadata struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	VideoURL     string `json:"video_url"`
	EmbedURL     string `json:"embed_url"`
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// ClientConfig configures the oEmbed client.
type ClientConfig struct {
	OEmbedURL  string
	Timeout    time.Duration
	MaxRetries int
	Breaker    *circuitbreaker.CircuitBreaker
}

// Client fetches video metadata from YouTube's oEmbed endpoint with retries,
// behind a circuit breaker.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
	breaker  *circuitbreaker.CircuitBreaker
}

// NewClient builds a client. A nil Breaker gets a default one.
func NewClient(cfg ClientConfig) *Client {
	if cfg.OEmbedURL == "" {
		cfg.OEmbedURL = DefaultOEmbedURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.New(circuitbreaker.Config{Name: "youtube"})
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = cfg.MaxRetries
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.HTTPClient.Timeout = cfg.Timeout
	hc.Logger = nil
	// hand the final response back instead of a generic "giving up" error
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		endpoint: cfg.OEmbedURL,
		http:     hc,
		breaker:  cfg.Breaker,
	}
}

// Breaker exposes the client's circuit breaker.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// OEmbed fetches title, author and thumbnail for a video.
func (c *Client) OEmbed(ctx context.Context, videoID string) (*Metadata, error) {
	if videoID == "" {
		return nil, fmt.Errorf("%w: empty video id", ErrVideoNotFound)
	}

	var result oembedResponse
	err := c.breaker.Do(func() error {
		return c.fetch(ctx, videoID, &result)
	}, isCallerError)
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			log.Warnf("%s Skipping oEmbed for %s, breaker open (retry in %v)",
				logcolors.LogYouTube, videoID, c.breaker.TimeUntilRetry().Round(time.Second))
		}
		return nil, err
	}

	thumb := result.ThumbnailURL
	if thumb == "" {
		thumb = ThumbnailURL(videoID, QualityHigh)
	}
	return &Metadata{
		VideoID:      videoID,
		Title:        result.Title,
		AuthorName:   result.AuthorName,
		AuthorURL:    result.AuthorURL,
		ThumbnailURL: thumb,
		VideoURL:     VideoURL(videoID),
		EmbedURL:     EmbedURL(videoID),
	}, nil
}

func (c *Client) fetch(ctx context.Context, videoID string, out *oembedResponse) error {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("url", VideoURL(videoID))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("youtube oembed request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("youtube oembed read: %w", err)
	}

	log.Debugf("%s oEmbed %s -> %d in %v", logcolors.LogYouTube, videoID, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusBadRequest:
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200), Err: ErrVideoNotFound}
	default:
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("youtube oembed decode: %w", err)
	}
	return nil
}

// isCallerError reports errors caused by the requested video rather than by
// YouTube being unavailable.
func isCallerError(err error) bool {
	return errors.Is(err, ErrVideoNotFound) || errors.Is(err, context.Canceled)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
