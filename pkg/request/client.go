package request

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"zsembells/pkg/config"
	"zsembells/pkg/tracker"
	"zsembells/pkg/version"
)

var (
	defaultUserAgent = fmt.Sprintf("ZSEM-Bells/%s (+%s)", version.Version, version.RepoURL)
)

// politenessGap separates consecutive requests to the same provider.
const politenessGap = 100 * time.Millisecond

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode int
	URL        *url.URL // final URL after redirects
	Body       []byte
}

// Client handles HTTP requests with per-provider queuing, backoff and tracking.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	attempts   int
	baseDelay  time.Duration

	// Queues per provider (domain)
	queues map[string]chan job
	mu     sync.Mutex // Protects queues map
}

// job represents a queued request.
type job struct {
	req      *http.Request
	respChan chan jobResult
}

type jobResult struct {
	resp *Response
	err  error
}

// New creates a new Client.
func New(cfg *config.RequestConfig, t *tracker.Tracker) *Client {
	attempts := cfg.Retries
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.Timeout)},
		tracker:    t,
		backoff:    NewProviderBackoff(time.Duration(cfg.Backoff.BaseDelay), time.Duration(cfg.Backoff.MaxDelay)),
		attempts:   attempts,
		baseDelay:  time.Duration(cfg.Backoff.BaseDelay),
		queues:     make(map[string]chan job),
	}
}

// Fetch performs a queued GET request and returns the response whatever its status.
// An error means no answer was received.
func (c *Client) Fetch(ctx context.Context, u string) (*Response, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := normalizeProvider(parsedURL.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	respChan := make(chan jobResult, 1)
	c.dispatch(provider, job{req: req, respChan: respChan})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-respChan:
		return res.resp, res.err
	}
}

// Get performs a queued GET request and returns the body of a 200 response.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	resp, err := c.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Status reports whether the site answers with 200.
func (c *Client) Status(ctx context.Context, u string) bool {
	resp, err := c.Fetch(ctx, u)
	if err != nil {
		slog.Warn("Website failed to report its status", "url", u, "error", err)
		return false
	}
	if resp.StatusCode != http.StatusOK {
		slog.Warn("Website is down", "url", u, "status", resp.StatusCode)
		return false
	}
	slog.Info("Website is up and running", "url", u)
	return true
}

func normalizeProvider(host string) string {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	if strings.HasSuffix(host, ".worldtimeapi.org") || host == "worldtimeapi.org" {
		return "worldtimeapi"
	}
	return strings.TrimPrefix(host, "www.")
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) {
	c.mu.Lock()
	q, ok := c.queues[provider]
	if !ok {
		q = make(chan job, 100)
		c.queues[provider] = q
		go c.worker(provider, q)
	}
	c.mu.Unlock()

	// Blocks if the queue is full, throttling the caller
	select {
	case q <- j:
	case <-j.req.Context().Done():
		j.respChan <- jobResult{err: j.req.Context().Err()}
	}
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(provider string, q <-chan job) {
	for j := range q {
		ctx := j.req.Context()
		if ctx.Err() != nil {
			slog.Warn("Job dropped from queue (context expired)", "provider", provider, "error", ctx.Err())
			j.respChan <- jobResult{err: ctx.Err()}
			continue
		}

		if err := c.backoff.Wait(ctx, provider); err != nil {
			j.respChan <- jobResult{err: err}
			continue
		}

		resp, err := c.executeWithBackoff(provider, j.req)

		switch {
		case err != nil:
			c.tracker.TrackAPIFailure(provider)
			if ctx.Err() == nil {
				c.backoff.RecordFailure(provider)
			}
		case resp.StatusCode == http.StatusOK:
			c.tracker.TrackAPISuccess(provider)
			c.backoff.RecordSuccess(provider)
		default:
			c.tracker.TrackBadStatus(provider)
			if retryable(resp.StatusCode) {
				c.backoff.RecordFailure(provider)
			}
		}

		j.respChan <- jobResult{resp: resp, err: err}

		time.Sleep(politenessGap)
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

// executeWithBackoff attempts the request with exponential backoff on retryable errors.
// When retries run out on a retryable status, the last response is returned.
func (c *Client) executeWithBackoff(provider string, req *http.Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			c.tracker.TrackRetry(provider)
			sleepDur := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseDelay
			select {
			case <-time.After(sleepDur):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}

		slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			slog.Warn("Request failed, retrying", "url", req.URL, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read error: %w", err)
			continue
		}

		out := &Response{StatusCode: resp.StatusCode, URL: resp.Request.URL, Body: body}
		if retryable(resp.StatusCode) && attempt < c.attempts-1 {
			slog.Warn("API Backoff", "status", resp.StatusCode, "url", req.URL, "attempt", attempt+1)
			continue
		}
		return out, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
