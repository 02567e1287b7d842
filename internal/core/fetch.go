package core

// fetch.go provides the network side of the adapters.
//
// HTTPFetcher performs GET requests with a per-call timeout and coalesces
// identical in-flight requests. MemoFetcher sits in front of it and keeps
// successful bodies for the lifetime of a session until Invalidate is called.
// Failed fetches are never cached.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultUserAgent is sent with every request. WHO/Europe rejects
// non-browser agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// FetchConfig holds HTTP fetcher settings.
type FetchConfig struct {
	Timeout      time.Duration // Per request (default: 30s)
	UserAgent    string        // Default: DefaultUserAgent
	MaxBodyBytes int64         // Response size cap (default: 128MB)
}

// HTTPFetcher fetches URLs over HTTP.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	group     singleflight.Group
}

// NewHTTPFetcher creates a fetcher. Zero config fields take defaults.
func NewHTTPFetcher(cfg FetchConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 128 << 20
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
	}
}

// Fetch returns the response body for url. Concurrent calls for the same url
// share one request. Transport failures and non-2xx statuses return *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ch := f.group.DoChan(url, func() (any, error) {
		return f.get(context.WithoutCancel(ctx), url)
	})

	select {
	case <-ctx.Done():
		return nil, &FetchError{URL: url, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("response larger than %d bytes", f.maxBody)}
	}

	slog.Debug("fetched",
		"url", url,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return body, nil
}

// MemoFetcher caches successful responses by URL.
type MemoFetcher struct {
	next Fetcher

	mu     sync.Mutex
	bodies map[string][]byte
	hits   int
	misses int
}

// NewMemoFetcher wraps next with a memo cache.
func NewMemoFetcher(next Fetcher) *MemoFetcher {
	return &MemoFetcher{next: next, bodies: make(map[string][]byte)}
}

// Fetch returns a cached body or fetches and caches it.
func (m *MemoFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	if body, ok := m.bodies[url]; ok {
		m.hits++
		m.mu.Unlock()
		return body, nil
	}
	m.misses++
	m.mu.Unlock()

	if m.next == nil {
		return nil, &FetchError{URL: url, Err: errors.New("no fetcher configured")}
	}

	body, err := m.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.bodies[url] = body
	m.mu.Unlock()
	return body, nil
}

// Invalidate drops every cached body.
func (m *MemoFetcher) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = make(map[string][]byte)
}

// MemoStats reports cache usage.
type MemoStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// Stats returns the current cache counters.
func (m *MemoFetcher) Stats() MemoStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoStats{Entries: len(m.bodies), Hits: m.hits, Misses: m.misses}
}
