package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

// UserAgent is sent with every remote request.
const UserAgent = "financial-model/1.0"

// maxFetchBytes bounds a downloaded source.
const maxFetchBytes = 32 << 20

// FetchRateLimit is the number of remote requests allowed per second.
const FetchRateLimit = 5

// Fetcher downloads remote sources, optionally caching them on disk keyed by
// the URL hash.
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cacheDir   string // Optional local cache directory
}

// NewFetcher creates a fetcher. An empty cacheDir disables the cache.
func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(FetchRateLimit), FetchRateLimit),
		cacheDir:   cacheDir,
	}
}

// Fetch returns the body at url, from the cache when present.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	cachePath := f.cachePath(url)
	if cachePath != "" {
		if content, err := os.ReadFile(cachePath); err == nil && len(content) > 0 {
			return content, nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err == nil {
			_ = os.WriteFile(cachePath, body, 0o644)
		}
	}
	return body, nil
}

func (f *Fetcher) cachePath(url string) string {
	if f.cacheDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, "sources", hex.EncodeToString(sum[:8])+filepath.Ext(url))
}
