// scraper/downloader.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gewnthar/ulsync/config"
	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// FetchResult describes a completed download.
type FetchResult struct {
	Path         string    `json:"path"`
	Bytes        int64     `json:"bytes"`
	LastModified time.Time `json:"last_modified,omitempty"`
	Attempts     int       `json:"attempts"`
}

// Fetcher downloads the remote archive into the staging area.
type Fetcher struct {
	Client *http.Client
	Retry  RetryPolicy
}

func NewFetcher(cfg config.SourceConfig) *Fetcher {
	return &Fetcher{
		Client: &http.Client{Timeout: cfg.Timeout},
		Retry:  RetryPolicy{Attempts: cfg.Retries, Backoff: cfg.Backoff},
	}
}

// Fetch downloads url to dest. The body is written to dest+".part" and only
// renamed into place once its size matches the advertised Content-Length, so
// a failed or truncated transfer never leaves a file at dest. Failures after
// the last attempt are FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (FetchResult, error) {
	log := logging.WithFields(ctx, "url", url, "dest", dest)
	log.Info("downloading archive")

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FetchResult{}, models.NewSyncError(models.FetchError, "fetching",
			fmt.Errorf("failed to create directory %s: %w", dir, err))
	}

	var res FetchResult
	start := time.Now()
	err := f.Retry.Do(ctx, "GET "+url, func(ctx context.Context, attempt int) error {
		r, err := f.download(ctx, url, dest)
		if err != nil {
			return err
		}
		res = r
		res.Attempts = attempt
		return nil
	})
	if err != nil {
		return FetchResult{}, models.NewSyncError(models.FetchError, "fetching", err)
	}

	log.Info("download complete", "bytes", res.Bytes, "attempts", res.Attempts, "elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) (res FetchResult, err error) {
	part := dest + ".part"
	defer func() {
		if err != nil {
			os.Remove(part)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return res, permanent(fmt.Errorf("failed to build request: %w", err))
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return res, fmt.Errorf("failed to make GET request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return res, statusError(url, resp.StatusCode)
	}

	out, err := os.Create(part)
	if err != nil {
		return res, permanent(fmt.Errorf("failed to create %s: %w", part, err))
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return res, fmt.Errorf("failed to copy downloaded content to %s after %d bytes: %w", part, n, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return res, fmt.Errorf("truncated download from %s: got %d of %d bytes", url, n, resp.ContentLength)
	}

	if err := os.Rename(part, dest); err != nil {
		return res, permanent(fmt.Errorf("failed to move %s into place: %w", part, err))
	}

	res = FetchResult{Path: dest, Bytes: n}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, perr := http.ParseTime(lm); perr == nil {
			res.LastModified = t.UTC()
		}
	}
	return res, nil
}
