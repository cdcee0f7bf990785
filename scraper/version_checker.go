// scraper/version_checker.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gewnthar/ulsync/config"
	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// CheckStatus is the outcome of a freshness check.
type CheckStatus string

const (
	UpToDate        CheckStatus = "UpToDate"
	UpdateAvailable CheckStatus = "UpdateAvailable"
)

// CheckResult carries the remote marker along with the decision so the
// caller can persist it after a successful load.
type CheckResult struct {
	Status CheckStatus          `json:"status"`
	Remote models.RemoteMarker  `json:"remote"`
	Stored *models.RemoteMarker `json:"stored,omitempty"`
}

// VersionChecker reads the remote archive's freshness marker without
// downloading the body.
type VersionChecker struct {
	Client     *http.Client
	ArchiveURL string
	// IndexURL is an optional HTML listing consulted when HEAD gives no
	// Last-Modified header.
	IndexURL string
	Retry    RetryPolicy
}

func NewVersionChecker(cfg config.SourceConfig) *VersionChecker {
	return &VersionChecker{
		Client:     &http.Client{Timeout: cfg.CheckTimeout},
		ArchiveURL: cfg.ArchiveURL,
		IndexURL:   cfg.IndexURL,
		Retry:      RetryPolicy{Attempts: cfg.Retries, Backoff: cfg.Backoff},
	}
}

// Check compares the remote marker with the stored metadata. A failure to
// obtain the remote marker is a CheckFailed error; the caller may force a
// fetch instead.
func (c *VersionChecker) Check(ctx context.Context, stored *models.UpdateMetadata) (CheckResult, error) {
	remote, err := c.RemoteMarker(ctx)
	if err != nil {
		return CheckResult{}, err
	}
	res := CheckResult{Status: Freshness(remote, stored), Remote: remote}
	if stored != nil {
		m := stored.Marker
		res.Stored = &m
	}
	logging.FromContext(ctx).Info("freshness check",
		"status", res.Status, "remote", remote.Raw, "remote_size", remote.Size)
	return res, nil
}

// Freshness decides whether remote is newer than what was last loaded.
// Anything ambiguous counts as an update: no stored marker, a marker with no
// parseable time on either side, or an equal time with a different known size.
func Freshness(remote models.RemoteMarker, stored *models.UpdateMetadata) CheckStatus {
	if stored == nil || stored.Marker.IsZero() || remote.IsZero() {
		return UpdateAvailable
	}
	prev := stored.Marker
	if remote.LastModified.After(prev.LastModified) {
		return UpdateAvailable
	}
	if remote.LastModified.Equal(prev.LastModified) && remote.Size >= 0 && prev.Size >= 0 && remote.Size != prev.Size {
		return UpdateAvailable
	}
	return UpToDate
}

// RemoteMarker issues a HEAD request for the archive and falls back to the
// index page when the server does not advertise Last-Modified.
func (c *VersionChecker) RemoteMarker(ctx context.Context) (models.RemoteMarker, error) {
	var marker models.RemoteMarker
	err := c.Retry.Do(ctx, "HEAD "+c.ArchiveURL, func(ctx context.Context, _ int) error {
		m, err := c.head(ctx)
		if err != nil {
			return err
		}
		marker = m
		return nil
	})
	if err != nil {
		return models.RemoteMarker{}, models.NewSyncError(models.CheckFailed, "checking", err)
	}
	if !marker.IsZero() || c.IndexURL == "" {
		if marker.IsZero() {
			logging.FromContext(ctx).Warn("remote archive has no usable Last-Modified; treating as changed", "url", c.ArchiveURL)
		}
		return marker, nil
	}

	var indexed models.RemoteMarker
	err = c.Retry.Do(ctx, "GET "+c.IndexURL, func(ctx context.Context, _ int) error {
		m, err := c.fromIndexPage(ctx)
		if err != nil {
			return err
		}
		indexed = m
		return nil
	})
	if err != nil {
		return models.RemoteMarker{}, models.NewSyncError(models.CheckFailed, "checking", err)
	}
	if indexed.Size < 0 {
		indexed.Size = marker.Size
	}
	return indexed, nil
}

func (c *VersionChecker) head(ctx context.Context) (models.RemoteMarker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.ArchiveURL, nil)
	if err != nil {
		return models.RemoteMarker{}, permanent(fmt.Errorf("failed to build HEAD request: %w", err))
	}
	res, err := c.Client.Do(req)
	if err != nil {
		return models.RemoteMarker{}, fmt.Errorf("failed to HEAD %s: %w", c.ArchiveURL, err)
	}
	res.Body.Close()

	// Some mirrors refuse HEAD; the index page may still tell us the date.
	if res.StatusCode == http.StatusMethodNotAllowed && c.IndexURL != "" {
		return models.RemoteMarker{Size: -1}, nil
	}
	if res.StatusCode != http.StatusOK {
		return models.RemoteMarker{}, statusError(c.ArchiveURL, res.StatusCode)
	}

	marker := models.RemoteMarker{Size: res.ContentLength, Source: "header"}
	raw := res.Header.Get("Last-Modified")
	if raw == "" {
		return marker, nil
	}
	marker.Raw = raw
	if t, err := http.ParseTime(raw); err == nil {
		marker.LastModified = t.UTC()
	}
	return marker, nil
}

// Date forms seen on directory listings, tried in order.
var indexDateFormats = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\d{2}-[A-Z][a-z]{2}-\d{4} \d{2}:\d{2}`), "02-Jan-2006 15:04"},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}`), "2006-01-02 15:04"},
	{regexp.MustCompile(`\d{2}/\d{2}/\d{4} \d{1,2}:\d{2} [AP]M`), "01/02/2006 3:04 PM"},
	{regexp.MustCompile(`\d{2}/\d{2}/\d{4}`), "01/02/2006"},
}

// parseIndexDate finds the first recognizable timestamp in text.
func parseIndexDate(text string) (time.Time, string, error) {
	for _, f := range indexDateFormats {
		if m := f.re.FindString(text); m != "" {
			t, err := time.Parse(f.layout, m)
			if err != nil {
				return time.Time{}, m, fmt.Errorf("failed to parse index date %q: %w", m, err)
			}
			return t.UTC(), m, nil
		}
	}
	return time.Time{}, "", errors.New("no date found")
}

// fromIndexPage finds the archive's row on the listing page and reads its
// modification date.
func (c *VersionChecker) fromIndexPage(ctx context.Context) (models.RemoteMarker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.IndexURL, nil)
	if err != nil {
		return models.RemoteMarker{}, permanent(fmt.Errorf("failed to build index request: %w", err))
	}
	res, err := c.Client.Do(req)
	if err != nil {
		return models.RemoteMarker{}, fmt.Errorf("failed to get index %s: %w", c.IndexURL, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return models.RemoteMarker{}, statusError(c.IndexURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return models.RemoteMarker{}, fmt.Errorf("failed to parse HTML from %s: %w", c.IndexURL, err)
	}

	archiveName := baseName(c.ArchiveURL)
	var rowText string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.EqualFold(baseName(href), archiveName) {
			return true
		}
		row := a.Closest("tr")
		if row.Length() == 0 {
			row = a.Parent()
		}
		rowText = strings.Join(strings.Fields(row.Text()), " ")
		return false
	})
	if rowText == "" {
		return models.RemoteMarker{}, permanent(fmt.Errorf("archive %s not listed on %s", archiveName, c.IndexURL))
	}

	t, raw, err := parseIndexDate(rowText)
	if err != nil {
		// The entry exists but its date is unreadable: an unparseable marker.
		logging.FromContext(ctx).Warn("index entry has no readable date", "row", rowText, "error", err)
		return models.RemoteMarker{Size: -1, Raw: raw, Source: "index"}, nil
	}
	return models.RemoteMarker{LastModified: t, Size: -1, Raw: raw, Source: "index"}, nil
}

func baseName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}
