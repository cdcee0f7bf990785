package services

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gewnthar/ulsync/config"
	"github.com/gewnthar/ulsync/database"
	"github.com/gewnthar/ulsync/models"
)

var published = time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

// datLine renders one pipe-delimited row of kind from named values.
func datLine(kind models.TableKind, vals map[string]string) string {
	s := models.Schema(kind)
	fields := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		fields[i] = vals[c.Name]
	}
	fields[0] = string(kind)
	return strings.Join(fields, "|")
}

func hd(usi, callSign, status string) string {
	return datLine(models.KindHD, map[string]string{
		"unique_system_identifier": usi,
		"call_sign":                callSign,
		"license_status":           status,
		"radio_service_code":       "HA",
		"grant_date":               "01/15/2020",
		"expired_date":             "01/15/2030",
	})
}

func en(usi, callSign, first, last, state string) string {
	return datLine(models.KindEN, map[string]string{
		"unique_system_identifier": usi,
		"call_sign":                callSign,
		"entity_type":              "L",
		"entity_name":              first + " " + last,
		"first_name":               first,
		"last_name":                last,
		"state":                    state,
	})
}

func am(usi, callSign, class string) string {
	return datLine(models.KindAM, map[string]string{
		"unique_system_identifier": usi,
		"call_sign":                callSign,
		"operator_class":           class,
	})
}

// fixtureMembers is a small archive: two active licenses and one expired.
func fixtureMembers() map[string]string {
	m := map[string]string{}
	for _, k := range models.AllTableKinds() {
		m[k.MemberName()] = ""
	}
	m["HD.dat"] = strings.Join([]string{
		hd("1", "K1ABC", "A"),
		hd("2", "W2XYZ", "A"),
		hd("3", "N3OLD", "E"),
		"HD|broken",
	}, "\r\n") + "\r\n"
	m["EN.dat"] = strings.Join([]string{
		en("1", "K1ABC", "Alice", "Smith", "CA"),
		en("2", "W2XYZ", "Bob", "Jones", "NY"),
		en("3", "N3OLD", "Carol", "Smith", "CA"),
	}, "\n") + "\n"
	m["AM.dat"] = am("1", "K1ABC", "E") + "\n" + am("2", "W2XYZ", "G") + "\n"
	m["counts"] = "4 /uls/HD.dat\n3 /uls/EN.dat\n"
	return m
}

func buildArchive(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// archiveServer serves an archive with a Last-Modified header and counts
// body downloads.
type archiveServer struct {
	*httptest.Server
	body     atomic.Pointer[[]byte]
	modified atomic.Pointer[time.Time]
	gets     atomic.Int32
	fail     atomic.Bool
}

func newArchiveServer(t *testing.T, body []byte) *archiveServer {
	t.Helper()
	s := &archiveServer{}
	s.set(body, published)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.fail.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if r.Method == http.MethodGet {
			s.gets.Add(1)
		}
		http.ServeContent(w, r, "l_amat.zip", *s.modified.Load(), bytes.NewReader(*s.body.Load()))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *archiveServer) set(body []byte, modified time.Time) {
	s.body.Store(&body)
	s.modified.Store(&modified)
}

func testConfig(t *testing.T, archiveURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Source.ArchiveURL = archiveURL
	cfg.Source.Timeout = 10 * time.Second
	cfg.Source.CheckTimeout = 5 * time.Second
	cfg.Source.Retries = 2
	cfg.Source.Backoff = time.Millisecond
	cfg.Paths.DataDir = dir
	cfg.Paths.ArchivePath = filepath.Join(dir, "l_amat.zip")
	cfg.Paths.ExtractDir = filepath.Join(dir, "extracted")
	cfg.Paths.MetadataPath = filepath.Join(dir, "ulsync_metadata.json")
	cfg.Database.Path = filepath.Join(dir, "uls.db")
	cfg.Load.BatchSize = 2
	require.NoError(t, cfg.Validate())
	return &cfg
}

func openStore(t *testing.T, cfg *config.Config) *database.Store {
	t.Helper()
	s, err := database.Open(context.Background(), cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func statesOf(res *RunResult) []State {
	var out []State
	for _, tr := range res.Transitions {
		out = append(out, tr.To)
	}
	return out
}

func approve(ok bool) Confirmer {
	return ConfirmFunc(func(context.Context, *database.PrunePreview) (bool, error) { return ok, nil })
}
