package scraper

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gewnthar/ulsync/models"
)

// line renders one pipe-delimited row of kind, with record_type filled in and
// every column not in vals left empty.
func line(kind models.TableKind, vals map[string]string) string {
	s := models.Schema(kind)
	fields := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		fields[i] = vals[c.Name]
	}
	fields[0] = string(kind)
	return strings.Join(fields, "|")
}

func hdLine(usi, callSign, status string) string {
	return line(models.KindHD, map[string]string{
		"unique_system_identifier": usi,
		"call_sign":                callSign,
		"license_status":           status,
		"radio_service_code":       "HA",
		"grant_date":               "01/15/2020",
		"expired_date":             "01/15/2030",
	})
}

// writeZip builds an archive at dir/name holding members.
func writeZip(t *testing.T, dir, name string, members map[string]string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for n, body := range members {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}
