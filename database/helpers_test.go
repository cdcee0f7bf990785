package database

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gewnthar/ulsync/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "uls.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// sliceSource serves fixed records. When failAt > 0 it fails with err before
// yielding record failAt; onRecord runs before each record is handed over.
type sliceSource struct {
	kind     models.TableKind
	recs     []models.Record
	failAt   int
	err      error
	onRecord func(i int)
}

func source(kind models.TableKind, recs ...models.Record) *sliceSource {
	return &sliceSource{kind: kind, recs: recs}
}

func (s *sliceSource) Kind() models.TableKind { return s.kind }

func (s *sliceSource) Scan(ctx context.Context, fn func(models.Record) error) (models.ParseStats, error) {
	stats := models.ParseStats{Table: s.kind}
	for i, r := range s.recs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if s.failAt > 0 && i == s.failAt {
			return stats, s.err
		}
		if s.onRecord != nil {
			s.onRecord(i)
		}
		stats.Lines++
		stats.Parsed++
		if err := fn(r); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func date(s string) models.Date {
	t, err := time.Parse(models.StoreDateLayout, s)
	if err != nil {
		panic(err)
	}
	return models.Date{Time: t, Valid: true}
}

func license(usi int64, callSign, status string) *models.License {
	return &models.License{
		RecordType:             "HD",
		UniqueSystemIdentifier: usi,
		CallSign:               callSign,
		LicenseStatus:          status,
		RadioServiceCode:       "HA",
		GrantDate:              date("2020-01-15"),
		ExpiredDate:            date("2030-01-15"),
		Revoked:                models.Flag{Bool: false, Valid: true},
	}
}

func entity(usi int64, callSign, first, last, state string) *models.Entity {
	return &models.Entity{
		RecordType:             "EN",
		UniqueSystemIdentifier: usi,
		CallSign:               callSign,
		EntityType:             "L",
		EntityName:             strings.TrimSpace(first + " " + last),
		FirstName:              first,
		LastName:               last,
		City:                   "SPRINGFIELD",
		State:                  state,
		ZipCode:                "62701",
	}
}

func amateur(usi int64, callSign, class string) *models.Amateur {
	return &models.Amateur{
		RecordType:             "AM",
		UniqueSystemIdentifier: usi,
		CallSign:               callSign,
		OperatorClass:          class,
		RegionCode:             models.NullInt{Int64: 5, Valid: true},
	}
}

func history(usi int64, callSign, logDate, code string) *models.History {
	return &models.History{
		RecordType:             "HS",
		UniqueSystemIdentifier: usi,
		CallSign:               callSign,
		LogDate:                date(logDate),
		Code:                   code,
	}
}

func attachment(usi int64, callSign, code string) *models.Attachment {
	return &models.Attachment{
		RecordType:             "LA",
		UniqueSystemIdentifier: usi,
		CallSign:               callSign,
		AttachmentCode:         code,
	}
}

func mustMerge(t *testing.T, s *Store, batch int, src RecordSource) models.TableResult {
	t.Helper()
	res, err := NewMergeLoader(s, batch).Merge(context.Background(), src)
	require.NoError(t, err)
	return res
}

// dumpTable renders every row of kind, sorted, for content comparison.
func dumpTable(t *testing.T, s *Store, kind models.TableKind) []string {
	t.Helper()
	schema := models.Schema(kind)
	cols := quoteList(s.dialect, schema.ColumnNames())
	rows, err := s.db.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", cols, s.dialect.Quote(string(kind)), cols))
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		vals := make([]any, len(schema.Columns))
		dest := make([]any, len(vals))
		for i := range vals {
			dest[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(dest...))
		parts := make([]string, len(vals))
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			parts[i] = fmt.Sprint(v)
		}
		out = append(out, strings.Join(parts, "|"))
	}
	require.NoError(t, rows.Err())
	return out
}

func stagingTables(t *testing.T, s *Store) []string {
	t.Helper()
	names, err := queryStrings(context.Background(), s.db,
		`SELECT name FROM sqlite_temp_master WHERE type = 'table' AND name LIKE 'stage_%'`)
	require.NoError(t, err)
	return names
}
