package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/ulsync/models"
)

func loadPruneFixture(t *testing.T, s *Store) {
	t.Helper()
	mustMerge(t, s, 10, source(models.KindHD,
		license(1, "K1AAA", "A"),
		license(2, "K2BBB", "E"),
		license(3, "K3CCC", "A"),
		license(4, "K4DDD", "C"),
		license(5, "K5EEE", "A"),
		license(6, "K6FFF", ""),
	))
	var ens []models.Record
	for i, cs := range []string{"K1AAA", "K2BBB", "K3CCC", "K4DDD", "K5EEE", "K6FFF"} {
		ens = append(ens, entity(int64(i+1), cs, "Pat", "Doe", "TX"))
	}
	mustMerge(t, s, 10, source(models.KindEN, ens...))
	mustMerge(t, s, 10, source(models.KindHS,
		history(2, "K2BBB", "2019-01-01", "LIEXP"),
		history(2, "K2BBB", "2018-01-01", "LIISS"),
		history(3, "K3CCC", "2018-01-01", "LIISS"),
	))
}

func TestActiveFilter_Preview(t *testing.T) {
	s := openTestStore(t)
	loadPruneFixture(t, s)
	before := dumpTable(t, s, models.KindHD)

	f := NewActiveFilter(s, "A")
	f.SampleSize = 2
	p, err := f.Preview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), p.Inactive)
	assert.Equal(t, int64(6), p.Total)
	assert.Equal(t, []string{"K2BBB", "K4DDD"}, p.Sample)
	assert.Equal(t, map[string]int64{"E": 1, "C": 1, "": 1}, p.ByStatus)
	assert.Equal(t, int64(3), p.Affected[models.KindHD])
	assert.Equal(t, int64(3), p.Affected[models.KindEN])
	assert.Equal(t, int64(2), p.Affected[models.KindHS])
	assert.Equal(t, int64(0), p.Affected[models.KindAM])
	assert.False(t, p.Empty())

	assert.Equal(t, before, dumpTable(t, s, models.KindHD), "preview must not mutate")
}

func TestActiveFilter_Apply(t *testing.T) {
	s := openTestStore(t)
	loadPruneFixture(t, s)
	ctx := context.Background()
	f := NewActiveFilter(s, "A")

	res, err := f.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Removed[models.KindHD])
	assert.Equal(t, int64(3), res.Removed[models.KindEN])
	assert.Equal(t, int64(2), res.Removed[models.KindHS])
	assert.Equal(t, int64(8), res.TotalRemoved())
	assert.Equal(t, int64(3), res.Remaining)

	var inactive int64
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM "HD" WHERE license_status <> 'A' OR license_status IS NULL`).Scan(&inactive))
	assert.Zero(t, inactive)
	n, err := s.TableCount(ctx, models.KindEN)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	p, err := f.Preview(ctx)
	require.NoError(t, err)
	assert.True(t, p.Empty())
	assert.Empty(t, p.Sample)
}
