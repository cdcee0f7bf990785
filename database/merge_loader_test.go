package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/ulsync/models"
)

func sampleLicenses(n int) []models.Record {
	recs := make([]models.Record, 0, n)
	for i := 1; i <= n; i++ {
		status := "A"
		if i%4 == 0 {
			status = "E"
		}
		recs = append(recs, license(int64(i), fmt.Sprintf("K%dABC", i), status))
	}
	return recs
}

func sampleEntities(n int) []models.Record {
	recs := make([]models.Record, 0, n*2)
	for i := 1; i <= n; i++ {
		cs := fmt.Sprintf("K%dABC", i)
		recs = append(recs, entity(int64(i), cs, "Pat", fmt.Sprintf("Smith%d", i), "IL"))
		contact := entity(int64(i), cs, "", "Contact", "IL")
		contact.EntityType = "CL"
		recs = append(recs, contact)
	}
	return recs
}

func TestMerge_FreshLoad(t *testing.T) {
	s := openTestStore(t)

	res := mustMerge(t, s, 10, source(models.KindHD, sampleLicenses(25)...))
	assert.Equal(t, models.KindHD, res.Table)
	assert.Equal(t, int64(25), res.Parsed)
	assert.Equal(t, int64(25), res.Staged)
	assert.Equal(t, int64(0), res.Replaced)
	assert.Equal(t, int64(25), res.Total)

	n, err := s.TableCount(context.Background(), models.KindHD)
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)
	assert.Empty(t, stagingTables(t, s))
}

func TestMerge_Idempotent(t *testing.T) {
	s := openTestStore(t)

	mustMerge(t, s, 7, source(models.KindHD, sampleLicenses(30)...))
	mustMerge(t, s, 7, source(models.KindEN, sampleEntities(30)...))
	firstHD := dumpTable(t, s, models.KindHD)
	firstEN := dumpTable(t, s, models.KindEN)

	res := mustMerge(t, s, 7, source(models.KindHD, sampleLicenses(30)...))
	assert.Equal(t, int64(30), res.Replaced)
	mustMerge(t, s, 7, source(models.KindEN, sampleEntities(30)...))

	assert.Equal(t, firstHD, dumpTable(t, s, models.KindHD))
	assert.Equal(t, firstEN, dumpTable(t, s, models.KindEN))
	assert.Len(t, firstEN, 60)
}

func TestMerge_BatchSizeInvariance(t *testing.T) {
	var want []string
	for _, batch := range []int{1, 3, 16, 1000} {
		s := openTestStore(t)
		mustMerge(t, s, batch, source(models.KindHD, sampleLicenses(40)...))
		// Same input again with a duplicate in the middle of a batch.
		dup := append(sampleLicenses(40), license(7, "K7ABC", "C"))
		mustMerge(t, s, batch, source(models.KindHD, dup...))

		got := dumpTable(t, s, models.KindHD)
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got, "batch size %d", batch)
	}
	assert.Len(t, want, 40)
}

func TestMerge_FailureRollsBack(t *testing.T) {
	s := openTestStore(t)
	mustMerge(t, s, 5, source(models.KindHD, sampleLicenses(10)...))
	before := dumpTable(t, s, models.KindHD)

	boom := errors.New("disk on fire")
	src := source(models.KindHD, sampleLicenses(50)...)
	src.failAt = 23
	src.err = boom

	_, err := NewMergeLoader(s, 5).Merge(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, models.ErrLoad)
	assert.Equal(t, models.LoadError, models.KindOf(err))

	assert.Equal(t, before, dumpTable(t, s, models.KindHD))
	assert.Empty(t, stagingTables(t, s))
}

func TestMerge_CancelLeavesTableUnchanged(t *testing.T) {
	s := openTestStore(t)
	mustMerge(t, s, 5, source(models.KindHD, sampleLicenses(10)...))
	before := dumpTable(t, s, models.KindHD)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := source(models.KindHD, sampleLicenses(100)...)
	src.onRecord = func(i int) {
		if i == 42 {
			cancel()
		}
	}

	_, err := NewMergeLoader(s, 10).Merge(ctx, src)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, before, dumpTable(t, s, models.KindHD))
	assert.Empty(t, stagingTables(t, s))
}

func TestMerge_UniqueKeyLastOccurrenceWins(t *testing.T) {
	s := openTestStore(t)

	res := mustMerge(t, s, 2, source(models.KindHD,
		license(1, "K1AAA", "A"),
		license(2, "K2AAA", "A"),
		license(1, "K1AAA", "E"),
	))
	assert.Equal(t, int64(2), res.Staged)
	assert.Equal(t, int64(2), res.Total)

	v, err := s.LicenseByCallSign(context.Background(), "K1AAA", false, "A")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "E", v.LicenseStatus)
}

func TestMerge_CallSignConflictKeepsLargerKey(t *testing.T) {
	s := openTestStore(t)

	mustMerge(t, s, 100, source(models.KindHD,
		license(5, "K1AAA", "A"),
		license(3, "k1aaa", "A"),
		license(6, "W2BBB", "A"),
		license(8, "W2BBB", "A"),
	))
	rows := dumpTable(t, s, models.KindHD)
	require.Len(t, rows, 2)

	ctx := context.Background()
	v, err := s.LicenseByCallSign(ctx, "K1AAA", false, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.UniqueSystemIdentifier)
	v, err = s.LicenseByCallSign(ctx, "W2BBB", false, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(8), v.UniqueSystemIdentifier)

	// A persisted license whose call sign is reissued under a new key.
	mustMerge(t, s, 100, source(models.KindHD, license(9, "W2BBB", "A")))
	v, err = s.LicenseByCallSign(ctx, "W2BBB", false, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.UniqueSystemIdentifier)
	n, err := s.TableCount(ctx, models.KindHD)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMerge_ReissuedCallSignDropsOldLicenseRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustMerge(t, s, 100, source(models.KindHD, license(8, "W2BBB", "A"), license(7, "K1AAA", "A")))
	mustMerge(t, s, 100, source(models.KindEN, entity(8, "W2BBB", "Bob", "Jones", "NY"), entity(7, "K1AAA", "Al", "Ames", "MA")))
	mustMerge(t, s, 100, source(models.KindAM, amateur(8, "W2BBB", "G"), amateur(7, "K1AAA", "E")))

	res := mustMerge(t, s, 100, source(models.KindHD, license(9, "W2BBB", "A")))
	assert.Equal(t, int64(1), res.Replaced)

	for kind, want := range map[models.TableKind]int64{models.KindHD: 2, models.KindEN: 1, models.KindAM: 1} {
		n, err := s.TableCount(ctx, kind)
		require.NoError(t, err)
		assert.Equal(t, want, n, "%s", kind)
	}
	v, err := s.LicenseByCallSign(ctx, "K1AAA", false, "A")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "E", v.OperatorClass)
}

func TestMerge_GroupedReplacesPerKey(t *testing.T) {
	s := openTestStore(t)
	mustMerge(t, s, 10, source(models.KindEN, sampleEntities(3)...))
	assert.Len(t, dumpTable(t, s, models.KindEN), 6)

	res := mustMerge(t, s, 10, source(models.KindEN, entity(2, "K2ABC", "Lee", "Jones", "OH")))
	assert.Equal(t, int64(2), res.Replaced)
	assert.Equal(t, int64(5), res.Total)

	hist := source(models.KindHS,
		history(1, "K1ABC", "2020-01-15", "LIISS"),
		history(1, "K1ABC", "2021-03-01", "LIMOD"),
	)
	mustMerge(t, s, 10, hist)
	mustMerge(t, s, 10, hist)
	assert.Len(t, dumpTable(t, s, models.KindHS), 2)
}

func TestMerge_ReplaceModeReplacesTable(t *testing.T) {
	s := openTestStore(t)
	mustMerge(t, s, 10, source(models.KindLA,
		attachment(1, "K1ABC", "A1"),
		attachment(2, "K2ABC", "A2"),
		attachment(2, "K2ABC", "A2"),
	))
	assert.Len(t, dumpTable(t, s, models.KindLA), 3)

	res := mustMerge(t, s, 10, source(models.KindLA, attachment(7, "K7ABC", "B7")))
	assert.Equal(t, int64(3), res.Replaced)
	assert.Equal(t, int64(1), res.Total)
}

func TestMerge_EmptySource(t *testing.T) {
	s := openTestStore(t)
	mustMerge(t, s, 10, source(models.KindHD, sampleLicenses(4)...))

	res := mustMerge(t, s, 10, source(models.KindHD))
	assert.Equal(t, int64(0), res.Staged)
	assert.Equal(t, int64(4), res.Total)
}
