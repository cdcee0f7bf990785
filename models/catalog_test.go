package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ColumnCounts(t *testing.T) {
	want := map[TableKind]int{
		KindAM: 18,
		KindCO: 8,
		KindEN: 30,
		KindHD: 59,
		KindHS: 6,
		KindLA: 8,
		KindSC: 9,
		KindSF: 11,
	}
	for kind, n := range want {
		assert.Len(t, Schema(kind).Columns, n, "column count for %s", kind)
	}
}

func TestCatalog_MergeModes(t *testing.T) {
	assert.Equal(t, MergeUnique, Schema(KindHD).Merge)
	assert.Equal(t, MergeUnique, Schema(KindAM).Merge)
	assert.Equal(t, MergeGroup, Schema(KindEN).Merge)
	assert.Equal(t, MergeGroup, Schema(KindHS).Merge)
	assert.Equal(t, MergeReplace, Schema(KindLA).Merge)

	assert.True(t, Schema(KindHD).HasKey())
	assert.False(t, Schema(KindLA).HasKey())
	assert.Equal(t, ColumnCallSign, Schema(KindHD).UniqueColumn)
	assert.Empty(t, Schema(KindEN).UniqueColumn)
}

func TestCatalog_ColumnTypes(t *testing.T) {
	hd := Schema(KindHD)

	col, ok := hd.Column("grant_date")
	require.True(t, ok)
	assert.Equal(t, TypeDate, col.Type)

	col, ok = hd.Column(ColumnKey)
	require.True(t, ok)
	assert.Equal(t, TypeInteger, col.Type)

	col, ok = hd.Column("revoked")
	require.True(t, ok)
	assert.Equal(t, TypeFlag, col.Type)

	col, ok = hd.Column(ColumnCallSign)
	require.True(t, ok)
	assert.Equal(t, TypeText, col.Type)

	_, ok = hd.Column("nope")
	assert.False(t, ok)
}

func TestCatalog_ColumnOrderStartsWithRecordTypeAndKey(t *testing.T) {
	for _, s := range Catalog() {
		names := s.ColumnNames()
		require.GreaterOrEqual(t, len(names), 3, s.Kind)
		assert.Equal(t, "record_type", names[0], s.Kind)
		assert.Equal(t, ColumnKey, names[1], s.Kind)
		assert.Contains(t, names, ColumnCallSign, s.Kind)
	}
}

func TestCatalog_IndexesReferenceKnownColumns(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Catalog() {
		assert.NotEmpty(t, s.Indexes, s.Kind)
		for _, ix := range s.Indexes {
			assert.False(t, seen[ix.Name], "duplicate index name %s", ix.Name)
			seen[ix.Name] = true
			for _, c := range ix.Columns {
				_, ok := s.Column(c)
				assert.True(t, ok, "index %s references unknown column %s", ix.Name, c)
			}
		}
	}
}

func TestParseTableKind(t *testing.T) {
	k, ok := ParseTableKind(" hd ")
	assert.True(t, ok)
	assert.Equal(t, KindHD, k)

	_, ok = ParseTableKind("ZZ")
	assert.False(t, ok)

	assert.Equal(t, "EN.dat", KindEN.MemberName())
}

func TestSchema_ValuesFollowColumnOrder(t *testing.T) {
	s := Schema(KindHS)
	rec := &History{
		RecordType:             "HS",
		UniqueSystemIdentifier: 42,
		ULSFileNumber:          "0001",
		CallSign:               "K1ABC",
		Code:                   "LIISS",
	}
	vals := s.Values(rec)
	require.Len(t, vals, len(s.Columns))
	assert.Equal(t, "HS", vals[0])
	assert.Equal(t, int64(42), vals[1])
	assert.Equal(t, "K1ABC", vals[3])
	assert.Equal(t, Date{}, vals[4])
	assert.Equal(t, "LIISS", vals[5])

	assert.Equal(t, KindHS, rec.Kind())
	assert.Equal(t, int64(42), rec.Key())
	assert.IsType(t, &History{}, s.NewRecord())
}
