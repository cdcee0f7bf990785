package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/ulsync/models"
)

func TestScanReader_SkipsWrongFieldCount(t *testing.T) {
	var lines []string
	for i := 1; i <= 10; i++ {
		lines = append(lines, hdLine(fmt.Sprint(i), fmt.Sprintf("K%dAAA", i), "A"))
		if i == 3 {
			lines = append(lines, "HD|99|short")
		}
		if i == 7 {
			lines = append(lines, hdLine("98", "K9ZZZ", "A")+"|extra")
		}
	}
	input := strings.Join(lines, "\n") + "\n"

	var got []models.Record
	stats, err := ScanReader(context.Background(), strings.NewReader(input), models.Schema(models.KindHD), func(r models.Record) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, got, 10)
	assert.Equal(t, int64(10), stats.Parsed)
	assert.Equal(t, int64(2), stats.Skipped)
	assert.Equal(t, []int64{4, 9}, stats.SkippedLines)
	assert.Equal(t, int64(12), stats.Lines)

	warn := stats.Warning()
	require.Error(t, warn)
	assert.Equal(t, models.ParseWarning, models.KindOf(warn))
}

func TestScanReader_TypedValues(t *testing.T) {
	input := hdLine("1001", " K1ABC ", "A") + "\r\n\r\n"

	var got []models.Record
	stats, err := ScanReader(context.Background(), strings.NewReader(input), models.Schema(models.KindHD), func(r models.Record) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(0), stats.Skipped)

	lic := got[0].(*models.License)
	assert.Equal(t, int64(1001), lic.UniqueSystemIdentifier)
	assert.Equal(t, "K1ABC", lic.CallSign)
	assert.Equal(t, "2020-01-15", lic.GrantDate.String())
	assert.False(t, lic.CancellationDate.Valid)
	assert.False(t, lic.AuctionID.Valid)
}

func TestScanReader_BadValuesAreMalformed(t *testing.T) {
	badDate := line(models.KindHD, map[string]string{
		"unique_system_identifier": "5",
		"call_sign":                "K5BAD",
		"grant_date":               "2020-01-15",
	})
	noKey := hdLine("", "K6NOKEY", "A")
	badInt := line(models.KindAM, map[string]string{
		"unique_system_identifier": "7",
		"region_code":              "x",
	})

	stats, err := ScanReader(context.Background(), strings.NewReader(badDate+"\n"+noKey+"\n"+hdLine("8", "K8OK", "A")),
		models.Schema(models.KindHD), func(models.Record) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Parsed)
	assert.Equal(t, int64(2), stats.Skipped)

	stats, err = ScanReader(context.Background(), strings.NewReader(badInt), models.Schema(models.KindAM), func(models.Record) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Parsed)
	assert.Equal(t, int64(1), stats.Skipped)
}

func TestRecordParser_Restartable(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "EN.dat")
	body := line(models.KindEN, map[string]string{"unique_system_identifier": "1", "call_sign": "K1A", "state": "CA"}) + "\n" +
		line(models.KindEN, map[string]string{"unique_system_identifier": "2", "call_sign": "K2B", "state": "NY"}) + "\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	parser := NewRecordParser(p, models.KindEN)
	assert.Equal(t, models.KindEN, parser.Kind())

	first, stats1, err := parser.ReadAll(context.Background())
	require.NoError(t, err)
	second, stats2, err := parser.ReadAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, stats1, stats2)
	assert.Equal(t, "NY", second[1].(*models.Entity).State)
}

func TestRecordParser_CallbackErrorStops(t *testing.T) {
	input := hdLine("1", "K1A", "A") + "\n" + hdLine("2", "K2B", "A") + "\n"
	boom := errors.New("boom")

	calls := 0
	_, err := ScanReader(context.Background(), strings.NewReader(input), models.Schema(models.KindHD), func(models.Record) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRecordParser_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ScanReader(ctx, strings.NewReader(hdLine("1", "K1A", "A")), models.Schema(models.KindHD), func(models.Record) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordParser_MissingFile(t *testing.T) {
	_, _, err := NewRecordParser(filepath.Join(t.TempDir(), "HD.dat"), models.KindHD).ReadAll(context.Background())
	assert.Error(t, err)
}
