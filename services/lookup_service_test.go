package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupService(t *testing.T) {
	srv := newArchiveServer(t, buildArchive(t, fixtureMembers()))
	cfg := testConfig(t, srv.URL+"/l_amat.zip")
	store := openStore(t, cfg)
	ctx := context.Background()
	_, err := NewUpdateCoordinator(cfg, store).Run(ctx, Options{})
	require.NoError(t, err)
	svc := NewLookupService(cfg, store)

	t.Run("call sign is normalized", func(t *testing.T) {
		got, err := svc.ByCallSign(ctx, " k1 abc ", false, true)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "K1ABC", got.License.CallSign)
		assert.Equal(t, "E", got.License.OperatorClass)
		assert.Empty(t, got.History)
	})

	t.Run("empty call sign", func(t *testing.T) {
		_, err := svc.ByCallSign(ctx, "  ", false, false)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("name search active only", func(t *testing.T) {
		got, err := svc.Search(ctx, SearchRequest{Name: "SMITH"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "K1ABC", got[0].CallSign)
	})

	t.Run("name search all statuses", func(t *testing.T) {
		got, err := svc.Search(ctx, SearchRequest{Name: "smith", All: true})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("region", func(t *testing.T) {
		got, err := svc.Search(ctx, SearchRequest{Region: " ny "})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "W2XYZ", got[0].CallSign)
	})

	t.Run("bad region", func(t *testing.T) {
		_, err := svc.Search(ctx, SearchRequest{Region: "New York"})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("no criteria", func(t *testing.T) {
		_, err := svc.Search(ctx, SearchRequest{Name: "   "})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}
