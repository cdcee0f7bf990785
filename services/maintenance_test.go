package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/ulsync/database"
	"github.com/gewnthar/ulsync/models"
)

func loadedStore(t *testing.T) (*Maintenance, *database.Store) {
	t.Helper()
	srv := newArchiveServer(t, buildArchive(t, fixtureMembers()))
	cfg := testConfig(t, srv.URL+"/l_amat.zip")
	store := openStore(t, cfg)
	_, err := NewUpdateCoordinator(cfg, store).Run(context.Background(), Options{})
	require.NoError(t, err)
	return NewMaintenance(cfg, store), store
}

func TestPruneInactive_Declined(t *testing.T) {
	m, store := loadedStore(t)
	ctx := context.Background()

	var seen *database.PrunePreview
	out, err := m.PruneInactive(ctx, ConfirmFunc(func(_ context.Context, p *database.PrunePreview) (bool, error) {
		seen = p
		return false, nil
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfirmationDeclined)
	require.NotNil(t, seen)
	assert.Equal(t, []string{"N3OLD"}, seen.Sample)
	assert.True(t, out.Declined)

	n, err := store.TableCount(ctx, models.KindHD)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPruneInactive_NilConfirmerDeclines(t *testing.T) {
	m, _ := loadedStore(t)
	_, err := m.PruneInactive(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrConfirmationDeclined)
}

func TestPruneInactive_ConfirmerError(t *testing.T) {
	m, _ := loadedStore(t)
	boom := errors.New("terminal closed")
	_, err := m.PruneInactive(context.Background(), ConfirmFunc(func(context.Context, *database.PrunePreview) (bool, error) {
		return false, boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, models.ErrConfirmationDeclined)
}

func TestPruneInactive_ConfirmedThenEmpty(t *testing.T) {
	m, _ := loadedStore(t)
	ctx := context.Background()

	out, err := m.PruneInactive(ctx, approve(true))
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, int64(1), out.Result.Removed[models.KindHD])
	assert.Equal(t, int64(1), out.Result.Removed[models.KindEN])

	called := false
	out, err = m.PruneInactive(ctx, ConfirmFunc(func(context.Context, *database.PrunePreview) (bool, error) {
		called = true
		return true, nil
	}))
	require.NoError(t, err)
	assert.False(t, called, "nothing to confirm")
	assert.True(t, out.Preview.Empty())
	assert.Nil(t, out.Result)
}

func TestStatus(t *testing.T) {
	m, _ := loadedStore(t)

	st, err := m.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.Metadata)
	assert.Equal(t, int64(3), st.Counts[models.KindHD])
	assert.Positive(t, st.SizeBytes)
	assert.Len(t, st.Runs, 1)
	for _, r := range st.Indexes {
		assert.True(t, r.OK(), "%s", r.Table)
	}
}

func TestCompactAndReindex(t *testing.T) {
	m, store := loadedStore(t)
	ctx := context.Background()

	require.NoError(t, database.NewIndexManager(store).Drop(ctx, []models.TableKind{models.KindEN}))
	reports, err := m.RebuildIndexes(ctx)
	require.NoError(t, err)
	for _, r := range reports {
		if r.Table == models.KindEN {
			assert.Len(t, r.Created, len(models.Schema(models.KindEN).Indexes))
		} else {
			assert.Empty(t, r.Created)
		}
	}

	res, err := m.Compact(ctx)
	require.NoError(t, err)
	assert.Positive(t, res.SizeAfter)
}
