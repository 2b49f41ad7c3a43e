package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStore_PutGet(t *testing.T) {
	t.Parallel()

	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	rec := PredictionRecord{PredictionID: "p1", Latitude: 14.6, Longitude: 121.0, PredictedLikelihood: "High"}
	require.NoError(t, store.Put(ctx, CollectionPredictions, "p1", rec))

	var got PredictionRecord
	found, err := store.Get(ctx, CollectionPredictions, "p1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, rec, got)
}

func TestBoltStore_MissingDocument(t *testing.T) {
	t.Parallel()

	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	var got PredictionRecord
	found, err := store.Get(context.Background(), CollectionPredictions, "nope", &got)
	require.NoError(t, err)
	assert.False(t, found)

	// Unknown collections behave as empty, not as errors.
	found, err = store.Get(context.Background(), "unknown", "nope", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBoltStore_Overwrite(t *testing.T) {
	t.Parallel()

	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, CollectionPreferences, "u1", map[string]bool{"enableAiAlerts": true}))
	require.NoError(t, store.Put(ctx, CollectionPreferences, "u1", map[string]bool{"enableAiAlerts": false}))

	var prefs map[string]bool
	found, err := store.Get(ctx, CollectionPreferences, "u1", &prefs)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, prefs["enableAiAlerts"])
}

func TestMemStore_FailPuts(t *testing.T) {
	t.Parallel()

	store := NewMemStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, CollectionNotifications, "n1", map[string]string{"a": "b"}))
	assert.Equal(t, 1, store.Count(CollectionNotifications))

	store.FailPuts(true)
	assert.Error(t, store.Put(ctx, CollectionNotifications, "n2", map[string]string{"a": "b"}))
	assert.Equal(t, 1, store.Count(CollectionNotifications))
}

func TestStores_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mem := NewMemStore()
	assert.Error(t, mem.Put(ctx, CollectionPredictions, "x", 1))
	_, err := mem.Get(ctx, CollectionPredictions, "x", new(int))
	assert.Error(t, err)
}
