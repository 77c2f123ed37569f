package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/hakim/islandreport/internal/config"
	"github.com/hakim/islandreport/internal/models"
	"github.com/hakim/islandreport/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIsland = "https://island.lab:5000"

func withConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	c := config.DefaultConfig()
	c.Island.URL = testIsland
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func seedSnapshots(t *testing.T, n int) (*storage.Store, []*models.Snapshot) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	var snaps []*models.Snapshot
	for i := 0; i < n; i++ {
		snap := models.NewSnapshot(testIsland)
		snap.GeneratedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.SaveSnapshot(snap))
		snaps = append(snaps, snap)
	}
	return store, snaps
}

func TestRootCmd_VersionFlag(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "islandreport version 0.1.0-dev")
}

func TestResolveSnapshots_LatestTwo(t *testing.T) {
	withConfig(t)
	store, snaps := seedSnapshots(t, 3)

	cur, prev, err := resolveSnapshots(store, "", "")
	require.NoError(t, err)
	assert.Equal(t, snaps[2].ID, cur.ID)
	assert.Equal(t, snaps[1].ID, prev.ID)
}

func TestResolveSnapshots_ConfiguredURLWithTrailingSlash(t *testing.T) {
	withConfig(t)
	cfg.Island.URL = testIsland + "/"
	store, snaps := seedSnapshots(t, 2)

	cur, prev, err := resolveSnapshots(store, "", "")
	require.NoError(t, err)
	assert.Equal(t, snaps[1].ID, cur.ID)
	require.NotNil(t, prev)
	assert.Equal(t, snaps[0].ID, prev.ID)
}

func TestResolveSnapshots_ByID(t *testing.T) {
	withConfig(t)
	store, snaps := seedSnapshots(t, 3)

	cur, prev, err := resolveSnapshots(store, snaps[1].ID, "")
	require.NoError(t, err)
	assert.Equal(t, snaps[1].ID, cur.ID)
	assert.Equal(t, snaps[0].ID, prev.ID, "previous defaults to the snapshot before current")

	cur, prev, err = resolveSnapshots(store, snaps[2].ID, snaps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, snaps[2].ID, cur.ID)
	assert.Equal(t, snaps[0].ID, prev.ID)

	_, _, err = resolveSnapshots(store, "missing", "")
	assert.ErrorContains(t, err, "not found")
}

func TestResolveSnapshots_NothingToCompare(t *testing.T) {
	withConfig(t)

	store, _ := seedSnapshots(t, 0)
	_, _, err := resolveSnapshots(store, "", "")
	assert.ErrorContains(t, err, "no reports found")

	store, _ = seedSnapshots(t, 1)
	cur, prev, err := resolveSnapshots(store, "", "")
	require.NoError(t, err)
	assert.NotNil(t, cur)
	assert.Nil(t, prev)
}

func TestHistoryHelpers(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678...", shortID("1234567890ab"))
	assert.Equal(t, "complete", formatStatus(models.StatusComplete))
	assert.Equal(t, "loading", formatStatus(models.StatusLoading))
}
