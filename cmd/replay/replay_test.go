package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lvdt_go/internal/config"
	"lvdt_go/internal/laser"
	"lvdt_go/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frames = `AO,+0001.500,+0002.500
AO,+0003.000,garbage

AO,-FFFFFFF,+0004.000
`

func TestIngestFramesSkipsInvalidFrames(t *testing.T) {
	programs, err := laser.NewProgramConfig(laser.DefaultCatalog(), 0)
	require.NoError(t, err)
	ds := laser.NewDataset(programs)

	result, err := ingestFrames(strings.NewReader(frames), ds)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, 4, result.Samples)
	assert.True(t, ds.HasMissingReadings())
}

func TestRunWritesOneDataset(t *testing.T) {
	dir := t.TempDir()
	framesPath := filepath.Join(dir, "frames.txt")
	require.NoError(t, os.WriteFile(framesPath, []byte(frames), 0644))

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Root = filepath.Join(dir, "data")
	cfg.Laser.Tag = "experiment"

	result, err := run(context.Background(), cfg, framesPath, storage.ModeWrite)
	require.NoError(t, err)
	require.FileExists(t, result.Part)
	assert.Contains(t, result.Part, filepath.Join(cfg.Storage.Root, "experiment"))

	storePath := filepath.Dir(filepath.Dir(result.Part))
	fd := storage.FileDescriptor{Directory: filepath.Dir(storePath), Filename: filepath.Base(storePath)}
	store, err := storage.NewParquetBackend().Open(fd, storage.ModeRead)
	require.NoError(t, err)
	defer store.Close()

	series, err := store.Get(context.Background(), laser.DatasetKey)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, []float64{1.5, 2.5, 0, 4}, series[0].Values)
}

func TestRunWithoutValidFrames(t *testing.T) {
	dir := t.TempDir()
	framesPath := filepath.Join(dir, "frames.txt")
	require.NoError(t, os.WriteFile(framesPath, []byte("AO,bad\n"), 0644))

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Root = filepath.Join(dir, "data")

	_, err = run(context.Background(), cfg, framesPath, storage.ModeAppend)
	assert.Error(t, err)
}
