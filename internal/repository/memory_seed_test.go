package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedJSON = `{
  "nodes": [
    {"nodeid": 1, "tagname": "TT-101", "unit": "°C", "appid": "6f1c3c8e-8a43-4f7e-9a55-3d3c2b1a0f00"},
    {"nodeid": 2, "tagname": "PT-200"}
  ],
  "readings": [
    {"nodeid": 1, "time": "2024-03-01T10:00:00+02:00", "valdouble": 21.5, "quality": 192},
    {"nodeid": 1, "time": "2024-03-01T09:00:00Z", "actualtime": "2024-03-01T08:59:59Z", "valdouble": 21.0},
    {"nodeid": 2, "time": "2024-03-01T07:00:00Z", "valbool": true}
  ]
}`

func TestLoadMemorySeed(t *testing.T) {
	repo := NewMemoryNodesRepository()

	nodes, readings, err := LoadMemorySeed(repo, strings.NewReader(seedJSON))

	require.NoError(t, err)
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 3, readings)

	ctx := context.Background()
	n, err := repo.GetNode(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "TT-101", n.TagName)
	require.NotNil(t, n.Unit)
	assert.Equal(t, "°C", *n.Unit)
	assert.True(t, n.AppID.Valid)

	got, err := repo.GetReadings(ctx, 1, Window{}, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// +02:00 换算成 UTC 后是 08:00Z，排在 09:00Z 之后
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), got[0].RecordedTime)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), got[1].RecordedTime)
	require.NotNil(t, got[0].ActualTime)
	assert.Equal(t, time.UTC, got[0].ActualTime.Location())
	assert.Equal(t, int64(192), *got[1].Quality)

	from := time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC)
	ids, err := repo.ListNodeIDsWithHistory(ctx, NewWindow(&from, nil))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestLoadMemorySeed_Invalid(t *testing.T) {
	cases := map[string]string{
		"malformed":     `{"nodes": [`,
		"unknown field": `{"sensors": []}`,
		"missing time":  `{"readings": [{"nodeid": 1, "valint": 3}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			repo := NewMemoryNodesRepository()

			_, _, err := LoadMemorySeed(repo, strings.NewReader(body))

			require.Error(t, err)
			ids, _ := repo.ListNodeIDsWithHistory(context.Background(), Window{})
			assert.Empty(t, ids)
		})
	}
}

func TestLoadMemorySeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o600))

	repo := NewMemoryNodesRepository()
	nodes, readings, err := LoadMemorySeedFile(repo, path)

	require.NoError(t, err)
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 3, readings)

	_, _, err = LoadMemorySeedFile(NewMemoryNodesRepository(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
