package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"owl-history/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemoryRepo(base time.Time) *MemoryNodesRepository {
	repo := NewMemoryNodesRepository()
	repo.PutNode(domain.Node{NodeID: 1, TagName: "TI-100"})
	repo.PutNode(domain.Node{NodeID: 2, TagName: "PI-200"})
	repo.PutNode(domain.Node{NodeID: 3, TagName: "FI-300"})

	repo.PutReading(domain.Reading{NodeID: 1, RecordedTime: base.Add(1 * time.Hour)})
	repo.PutReading(domain.Reading{NodeID: 1, RecordedTime: base.Add(2 * time.Hour)})
	repo.PutReading(domain.Reading{NodeID: 1, RecordedTime: base.Add(4 * time.Hour)})
	repo.PutReading(domain.Reading{NodeID: 2, RecordedTime: base.Add(3 * time.Hour)})
	// dangling reference: no catalog row for 42
	repo.PutReading(domain.Reading{NodeID: 42, RecordedTime: base.Add(time.Hour)})
	return repo
}

func TestMemoryNodesRepository_ListNodeIDsWithHistory(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := seedMemoryRepo(base)
	ctx := context.Background()

	ids, err := repo.ListNodeIDsWithHistory(ctx, Window{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 42}, ids)

	from := base.Add(3 * time.Hour)
	ids, err = repo.ListNodeIDsWithHistory(ctx, NewWindow(&from, nil))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestMemoryNodesRepository_GetNodesByIDs_DropsMissing(t *testing.T) {
	repo := seedMemoryRepo(time.Now())

	nodes, err := repo.GetNodesByIDs(context.Background(), []int64{42, 2, 1, 2})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, int64(1), nodes[0].NodeID)
	assert.Equal(t, int64(2), nodes[1].NodeID)
}

func TestMemoryNodesRepository_GetNode_NotFound(t *testing.T) {
	repo := seedMemoryRepo(time.Now())

	_, err := repo.GetNode(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
}

func TestMemoryNodesRepository_GetReadings_OrderWindowLimit(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := seedMemoryRepo(base)
	ctx := context.Background()

	readings, err := repo.GetReadings(ctx, 1, Window{}, 0)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.True(t, readings[0].RecordedTime.Equal(base.Add(4*time.Hour)))
	assert.True(t, readings[2].RecordedTime.Equal(base.Add(1*time.Hour)))

	to := base.Add(2 * time.Hour)
	readings, err = repo.GetReadings(ctx, 1, NewWindow(nil, &to), 1)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.True(t, readings[0].RecordedTime.Equal(to))
}

func TestMemoryNodesRepository_PutReading_SameTimeReplaces(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewMemoryNodesRepository()

	first, second := 1.0, 2.0
	repo.PutReading(domain.Reading{NodeID: 1, RecordedTime: base, ValDouble: &first})
	repo.PutReading(domain.Reading{NodeID: 1, RecordedTime: base, ValDouble: &second})

	readings, err := repo.GetReadings(context.Background(), 1, Window{}, 50)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 2.0, *readings[0].ValDouble)
}

func TestMemoryNodesRepository_GetReadings_CapsAtHistoryLimit(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewMemoryNodesRepository()
	for i := 0; i < domain.HistoryLimit+10; i++ {
		repo.PutReading(domain.Reading{NodeID: 5, RecordedTime: base.Add(time.Duration(i) * time.Minute)})
	}

	readings, err := repo.GetReadings(context.Background(), 5, Window{}, domain.HistoryLimit)
	require.NoError(t, err)
	assert.Len(t, readings, domain.HistoryLimit)
	assert.True(t, readings[0].RecordedTime.Equal(base.Add(time.Duration(domain.HistoryLimit+9)*time.Minute)))
}
