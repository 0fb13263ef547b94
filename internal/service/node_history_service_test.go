package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"owl-history/internal/domain"
	"owl-history/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	t1 = t0.Add(1 * time.Minute)
	t2 = t0.Add(2 * time.Minute)
	t4 = t0.Add(3 * time.Minute) // T1 < T2 < T4 < T3
	t3 = t0.Add(4 * time.Minute)
)

// faultyRepo 包装内存 repo，按方法注入故障
type faultyRepo struct {
	*repository.MemoryNodesRepository
	listErr     error
	nodesErr    error
	readingsErr error
	readingsFor int64 // 只对该节点注入；0 表示全部
	onList      func()
	calls       atomic.Int32
}

func (r *faultyRepo) ListNodeIDsWithHistory(ctx context.Context, w repository.Window) ([]int64, error) {
	if r.onList != nil {
		r.onList()
	}
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.MemoryNodesRepository.ListNodeIDsWithHistory(ctx, w)
}

func (r *faultyRepo) GetNode(ctx context.Context, id int64) (*domain.Node, error) {
	if r.nodesErr != nil {
		return nil, r.nodesErr
	}
	return r.MemoryNodesRepository.GetNode(ctx, id)
}

func (r *faultyRepo) GetNodesByIDs(ctx context.Context, ids []int64) ([]domain.Node, error) {
	r.calls.Add(1)
	if r.nodesErr != nil {
		return nil, r.nodesErr
	}
	return r.MemoryNodesRepository.GetNodesByIDs(ctx, ids)
}

func (r *faultyRepo) GetReadings(ctx context.Context, id int64, w repository.Window, limit int) ([]domain.Reading, error) {
	if r.readingsErr != nil && (r.readingsFor == 0 || r.readingsFor == id) {
		return nil, r.readingsErr
	}
	return r.MemoryNodesRepository.GetReadings(ctx, id, w, limit)
}

func newScenarioRepo() *repository.MemoryNodesRepository {
	repo := repository.NewMemoryNodesRepository()
	repo.PutNode(domain.Node{NodeID: 1, TagName: "T1"})
	repo.PutNode(domain.Node{NodeID: 2, TagName: "T2"})
	repo.PutNode(domain.Node{NodeID: 3, TagName: "T3"})

	v := 1.0
	for _, ts := range []time.Time{t1, t2, t3} {
		repo.PutReading(domain.Reading{NodeID: 1, RecordedTime: ts, ValDouble: &v})
	}
	repo.PutReading(domain.Reading{NodeID: 2, RecordedTime: t4, ValDouble: &v})
	return repo
}

func newTestService(repo repository.NodesRepository) NodeHistoryService {
	return NewNodeHistoryService(repo, nil, 4, zap.NewNop())
}

func recordedTimes(readings []domain.Reading) []time.Time {
	out := make([]time.Time, 0, len(readings))
	for _, r := range readings {
		out = append(out, r.RecordedTime)
	}
	return out
}

func int64Ptr(v int64) *int64 { return &v }

func TestGetHistory_AllNodes(t *testing.T) {
	svc := newTestService(newScenarioRepo())

	result := svc.GetHistory(context.Background(), HistoryQuery{})

	require.Len(t, result, 2)
	assert.Equal(t, domain.NodeSummary{NodeID: 1, TagName: "T1"}, result[0].Node)
	assert.Equal(t, []time.Time{t3, t2, t1}, recordedTimes(result[0].History))
	assert.Equal(t, domain.NodeSummary{NodeID: 2, TagName: "T2"}, result[1].Node)
	assert.Equal(t, []time.Time{t4}, recordedTimes(result[1].History))
}

func TestGetHistory_SingleNodeWithWindowFrom(t *testing.T) {
	svc := newTestService(newScenarioRepo())

	from := t2
	result := svc.GetHistory(context.Background(), HistoryQuery{
		NodeID: int64Ptr(1),
		Window: repository.NewWindow(&from, nil),
	})

	require.Len(t, result, 1)
	assert.Equal(t, int64(1), result[0].Node.NodeID)
	assert.Equal(t, []time.Time{t3, t2}, recordedTimes(result[0].History))
}

func TestGetHistory_UnknownNode(t *testing.T) {
	svc := newTestService(newScenarioRepo())

	result := svc.GetHistory(context.Background(), HistoryQuery{NodeID: int64Ptr(99)})

	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestGetHistory_KnownNodeWithoutReadings(t *testing.T) {
	svc := newTestService(newScenarioRepo())

	result := svc.GetHistory(context.Background(), HistoryQuery{NodeID: int64Ptr(3)})

	assert.Empty(t, result)
}

func TestGetHistory_NoReadingsInWindow(t *testing.T) {
	svc := newTestService(newScenarioRepo())

	from := t3.Add(time.Hour)
	result := svc.GetHistory(context.Background(), HistoryQuery{Window: repository.NewWindow(&from, nil)})

	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestGetHistory_InvertedWindow(t *testing.T) {
	svc := newTestService(newScenarioRepo())

	from, to := t3, t1
	result := svc.GetHistory(context.Background(), HistoryQuery{Window: repository.NewWindow(&from, &to)})

	assert.Empty(t, result)
}

func TestGetHistory_WindowBoundsInclusive(t *testing.T) {
	svc := newTestService(newScenarioRepo())

	from, to := t2, t4
	w := repository.NewWindow(&from, &to)
	result := svc.GetHistory(context.Background(), HistoryQuery{Window: w})

	require.Len(t, result, 2)
	for _, h := range result {
		for _, r := range h.History {
			assert.True(t, w.Contains(r.RecordedTime), "reading %s outside window", r.RecordedTime)
		}
	}
	assert.Equal(t, []time.Time{t2}, recordedTimes(result[0].History))
	assert.Equal(t, []time.Time{t4}, recordedTimes(result[1].History))
}

func TestGetHistory_CapAndStrictOrder(t *testing.T) {
	repo := repository.NewMemoryNodesRepository()
	repo.PutNode(domain.Node{NodeID: 7, TagName: "BUSY"})
	for i := 0; i < 120; i++ {
		repo.PutReading(domain.Reading{NodeID: 7, RecordedTime: t0.Add(time.Duration(i) * time.Second)})
	}
	svc := newTestService(repo)

	for _, q := range []HistoryQuery{{}, {NodeID: int64Ptr(7)}} {
		result := svc.GetHistory(context.Background(), q)
		require.Len(t, result, 1)
		history := result[0].History
		require.Len(t, history, domain.HistoryLimit)
		assert.Equal(t, t0.Add(119*time.Second), history[0].RecordedTime)
		for i := 1; i < len(history); i++ {
			assert.True(t, history[i-1].RecordedTime.After(history[i].RecordedTime))
		}
	}
}

func TestGetHistory_Idempotent(t *testing.T) {
	svc := newTestService(newScenarioRepo())
	ctx := context.Background()

	first := svc.GetHistory(ctx, HistoryQuery{})
	second := svc.GetHistory(ctx, HistoryQuery{})

	assert.Equal(t, first, second)
}

func TestGetHistory_ManyNodesKeepCatalogOrder(t *testing.T) {
	repo := repository.NewMemoryNodesRepository()
	for id := int64(1); id <= 40; id++ {
		repo.PutNode(domain.Node{NodeID: id, TagName: "N"})
		repo.PutReading(domain.Reading{NodeID: id, RecordedTime: t0.Add(time.Duration(40-id) * time.Second)})
	}
	svc := NewNodeHistoryService(repo, nil, 3, zap.NewNop())

	result := svc.GetHistory(context.Background(), HistoryQuery{})

	require.Len(t, result, 40)
	for i, h := range result {
		assert.Equal(t, int64(i+1), h.Node.NodeID)
	}
}

func TestGetHistory_DanglingReadingExcluded(t *testing.T) {
	repo := newScenarioRepo()
	repo.PutReading(domain.Reading{NodeID: 404, RecordedTime: t1})
	svc := newTestService(repo)

	result := svc.GetHistory(context.Background(), HistoryQuery{})
	require.Len(t, result, 2)

	assert.Empty(t, svc.GetHistory(context.Background(), HistoryQuery{NodeID: int64Ptr(404)}))
}

func TestGetHistory_FaultsFlattenToEmpty(t *testing.T) {
	boom := errors.New("store unavailable")
	cases := map[string]*faultyRepo{
		"discovery":       {listErr: boom},
		"catalog":         {nodesErr: boom},
		"readings":        {readingsErr: boom},
		"one node faults": {readingsErr: boom, readingsFor: 2},
	}

	for name, repo := range cases {
		t.Run(name, func(t *testing.T) {
			repo.MemoryNodesRepository = newScenarioRepo()
			svc := newTestService(repo)
			ctx := context.Background()

			all := svc.GetHistory(ctx, HistoryQuery{})
			assert.NotNil(t, all)
			assert.Empty(t, all)

			_, err := svc.FetchHistory(ctx, HistoryQuery{})
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestGetHistory_SingleNodeFault(t *testing.T) {
	boom := errors.New("timeout")
	repo := &faultyRepo{MemoryNodesRepository: newScenarioRepo(), readingsErr: boom}
	svc := newTestService(repo)

	assert.Empty(t, svc.GetHistory(context.Background(), HistoryQuery{NodeID: int64Ptr(1)}))

	_, err := svc.FetchHistory(context.Background(), HistoryQuery{NodeID: int64Ptr(1)})
	assert.ErrorIs(t, err, boom)
}

func TestListAllNodes_ExcludesNodesWithoutReadings(t *testing.T) {
	svc := newTestService(newScenarioRepo())

	nodes := svc.ListAllNodes(context.Background())

	assert.Equal(t, []domain.NodeSummary{{NodeID: 1, TagName: "T1"}, {NodeID: 2, TagName: "T2"}}, nodes)
}

func TestListNodesWithHistory_Window(t *testing.T) {
	svc := newTestService(newScenarioRepo())

	to := t2
	nodes := svc.ListNodesWithHistory(context.Background(), repository.NewWindow(nil, &to))

	assert.Equal(t, []domain.NodeSummary{{NodeID: 1, TagName: "T1"}}, nodes)
}

func TestListNodes_FaultFlattensToEmpty(t *testing.T) {
	repo := &faultyRepo{MemoryNodesRepository: newScenarioRepo(), listErr: errors.New("down")}
	svc := newTestService(repo)

	assert.Empty(t, svc.ListAllNodes(context.Background()))
	assert.Empty(t, svc.ListNodesWithHistory(context.Background(), repository.Window{}))
	assert.NotNil(t, svc.ListAllNodes(context.Background()))
}

func TestFetchNodesWithHistory_EmptyStoreSkipsCatalogQuery(t *testing.T) {
	repo := &faultyRepo{MemoryNodesRepository: repository.NewMemoryNodesRepository()}
	svc := newTestService(repo)

	nodes, err := svc.FetchNodesWithHistory(context.Background(), repository.Window{})

	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.Equal(t, int32(0), repo.calls.Load())
}
