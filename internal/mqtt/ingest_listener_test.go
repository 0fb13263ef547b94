package mqtt

import (
	"context"
	"errors"
	"testing"

	"owl-history/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCache struct {
	invalidations int
	err           error
}

func (c *fakeCache) Get(context.Context) ([]domain.NodeSummary, bool)  { return nil, false }
func (c *fakeCache) Generation() uint64                                { return uint64(c.invalidations) }
func (c *fakeCache) Put(context.Context, uint64, []domain.NodeSummary) {}
func (c *fakeCache) Invalidate(context.Context) error {
	c.invalidations++
	return c.err
}

type fakeSubscriber struct {
	topics  map[string]func(string, []byte) error
	qos     byte
	failSub error
}

func (s *fakeSubscriber) Subscribe(topic string, qos byte, handler func(string, []byte) error) error {
	if s.failSub != nil {
		return s.failSub
	}
	if s.topics == nil {
		s.topics = map[string]func(string, []byte) error{}
	}
	s.topics[topic] = handler
	s.qos = qos
	return nil
}

func (s *fakeSubscriber) Unsubscribe(topics ...string) error {
	for _, t := range topics {
		delete(s.topics, t)
	}
	return nil
}

func TestIngestListener_InvalidatesOnMessage(t *testing.T) {
	cache := &fakeCache{}
	sub := &fakeSubscriber{}
	l := NewIngestListener(cache, "owl/history/ingested", 1, zap.NewNop())

	require.NoError(t, l.Start(sub))
	handler, ok := sub.topics["owl/history/ingested"]
	require.True(t, ok)
	assert.Equal(t, byte(1), sub.qos)

	require.NoError(t, handler("owl/history/ingested", []byte(`{"nodeid":12,"time":"2024-05-01T10:00:00Z","count":3}`)))
	assert.Equal(t, 1, cache.invalidations)

	l.Stop(sub)
	assert.Empty(t, sub.topics)
}

func TestIngestListener_MalformedPayloadStillInvalidates(t *testing.T) {
	cache := &fakeCache{}
	l := NewIngestListener(cache, "t", 0, zap.NewNop())

	require.NoError(t, l.HandleMessage("t", []byte("not json")))
	require.NoError(t, l.HandleMessage("t", nil))
	assert.Equal(t, 2, cache.invalidations)
}

func TestIngestListener_InvalidateError(t *testing.T) {
	cache := &fakeCache{err: errors.New("redis down")}
	l := NewIngestListener(cache, "t", 0, zap.NewNop())

	err := l.HandleMessage("t", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestIngestListener_NoCache(t *testing.T) {
	l := NewIngestListener(nil, "t", 0, zap.NewNop())
	assert.NoError(t, l.HandleMessage("t", []byte(`{}`)))
}

func TestIngestListener_SubscribeError(t *testing.T) {
	l := NewIngestListener(&fakeCache{}, "t", 0, zap.NewNop())

	err := l.Start(&fakeSubscriber{failSub: errors.New("not connected")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to subscribe")
}
