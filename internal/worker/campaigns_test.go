package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/optica-notifier/internal/kafka"
	"github.com/jmehdipour/optica-notifier/internal/service/alerts"
)

// fakeConsumer hands out queued messages, then blocks until ctx is done.
type fakeConsumer struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	fetchErr  error
	drained   chan struct{}
}

func (c *fakeConsumer) Fetch(ctx context.Context) (kafka.Message, error) {
	c.mu.Lock()
	if c.fetchErr != nil {
		err := c.fetchErr
		c.fetchErr = nil
		c.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(c.queue) > 0 {
		m := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()
	close(c.drained)
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (c *fakeConsumer) Commit(_ context.Context, m kafka.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = append(c.committed, m.Offset)
	return nil
}

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) GenerateCampaignAlerts(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func msg(offset int64, value string) kafka.Message {
	return kafka.Message{Offset: offset, Value: []byte(value)}
}

func TestCampaignConsumer_Run(t *testing.T) {
	c := &fakeConsumer{
		drained:  make(chan struct{}),
		fetchErr: errors.New("broker unavailable"),
		queue: []kafka.Message{
			msg(1, `{"campaign_id":2}`),
			msg(2, `not json`),
			msg(3, `{"campaign_id":999}`),
			msg(4, `{"campaign_id":0}`),
			msg(5, `{"campaign_id":3}`),
		},
	}
	g := new(mockGenerator)
	g.On("GenerateCampaignAlerts", mock.Anything, int64(2)).Return(4, nil).Once()
	g.On("GenerateCampaignAlerts", mock.Anything, int64(999)).Return(0, fmt.Errorf("campaign 999: %w", alerts.ErrNotFound)).Once()
	g.On("GenerateCampaignAlerts", mock.Anything, int64(3)).Return(0, errors.New("db down")).Once()

	w := NewCampaignConsumer(c, g, nil)
	w.Backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	<-c.drained
	cancel()
	require.NoError(t, <-errCh)

	g.AssertExpectations(t)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, c.committed, "every message is committed, including poison and failures")
}
