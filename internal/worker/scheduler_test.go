package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/optica-notifier/internal/config"
)

var testSpecs = config.SchedulerConfig{
	Dispatch:     "*/15 * * * *",
	Appointments: "0 * * * *",
	Warranties:   "0 8 * * *",
}

type fakePipeline struct {
	dispatchCalls atomic.Int32
	block         chan struct{}
	started       chan struct{}
	err           error
}

func (p *fakePipeline) GenerateAppointmentReminders(context.Context) (int, error) { return 2, nil }
func (p *fakePipeline) GenerateWarrantyExpiryAlerts(context.Context) (int, error) { return 0, p.err }

func (p *fakePipeline) ProcessPendingAlerts(ctx context.Context) (int, error) {
	p.dispatchCalls.Add(1)
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.block != nil {
		<-p.block
	}
	return 5, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.released++
	}, true, nil
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	specs := testSpecs
	specs.Warranties = "every day at 8"
	_, err := NewScheduler(specs, time.UTC, &fakePipeline{}, nil, 0, nil)
	assert.ErrorContains(t, err, "warranties")
}

func TestScheduler_RunNow(t *testing.T) {
	p := &fakePipeline{}
	s, err := NewScheduler(testSpecs, time.UTC, p, nil, 0, nil)
	require.NoError(t, err)

	n, ran, err := s.RunNow(context.Background(), JobAppointments)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, n)

	p.err = errors.New("db down")
	_, ran, err = s.RunNow(context.Background(), JobWarranties)
	assert.True(t, ran)
	assert.EqualError(t, err, "db down")

	_, _, err = s.RunNow(context.Background(), "birthdays")
	assert.ErrorContains(t, err, "unknown job")
}

func TestScheduler_NoOverlapInProcess(t *testing.T) {
	p := &fakePipeline{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s, err := NewScheduler(testSpecs, time.UTC, p, nil, 0, nil)
	require.NoError(t, err)

	done := make(chan int, 1)
	go func() {
		n, _, _ := s.RunNow(context.Background(), JobDispatch)
		done <- n
	}()
	<-p.started

	n, ran, err := s.RunNow(context.Background(), JobDispatch)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, n)

	close(p.block)
	assert.Equal(t, 5, <-done)
	assert.Equal(t, int32(1), p.dispatchCalls.Load())

	// guard is released after the run
	p.started = nil
	_, ran, _ = s.RunNow(context.Background(), JobDispatch)
	assert.True(t, ran)
}

func TestScheduler_DistributedLock(t *testing.T) {
	p := &fakePipeline{}
	l := &fakeLocker{held: map[string]bool{"job:dispatch": true}}
	s, err := NewScheduler(testSpecs, time.UTC, p, l, time.Minute, nil)
	require.NoError(t, err)

	_, ran, err := s.RunNow(context.Background(), JobDispatch)
	require.NoError(t, err)
	assert.False(t, ran, "held by another instance")
	assert.Zero(t, p.dispatchCalls.Load())

	_, ran, err = s.RunNow(context.Background(), JobAppointments)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, l.released)
}

func TestScheduler_LockErrorStillRuns(t *testing.T) {
	p := &fakePipeline{}
	s, err := NewScheduler(testSpecs, time.UTC, p, &fakeLocker{err: errors.New("redis down")}, time.Minute, nil)
	require.NoError(t, err)

	_, ran, err := s.RunNow(context.Background(), JobDispatch)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int32(1), p.dispatchCalls.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := NewScheduler(testSpecs, time.UTC, &fakePipeline{}, nil, 0, nil)
	require.NoError(t, err)

	assert.False(t, s.IsRunning())
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx))
}

func TestRedisLocker_NilClient(t *testing.T) {
	_, ok, err := NewRedisLocker(nil, "").TryLock(context.Background(), "job:dispatch", time.Minute)
	assert.False(t, ok)
	assert.Error(t, err)
}
