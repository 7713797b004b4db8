package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/movement-scanner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int64
	err   error
}

func (c *countingRefresher) Refresh(ctx context.Context, chains []types.ChainID) error {
	c.calls.Add(1)
	return c.err
}

func TestNewRefreshWorkerValidation(t *testing.T) {
	chains := []types.ChainID{types.ChainEthereum}

	_, err := NewRefreshWorker(nil, chains, time.Minute, nil)
	assert.Error(t, err)

	_, err = NewRefreshWorker(&countingRefresher{}, nil, time.Minute, nil)
	assert.Error(t, err)

	_, err = NewRefreshWorker(&countingRefresher{}, chains, time.Second, nil)
	assert.Error(t, err, "intervals under 10s must be rejected")

	w, err := NewRefreshWorker(&countingRefresher{}, chains, time.Minute, nil)
	require.NoError(t, err)
	assert.False(t, w.IsRunning())
}

func TestRefreshWorkerRunsImmediatelyOnStart(t *testing.T) {
	refresher := &countingRefresher{}
	w, err := NewRefreshWorker(refresher, []types.ChainID{types.ChainEthereum}, time.Minute, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Eventually(t, func() bool {
		return refresher.calls.Load() >= 1
	}, time.Second, 10*time.Millisecond, "worker must warm the cache on start")
}

func TestRefreshWorkerStartTwiceFails(t *testing.T) {
	w, err := NewRefreshWorker(&countingRefresher{}, []types.ChainID{types.ChainEthereum}, time.Minute, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestRefreshWorkerStopIsIdempotent(t *testing.T) {
	w, err := NewRefreshWorker(&countingRefresher{}, []types.ChainID{types.ChainEthereum}, time.Minute, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
	assert.False(t, w.IsRunning())
}

func TestRefreshWorkerSurvivesFailedCycles(t *testing.T) {
	refresher := &countingRefresher{err: errors.New("upstream down")}
	w, err := NewRefreshWorker(refresher, []types.ChainID{types.ChainEthereum}, time.Minute, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Eventually(t, func() bool {
		return refresher.calls.Load() >= 1
	}, time.Second, 10*time.Millisecond)
	assert.True(t, w.IsRunning(), "a failed cycle must not stop the worker")
}
