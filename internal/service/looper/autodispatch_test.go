package looper_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/deterministic-dispatch/internal/domain/errors"
	"github.com/davidleathers/deterministic-dispatch/internal/testutil/fixtures"
	"github.com/davidleathers/deterministic-dispatch/internal/testutil/mocks"
)

func TestAutoDispatch_DeliversSingleMessage(t *testing.T) {
	rec := mocks.NewRecordingHandler()
	lp := fixtures.NewLooperBuilder(t).WithHandler(rec).Build()

	require.NoError(t, lp.StartAutoDispatch())
	require.NoError(t, lp.Send(1))

	dispatched, err := lp.StopAutoDispatch()
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)
	assert.Equal(t, []int{1}, rec.Tags())

	// nothing is delivered after stop has returned
	require.NoError(t, lp.Send(2))
	assert.Equal(t, 1, rec.Count())
	assert.Equal(t, 1, lp.DispatchAll())
	assert.Equal(t, []int{1, 2}, rec.Tags())
}

func TestAutoDispatch_CountsEveryMessage(t *testing.T) {
	rec := mocks.NewRecordingHandler()
	lp := fixtures.NewLooperBuilder(t).WithHandler(rec).Build()

	require.NoError(t, lp.StartAutoDispatch())
	for _, tag := range []int{1, 2, 3} {
		require.NoError(t, lp.Send(tag))
	}
	assert.Eventually(t, func() bool { return rec.Count() == 3 },
		2*time.Second, time.Millisecond)

	dispatched, err := lp.StopAutoDispatch()
	require.NoError(t, err)
	assert.Equal(t, 3, dispatched)
	assert.Equal(t, []int{1, 2, 3}, rec.Tags())
}

func TestAutoDispatch_WaitsForVirtualTime(t *testing.T) {
	rec := mocks.NewRecordingHandler()
	lp := fixtures.NewLooperBuilder(t).WithHandler(rec).Build()

	require.NoError(t, lp.StartAutoDispatch())
	require.NoError(t, lp.SendDelayed(7, 5*time.Second))

	// the loop never advances virtual time on its own
	assert.Never(t, func() bool { return rec.Count() > 0 },
		50*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, lp.MoveTimeForward(5*time.Second))
	assert.Eventually(t, func() bool { return rec.Count() == 1 },
		2*time.Second, time.Millisecond)

	dispatched, err := lp.StopAutoDispatch()
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)
}

func TestAutoDispatch_RepeatedStartFails(t *testing.T) {
	rec := mocks.NewRecordingHandler()
	lp := fixtures.NewLooperBuilder(t).WithHandler(rec).Build()

	require.NoError(t, lp.StartAutoDispatch())
	require.NoError(t, lp.Send(1))

	err := lp.StartAutoDispatch()
	require.ErrorIs(t, err, errors.ErrAutoDispatchRunning)
	assert.True(t, errors.IsType(err, errors.ErrorTypeState))

	// the running session is untouched by the failed start
	dispatched, err := lp.StopAutoDispatch()
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)
}

func TestAutoDispatch_StopWithoutStartFails(t *testing.T) {
	lp := fixtures.NewLooperBuilder(t).Build()

	dispatched, err := lp.StopAutoDispatch()
	require.ErrorIs(t, err, errors.ErrAutoDispatchIdle)
	assert.Zero(t, dispatched)
}

// A stop that dispatched nothing reports a usage error, but the state
// machine still completes its transition back to idle: the looper keeps
// working afterwards. Documented behavior, inherited from the system this
// mirrors.
func TestAutoDispatch_StopWithoutDispatchFailsButResetsState(t *testing.T) {
	rec := mocks.NewRecordingHandler()
	lp := fixtures.NewLooperBuilder(t).WithHandler(rec).Build()

	require.NoError(t, lp.StartAutoDispatch())

	dispatched, err := lp.StopAutoDispatch()
	require.ErrorIs(t, err, errors.ErrNoMessagesDispatched)
	assert.Zero(t, dispatched)

	// synchronous dispatch still works
	require.NoError(t, lp.Send(1))
	assert.Equal(t, 1, lp.DispatchAll())
	assert.Equal(t, []int{1}, rec.Tags())

	// and a fresh auto-dispatch session can be started
	require.NoError(t, lp.StartAutoDispatch())
	require.NoError(t, lp.Send(2))
	dispatched, err = lp.StopAutoDispatch()
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)
}

func TestAutoDispatch_StopDrainsDueMessages(t *testing.T) {
	rec := mocks.NewRecordingHandler()
	// long poll interval: stop cannot rely on the loop polling in time,
	// it has to drain on the way out
	lp := fixtures.NewLooperBuilder(t).
		WithHandler(rec).
		WithPollInterval(time.Minute).
		Build()

	require.NoError(t, lp.StartAutoDispatch())
	require.NoError(t, lp.Send(1))
	require.NoError(t, lp.Send(2))

	dispatched, err := lp.StopAutoDispatch()
	require.NoError(t, err)
	assert.Equal(t, 2, dispatched)
	assert.Equal(t, []int{1, 2}, rec.Tags())
}
