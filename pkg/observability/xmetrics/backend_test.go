package xmetrics

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xautometrics/pkg/observability/xlog"
)

var errBackendDown = errors.New("backend down")

func newQuietLogger(t *testing.T) xlog.Logger {
	t.Helper()
	logger, cleanup, err := xlog.New().SetOutput(io.Discard).SetLevel(xlog.LevelDebug).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return logger
}

func TestNewBackendTracker_Errors(t *testing.T) {
	_, err := NewBackendTracker(nil)
	assert.ErrorIs(t, err, ErrNilBackend)

	ctrl := gomock.NewController(t)
	_, err = NewBackendTracker(NewMockBackend(ctrl), nil)
	assert.ErrorIs(t, err, ErrNilOption)
}

func TestBackendTracker_Forwards(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	labels := NewLabelSet(Label{KeyFunction, "f"})

	backend.EXPECT().RecordCall(gomock.Any(), labels).Return(nil)
	backend.EXPECT().ObserveLatency(gomock.Any(), time.Second, labels).Return(nil)
	backend.EXPECT().SetConcurrency(gomock.Any(), int64(1), labels).Return(nil)

	tr, err := NewBackendTracker(backend, WithBackendLogger(newQuietLogger(t)))
	require.NoError(t, err)

	tr.RecordCall(t.Context(), labels)
	tr.ObserveLatency(t.Context(), time.Second, labels)
	tr.SetConcurrency(t.Context(), 1, labels)

	assert.Equal(t, uint64(0), tr.Failures())
	assert.Equal(t, uint64(0), tr.Dropped())
}

func TestBackendTracker_AbsorbsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	labels := NewLabelSet(Label{KeyFunction, "f"})

	backend.EXPECT().RecordCall(gomock.Any(), labels).Return(errBackendDown)
	backend.EXPECT().SetConcurrency(gomock.Any(), int64(-1), labels).DoAndReturn(
		func(context.Context, int64, LabelSet) error { panic("gauge exploded") },
	)

	var ops []string
	var errs []error
	tr, err := NewBackendTracker(backend,
		WithBackendLogger(newQuietLogger(t)),
		WithOnError(func(op string, err error) {
			ops = append(ops, op)
			errs = append(errs, err)
		}),
	)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		tr.RecordCall(t.Context(), labels)
		tr.SetConcurrency(t.Context(), -1, labels)
	})

	assert.Equal(t, uint64(2), tr.Failures())
	assert.Equal(t, []string{OpRecordCall, OpSetConcurrency}, ops)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], errBackendDown)
	assert.ErrorIs(t, errs[1], ErrBackendPanic)
}

func TestBackendTracker_OnErrorPanicIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	backend.EXPECT().RecordCall(gomock.Any(), gomock.Any()).Return(errBackendDown)

	tr, err := NewBackendTracker(backend,
		WithBackendLogger(newQuietLogger(t)),
		WithOnError(func(string, error) { panic("hook") }),
	)
	require.NoError(t, err)
	assert.NotPanics(t, func() { tr.RecordCall(t.Context(), LabelSet{}) })
}

func TestBackendTracker_BreakerTrips(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	labels := NewLabelSet(Label{KeyFunction, "f"})

	// 连续两次失败后熔断，之后的记录不再到达后端。
	backend.EXPECT().RecordCall(gomock.Any(), labels).Return(errBackendDown).Times(2)
	// gauge 不经过熔断器。
	backend.EXPECT().SetConcurrency(gomock.Any(), int64(1), labels).Return(nil)

	tr, err := NewBackendTracker(backend,
		WithBackendName("flaky"),
		WithBackendLogger(newQuietLogger(t)),
		WithBreakerFailures(2),
		WithBreakerTimeout(time.Hour),
	)
	require.NoError(t, err)

	tr.RecordCall(t.Context(), labels)
	tr.RecordCall(t.Context(), labels)
	assert.Equal(t, gobreaker.StateOpen, tr.State())

	tr.RecordCall(t.Context(), labels)
	tr.ObserveLatency(t.Context(), time.Millisecond, labels)
	tr.SetConcurrency(t.Context(), 1, labels)

	assert.Equal(t, uint64(2), tr.Failures())
	assert.Equal(t, uint64(2), tr.Dropped())
}

func TestBackendTracker_CancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)

	// 请求 context 已取消，后端收到的 context 仍然有效。
	backend.EXPECT().RecordCall(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ LabelSet) error { return ctx.Err() },
	)

	tr, err := NewBackendTracker(backend, WithBackendLogger(newQuietLogger(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	tr.RecordCall(ctx, LabelSet{})
	assert.Equal(t, uint64(0), tr.Failures())
}
