package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

func fastRetries(t *testing.T) {
	t.Helper()
	base, max := retryBase, retryMax
	retryBase, retryMax = time.Millisecond, 4*time.Millisecond
	t.Cleanup(func() { retryBase, retryMax = base, max })
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, backoff(1))
	assert.Equal(t, 500*time.Millisecond, backoff(2))
	assert.Equal(t, time.Second, backoff(3))
	assert.Equal(t, 5*time.Second, backoff(6))
	assert.Equal(t, 5*time.Second, backoff(100))
}

func TestRetryUntilSuccess(t *testing.T) {
	fastRetries(t)
	calls, retried := 0, 0
	err := Retry(context.Background(), time.Minute, nil,
		func(int, error) { retried++ },
		func() error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retried)
}

func TestRetryZeroWaitRunsOnce(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Retry(context.Background(), 0, nil, nil, func() error { calls++; return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	fastRetries(t)
	calls := 0
	err := Retry(context.Background(), time.Minute, isRetryableRPC, nil, func() error {
		calls++
		return status.Error(codes.PermissionDenied, "nope")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	fastRetries(t)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, time.Minute, nil, nil, func() error {
		calls++
		cancel()
		return status.Error(codes.Unavailable, "down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryableRPC(t *testing.T) {
	assert.True(t, isRetryableRPC(status.Error(codes.Unavailable, "x")))
	assert.True(t, isRetryableRPC(status.Error(codes.ResourceExhausted, "x")))
	assert.True(t, isRetryableRPC(context.DeadlineExceeded))
	assert.False(t, isRetryableRPC(status.Error(codes.InvalidArgument, "x")))
	assert.False(t, isRetryableRPC(errors.New("plain")))
}

type fakeRegistry struct {
	describeErr error
	registerErr error
	registered  []*workflowservice.RegisterNamespaceRequest
}

func (f *fakeRegistry) Describe(context.Context, string) (*workflowservice.DescribeNamespaceResponse, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &workflowservice.DescribeNamespaceResponse{}, nil
}

func (f *fakeRegistry) Register(_ context.Context, req *workflowservice.RegisterNamespaceRequest) error {
	f.registered = append(f.registered, req)
	return f.registerErr
}

func TestEnsureNamespaceRegistersMissing(t *testing.T) {
	reg := &fakeRegistry{describeErr: serviceerror.NewNamespaceNotFound("learn")}
	require.NoError(t, ensureNamespace(context.Background(), logger.Nop(), reg, "learn"))
	require.Len(t, reg.registered, 1)
	assert.Equal(t, "learn", reg.registered[0].Namespace)
	assert.Equal(t, namespaceRetention, reg.registered[0].WorkflowExecutionRetentionPeriod.AsDuration())
}

func TestEnsureNamespaceExisting(t *testing.T) {
	reg := &fakeRegistry{}
	require.NoError(t, ensureNamespace(context.Background(), logger.Nop(), reg, "learn"))
	assert.Empty(t, reg.registered)

	raced := &fakeRegistry{
		describeErr: serviceerror.NewNamespaceNotFound("learn"),
		registerErr: serviceerror.NewNamespaceAlreadyExists("learn"),
	}
	assert.NoError(t, ensureNamespace(context.Background(), logger.Nop(), raced, "learn"))
}

func TestEnsureNamespaceSurfacesDescribeFailure(t *testing.T) {
	down := status.Error(codes.Unavailable, "down")
	reg := &fakeRegistry{describeErr: down}
	err := ensureNamespace(context.Background(), logger.Nop(), reg, "learn")
	assert.ErrorIs(t, err, down)
	assert.Empty(t, reg.registered)
}

func TestEnsureNamespaceNoAddress(t *testing.T) {
	assert.NoError(t, EnsureNamespace(context.Background(), logger.Nop(), Config{Namespace: "learn"}))
}

func TestNewClientWithoutAddress(t *testing.T) {
	c, err := NewClient(context.Background(), logger.Nop(), Config{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	t.Setenv("CALIB_SCHEDULE_CRON", "")
	t.Setenv("WORKER_CONCURRENCY", "0")
	cfg := LoadConfig()
	assert.Equal(t, "learner-calibration", cfg.TaskQueue)
	assert.Equal(t, time.Minute, cfg.ConnectWait)
	assert.Equal(t, 1, cfg.WorkerConcurrency)
	assert.False(t, cfg.RegisterNamespace)
	assert.Empty(t, cfg.ScheduleCron)
	assert.False(t, cfg.TLSEnabled())
}
