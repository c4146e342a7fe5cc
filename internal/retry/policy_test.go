package retry_test

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/jrsteele09/onlyoffice-confluence/internal/retry"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return true }

func dialTimeout() error {
	return &url.Error{Op: "Get", URL: "https://site.atlassian.net", Err: &net.OpError{Op: "dial", Net: "tcp", Err: timeoutErr{}}}
}

func TestIsConnectTimeout(t *testing.T) {
	require.True(t, retry.IsConnectTimeout(dialTimeout()))
	require.False(t, retry.IsConnectTimeout(&net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}}))
	require.False(t, retry.IsConnectTimeout(errors.New("connection refused")))
	require.False(t, retry.IsConnectTimeout(nil))
}

func TestPolicy_ConnectTimeoutRetriedOnce(t *testing.T) {
	calls := 0
	err := retry.ConnectTimeoutOnce().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return dialTimeout()
	})
	require.Error(t, err)
	require.True(t, retry.IsConnectTimeout(err))
	require.Equal(t, 2, calls)
}

func TestPolicy_SecondAttemptSucceeds(t *testing.T) {
	calls := 0
	err := retry.ConnectTimeoutOnce().Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return dialTimeout()
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestPolicy_OtherErrorsPropagateImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("connection reset")
	err := retry.ConnectTimeoutOnce().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestPolicy_CustomPredicate(t *testing.T) {
	flaky := errors.New("flaky")
	p := retry.Policy{MaxAttempts: 4, Retryable: func(err error) bool { return errors.Is(err, flaky) }}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return flaky
	})
	require.ErrorIs(t, err, flaky)
	require.Equal(t, 4, calls)

	calls = 0
	require.NoError(t, retry.None().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}))
	require.Equal(t, 1, calls)
}
