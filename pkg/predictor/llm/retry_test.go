package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/require"
)

func TestRetryHandlerDefaults(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{MaxRetries: -1, Multiplier: 0.5})
	require.Equal(t, 0, handler.cfg.MaxRetries)
	require.Equal(t, defaultInitialBackoff, handler.cfg.InitialBackoff)
	require.Equal(t, defaultMaxBackoff, handler.cfg.MaxBackoff)
	require.Equal(t, defaultBackoffFactor, handler.cfg.Multiplier)
}

func TestRetryHandlerDo(t *testing.T) {
	t.Run("retries retryable status", func(t *testing.T) {
		handler := NewRetryHandler(RetryConfig{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
		})
		calls := 0
		err := handler.Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return &openai.Error{StatusCode: http.StatusTooManyRequests}
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("stops on non-retryable status", func(t *testing.T) {
		handler := NewRetryHandler(RetryConfig{
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
		})
		calls := 0
		err := handler.Do(context.Background(), func() error {
			calls++
			return &openai.Error{StatusCode: http.StatusBadRequest}
		})
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		handler := NewRetryHandler(RetryConfig{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
		})
		calls := 0
		err := handler.Do(context.Background(), func() error {
			calls++
			return &openai.Error{StatusCode: http.StatusServiceUnavailable}
		})
		require.Error(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		handler := NewRetryHandler(RetryConfig{
			MaxRetries:     5,
			InitialBackoff: 50 * time.Millisecond,
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := handler.Do(ctx, func() error {
			return &openai.Error{StatusCode: http.StatusTooManyRequests}
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return false }

func TestShouldRetry(t *testing.T) {
	require.False(t, shouldRetry(nil))
	require.False(t, shouldRetry(context.Canceled))
	require.False(t, shouldRetry(errors.New("plain failure")))
	require.True(t, shouldRetry(&openai.Error{StatusCode: http.StatusBadGateway}))
	require.False(t, shouldRetry(&openai.Error{StatusCode: http.StatusUnauthorized}))
	require.True(t, shouldRetry(timeoutError{}))
	// connection errors without timeout semantics are not retried
	require.False(t, shouldRetry(&net.OpError{Op: "dial", Err: errors.New("refused")}))
}
