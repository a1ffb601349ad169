package httpclient

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      100 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestBreakerTransport_ClosedPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	bt := NewBreakerTransport(http.DefaultTransport, testCBConfig("cb-closed"), testLogger())
	resp, err := (&http.Client{Transport: bt}).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, bt.State())
}

func TestBreakerTransport_5xxReturnedButCounted(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, &calls, http.StatusInternalServerError)

	bt := NewBreakerTransport(http.DefaultTransport, testCBConfig("cb-trip"), testLogger())
	client := &http.Client{Transport: bt}

	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateOpen, bt.State())
	assert.Equal(t, 2.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("cb-trip")))

	_, err := client.Get(srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerRejected.WithLabelValues("cb-trip")))
}

func TestBreakerTransport_4xxNotCountedAsFailure(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, &calls, http.StatusNotFound)

	bt := NewBreakerTransport(http.DefaultTransport, testCBConfig("cb-4xx"), testLogger())
	client := &http.Client{Transport: bt}

	for i := 0; i < 5; i++ {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateClosed, bt.State())
}

func TestBreakerTransport_RecoversThroughHalfOpen(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if failing.Load() {
			return nil, errors.New("connection refused")
		}
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})

	bt := NewBreakerTransport(base, testCBConfig("cb-recover"), testLogger())
	req := httptest.NewRequest(http.MethodGet, "http://es.local/_search", nil)

	for i := 0; i < 3; i++ {
		_, err := bt.RoundTrip(req)
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, bt.State())

	failing.Store(false)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, bt.State())

	resp, err := bt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, bt.State())
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("elasticsearch")
	assert.Equal(t, "elasticsearch", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.Equal(t, 0.5, cfg.FailureRatio)
}

func TestNew_ComposesStack(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, &calls, http.StatusServiceUnavailable, http.StatusOK)

	cfg := DefaultConfig()
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = time.Millisecond
	rt := New(cfg, testCBConfig("cb-stack"), testLogger())

	resp, err := (&http.Client{Transport: rt}).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestStateToFloat(t *testing.T) {
	assert.Equal(t, 0.0, stateToFloat(gobreaker.StateClosed))
	assert.Equal(t, 1.0, stateToFloat(gobreaker.StateHalfOpen))
	assert.Equal(t, 2.0, stateToFloat(gobreaker.StateOpen))
}
