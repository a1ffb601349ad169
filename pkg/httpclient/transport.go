package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// Config holds the outbound transport configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns sensible defaults for talking to a backend cluster.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 50,
	}
}

// NewPooledTransport returns an *http.Transport with keep-alive pooling sized
// from cfg.
func NewPooledTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	}
}

// RetryTransport retries idempotent-safe failures with exponential backoff.
// A request is only retried when its body can be replayed.
type RetryTransport struct {
	base   http.RoundTripper
	cfg    Config
	name   string
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryTransport wraps base. A nil base uses http.DefaultTransport.
func NewRetryTransport(base http.RoundTripper, cfg Config, name string, logger *slog.Logger) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryTransport{base: base, cfg: cfg, name: name, logger: logger, sleep: sleepContext}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, gerr := req.GetBody()
				if gerr != nil {
					return nil, fmt.Errorf("rewind request body: %w", gerr)
				}
				req = req.Clone(ctx)
				req.Body = body
			}
			wait := t.backoff(attempt)
			t.logger.DebugContext(ctx, "retrying request",
				slog.String("client", t.name),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", wait),
			)
			if serr := t.sleep(ctx, wait); serr != nil {
				return nil, serr
			}
			clientRetries.WithLabelValues(t.name).Inc()
		}

		resp, err = t.base.RoundTrip(req)
		last := attempt >= t.cfg.MaxRetries || !replayable

		if err != nil {
			if isRetryableError(err) && !last {
				continue
			}
			return nil, err
		}
		if isRetryableStatus(resp.StatusCode) && !last {
			drainAndClose(resp.Body)
			continue
		}
		return resp, nil
	}
}

// backoff returns RetryWaitMin*2^(attempt-1) capped at RetryWaitMax, with jitter.
func (t *RetryTransport) backoff(attempt int) time.Duration {
	wait := t.cfg.RetryWaitMin << (attempt - 1)
	if wait <= 0 || wait > t.cfg.RetryWaitMax {
		wait = t.cfg.RetryWaitMax
	}
	return addJitter(wait)
}

// addJitter spreads d by ±20%.
func addJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := int64(d) / 5
	if spread == 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(2*spread+1)-spread) // #nosec G404 -- jitter only
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// New builds the full outbound stack: pooled transport, retries, and a
// circuit breaker in front of both so one retried call counts once.
func New(cfg Config, cbCfg CircuitBreakerConfig, logger *slog.Logger) http.RoundTripper {
	retry := NewRetryTransport(NewPooledTransport(cfg), cfg, cbCfg.Name, logger)
	return NewBreakerTransport(retry, cbCfg, logger)
}
