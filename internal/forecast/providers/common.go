package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/forecast-widget/forecast-widget/internal/forecast"
)

// HTTPClientConfig bundles the HTTP client and the outbound guards.
type HTTPClientConfig struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// BreakerConfig controls when the circuit breaker opens.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker; 0 means 5.
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
}

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

func newBreaker(name string, cfg BreakerConfig, onChange func(name string, from, to gobreaker.State)) *gobreaker.CircuitBreaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful:  breakerSuccess,
		OnStateChange: onChange,
	})
}

// breakerSuccess reports whether err leaves the failure count alone: 4xx
// responses other than 429 and requests cancelled by the caller.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *forecast.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode < 500 && statusErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// doRequest executes a single attempt of the request through the rate
// limiter and the circuit breaker. Failures are mapped onto the forecast
// error taxonomy: anything before a response is ErrTransport, a non-2xx
// response is *forecast.HTTPStatusError. On success the caller owns the body.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}

	if cfg.Limiter != nil {
		if err := cfg.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %v", forecast.ErrTransport, err)
		}
	}

	req, err := buildRequest()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, fmt.Errorf("%w: %w", forecast.ErrTransport, execErr)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, &forecast.HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w: %v", forecast.ErrTransport, errCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}
