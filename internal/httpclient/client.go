// Package httpclient is the outbound transport used by taskctl to reach the API.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/config"
)

// ErrCircuitOpen is returned when the breaker rejects a request without sending it.
var ErrCircuitOpen = gobreaker.ErrOpenState

// Config holds transport and circuit breaker settings.
type Config struct {
	Name         string
	Timeout      time.Duration
	MaxRequests  uint32
	Interval     time.Duration
	OpenTimeout  time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// FromClientConfig maps taskctl configuration onto transport settings.
func FromClientConfig(name string, cfg config.ClientConfig) Config {
	return Config{
		Name:         name,
		Timeout:      cfg.Timeout,
		MaxRequests:  1,
		Interval:     cfg.BreakerCountInterval,
		OpenTimeout:  cfg.BreakerOpenTimeout,
		FailureRatio: cfg.BreakerFailureRatio,
		MinRequests:  cfg.BreakerMinRequests,
	}
}

// Client wraps http.Client with a circuit breaker. It never retries.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	state      prometheus.Gauge
	logger     *zap.Logger
}

// serverError carries a 5xx response through the breaker so it counts as a failure.
type serverError struct {
	resp *http.Response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error %d", e.resp.StatusCode)
}

// New builds a client. reg may be nil when the breaker gauge is not exported.
func New(cfg Config, logger *zap.Logger, reg prometheus.Registerer) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	state := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "circuit_breaker_state",
		Help:        "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		ConstLabels: prometheus.Labels{"name": cfg.Name},
	})
	if reg != nil {
		if err := reg.Register(state); err != nil {
			logger.Warn("circuit breaker gauge not registered", zap.Error(err))
		}
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			state.Set(stateToFloat(to))
		},
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker[*http.Response](settings),
		state:      state,
		logger:     logger,
	}
}

// Do sends req through the breaker. 5xx responses are returned to the caller
// but recorded as failures.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &serverError{resp: resp}
		}
		return resp, nil
	})
	var se *serverError
	if errors.As(err, &se) {
		return se.resp, nil
	}
	return resp, err
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
