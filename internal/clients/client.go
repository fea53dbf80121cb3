package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/airtickets/config"
	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

type Options struct {
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
}

func OptionsFrom(cfg config.GatewayConfig) Options {
	return Options{Timeout: cfg.RequestTimeout, RetryAttempts: cfg.RetryAttempts, RetryDelay: cfg.RetryDelay}
}

// StatusError is a non-2xx answer from a downstream service. It unwraps to the
// domain sentinel matching the status code.
type StatusError struct {
	Service string
	Status  int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

type errorBody struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

func statusKind(status int, message string) error {
	switch {
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusConflict && strings.Contains(message, domain.ErrInsufficientBalance.Error()):
		return domain.ErrInsufficientBalance
	case status == http.StatusConflict:
		return domain.ErrConflict
	case status == http.StatusForbidden:
		return domain.ErrForbidden
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return domain.ErrValidation
	default:
		return domain.ErrUnavailable
	}
}

// retryable reports whether a call may succeed when repeated: transport
// failures and 5xx answers. Business errors are final.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

// baseClient does JSON over HTTP with bounded retries behind a circuit breaker.
// Only failures that retryable accepts count against the breaker.
type baseClient struct {
	service string
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	opts    Options
	log     zerolog.Logger
}

func newBaseClient(service, baseURL string, opts Options, log zerolog.Logger) baseClient {
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 1
	}
	return baseClient{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: opts.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        service,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !retryable(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("service", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		}),
		opts: opts,
		log:  log.With().Str("component", service+"_client").Logger(),
	}
}

func (c *baseClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s request: %w", c.service, err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	err := retry.Do(
		func() error {
			_, err := c.breaker.Execute(func() (interface{}, error) {
				return nil, c.roundTrip(ctx, method, target, payload, out)
			})
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.opts.RetryAttempts),
		retry.Delay(c.opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return retryable(err) && !errors.Is(err, gobreaker.ErrOpenState)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn().Err(err).Uint("attempt", n+1).Str("method", method).Str("path", path).Msg("downstream call failed, retrying")
		}),
	)
	if err == nil {
		return nil
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s %s %s: %w: %v", c.service, method, path, domain.ErrUnavailable, err)
}

func (c *baseClient) roundTrip(ctx context.Context, method, target string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		if eb.Message == "" {
			eb.Message = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Service: c.service, Status: resp.StatusCode, Message: eb.Message, kind: statusKind(resp.StatusCode, eb.Message)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.service, err)
	}
	return nil
}
