// Package vendors holds the HTTP adapters for the external verification,
// payment and messaging providers.
package vendors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/metrics"
)

// Kind classifies a vendor failure.
type Kind string

const (
	KindAuth             Kind = "auth"
	KindNotFound         Kind = "not_found"
	KindUnsupportedMedia Kind = "unsupported_media"
	KindUpstream         Kind = "upstream"
	KindTimeout          Kind = "timeout"
	KindParse            Kind = "parse"
	KindRejected         Kind = "rejected"
	KindConfig           Kind = "config"
	KindUnavailable      Kind = "unavailable"
)

// Error is returned by every adapter call that did not produce a usable answer.
type Error struct {
	Vendor     string
	Op         string
	Kind       Kind
	HTTPStatus int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Vendor, e.Op, e.Kind)
	if e.HTTPStatus != 0 {
		msg += fmt.Sprintf(" (http %d)", e.HTTPStatus)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a vendor error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ve *Error
	return errors.As(err, &ve) && ve.Kind == kind
}

// kindForStatus maps a non-2xx HTTP status to a failure kind.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnsupportedMediaType:
		return KindUnsupportedMedia
	default:
		return KindUpstream
	}
}

const maxLoggedBody = 512

// caller runs requests for one vendor through a circuit breaker and records
// metrics for every attempt.
type caller struct {
	vendor  string
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

func newCaller(vendor, baseURL string, timeout time.Duration, m *metrics.Metrics) *caller {
	client := resty.New().SetTimeout(timeout)
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        vendor,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "Vendor circuit state changed",
				zap.String("vendor", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &caller{vendor: vendor, http: client, breaker: breaker, metrics: m}
}

// do executes fn and converts transport failures and non-2xx statuses into
// *Error. Only transport errors and 5xx responses count against the breaker.
func (c *caller) do(ctx context.Context, op string, fn func(r *resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	start := time.Now()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := fn(c.http.R().SetContext(ctx))
		if err != nil {
			return nil, c.transportError(op, err)
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, &Error{Vendor: c.vendor, Op: op, Kind: KindUpstream, HTTPStatus: resp.StatusCode()}
		}
		return resp, nil
	})

	var resp *resty.Response
	if out != nil {
		resp = out.(*resty.Response)
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		err = &Error{Vendor: c.vendor, Op: op, Kind: KindUnavailable, Err: err}
	case err == nil && resp.StatusCode() >= http.StatusBadRequest:
		err = &Error{Vendor: c.vendor, Op: op, Kind: kindForStatus(resp.StatusCode()), HTTPStatus: resp.StatusCode()}
	}

	c.observe(ctx, op, resp, err, time.Since(start))
	return resp, err
}

func (c *caller) transportError(op string, err error) *Error {
	kind := KindUpstream
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Vendor: c.vendor, Op: op, Kind: kind, Err: err}
}

// fail builds an error for a response that arrived but could not be used.
func (c *caller) fail(ctx context.Context, op string, kind Kind, resp *resty.Response, err error) *Error {
	ve := &Error{Vendor: c.vendor, Op: op, Kind: kind, Err: err}
	fields := []zap.Field{zap.String("vendor", c.vendor), zap.String("op", op), zap.String("kind", string(kind))}
	if resp != nil {
		ve.HTTPStatus = resp.StatusCode()
		fields = append(fields, zap.String("body", truncate(resp.String(), maxLoggedBody)))
	}
	logger.Warn(ctx, "Vendor response unusable", fields...)
	return ve
}

func (c *caller) observe(ctx context.Context, op string, resp *resty.Response, err error, elapsed time.Duration) {
	outcome := "ok"
	var ve *Error
	if errors.As(err, &ve) {
		outcome = string(ve.Kind)
	}
	c.metrics.ObserveVendor(c.vendor, op, outcome, elapsed)

	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("vendor", c.vendor),
		zap.String("op", op),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	}
	if resp != nil {
		fields = append(fields, zap.String("body", truncate(resp.String(), maxLoggedBody)))
	}
	logger.Warn(ctx, "Vendor call failed", fields...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// testModeRaw is stamped into the raw payload of every simulated response.
func testModeRaw(extra map[string]interface{}) json.RawMessage {
	out := map[string]interface{}{"testMode": true}
	for k, v := range extra {
		out[k] = v
	}
	raw, _ := json.Marshal(out)
	return raw
}
