// Package scoring is the host's only outbound network client. It talks to the
// remote Fuzzy NEWS-2 scoring service and translates every failure into an
// apperr kind. It never retries, caches or coalesces requests.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/platform/apperr"
)

// DefaultTimeout bounds a single round trip.
const DefaultTimeout = 10 * time.Second

// EndpointSource supplies the remote base URL. It is consulted on every call
// so a changed setting applies to the very next request.
type EndpointSource interface {
	RemoteEndpoint() string
}

// Client calls the remote scoring service.
type Client struct {
	http     *resty.Client
	endpoint EndpointSource
	logger   zerolog.Logger
}

// NewClient creates a client that resolves its base URL from endpoint.
func NewClient(endpoint EndpointSource, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger = logger.With().Str("component", "scoring").Logger()

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetLogger(restyLogger{logger}).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:     client,
		endpoint: endpoint,
		logger:   logger,
	}
}

// HealthCheck asks the remote service for its status. Any failure, including
// a non-2xx answer, is ServiceUnreachable.
func (c *Client) HealthCheck(ctx context.Context) (vitals.Health, error) {
	const op = "health check"
	var out vitals.Health

	body, err := c.do(ctx, op, c.http.R(), http.MethodGet, "/api/health", func(int) apperr.Kind {
		return apperr.KindServiceUnreachable
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, apperr.New(apperr.KindServiceUnreachable, op, "unexpected health payload: %v", err)
	}
	return out, nil
}

// Calculate submits vital signs for scoring.
func (c *Client) Calculate(ctx context.Context, sub vitals.Submission) (vitals.Result, error) {
	const op = "calculate"
	var out vitals.Result

	body, err := c.do(ctx, op, c.http.R().SetBody(sub), http.MethodPost, "/api/calculate", clientErrorKind(false))
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return vitals.Result{}, apperr.New(apperr.KindInvalidRequest, op, "malformed assessment result: %v", err)
	}
	if err := out.Validate(); err != nil {
		return vitals.Result{}, apperr.Wrap(apperr.KindInvalidRequest, op, err)
	}
	return out, nil
}

// History returns up to limit past assessments, newest first.
func (c *Client) History(ctx context.Context, patientID string, limit int) ([]vitals.HistoryRecord, error) {
	const op = "get history"

	req := c.http.R().
		SetPathParam("patientId", patientID).
		SetQueryParam("limit", strconv.Itoa(limit))

	body, err := c.do(ctx, op, req, http.MethodGet, "/api/history/{patientId}", clientErrorKind(true))
	if err != nil {
		return nil, err
	}

	var out []vitals.HistoryRecord
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperr.New(apperr.KindInvalidRequest, op, "malformed history: %v", err)
	}
	for i, rec := range out {
		if err := rec.Validate(); err != nil {
			return nil, apperr.New(apperr.KindInvalidRequest, op, "record %d: %v", i, err)
		}
	}
	if out == nil {
		out = []vitals.HistoryRecord{}
	}
	return out, nil
}

// Statistics returns aggregates over the last days days.
func (c *Client) Statistics(ctx context.Context, patientID string, days int) (vitals.Statistics, error) {
	const op = "get statistics"
	var out vitals.Statistics

	req := c.http.R().
		SetPathParam("patientId", patientID).
		SetQueryParam("days", strconv.Itoa(days))

	body, err := c.do(ctx, op, req, http.MethodGet, "/api/statistics/{patientId}", clientErrorKind(true))
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return vitals.Statistics{}, apperr.New(apperr.KindInvalidRequest, op, "malformed statistics: %v", err)
	}
	return out, nil
}

// do performs one round trip and returns the 2xx body. kindFor classifies
// 4xx statuses; transport failures and 5xx are always ServiceUnreachable.
func (c *Client) do(ctx context.Context, op string, req *resty.Request, method, path string, kindFor func(int) apperr.Kind) ([]byte, error) {
	endpoint := strings.TrimRight(c.endpoint.RemoteEndpoint(), "/")
	if endpoint == "" {
		return nil, apperr.New(apperr.KindServiceUnreachable, op, "no remote endpoint configured")
	}

	start := time.Now()
	resp, err := req.SetContext(ctx).Execute(method, endpoint+path)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Error().Err(err).Str("op", op).Str("endpoint", endpoint).Msg("remote call failed")
		}
		return nil, apperr.Wrap(apperr.KindServiceUnreachable, op, err)
	}

	status := resp.StatusCode()
	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("url", resp.Request.URL).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("remote call")

	switch {
	case status >= 200 && status < 300:
		return resp.Body(), nil
	case status >= 400 && status < 500:
		return nil, apperr.New(kindFor(status), op, "remote service returned %d: %s", status, remoteMessage(resp.Body()))
	default:
		return nil, apperr.New(apperr.KindServiceUnreachable, op, "remote service returned %d: %s", status, remoteMessage(resp.Body()))
	}
}

// clientErrorKind maps 4xx statuses. When notFound is set a 404 means the
// patient has no records rather than a rejected request.
func clientErrorKind(notFound bool) func(int) apperr.Kind {
	return func(status int) apperr.Kind {
		if notFound && status == http.StatusNotFound {
			return apperr.KindNotFound
		}
		return apperr.KindInvalidRequest
	}
}

const maxMessageLen = 200

// remoteMessage extracts a human-readable reason from an error body.
func remoteMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			switch v := payload[key].(type) {
			case string:
				return v
			case nil:
			default:
				if b, err := json.Marshal(v); err == nil {
					return truncate(string(b))
				}
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "no details"
	}
	return truncate(msg)
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	return s[:maxMessageLen-3] + "..."
}

// restyLogger routes resty's internal messages through zerolog.
type restyLogger struct {
	l zerolog.Logger
}

func (r restyLogger) Errorf(format string, v ...any) {
	r.l.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (r restyLogger) Warnf(format string, v ...any) {
	r.l.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (r restyLogger) Debugf(format string, v ...any) {
	r.l.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
