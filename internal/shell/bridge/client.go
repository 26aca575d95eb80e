// Package bridge is the UI surface's only network capability: a typed client
// for the host's loopback bridge. Every failure comes back as an *apperr.Error
// rebuilt from the host's envelope, so callers branch on Kind.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/news2/shell/internal/domain/navigation"
	"github.com/news2/shell/internal/domain/patient"
	"github.com/news2/shell/internal/domain/preferences"
	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/platform/apperr"
	"github.com/news2/shell/internal/platform/settings"
)

// DefaultTimeout covers the host's own remote timeout plus its overhead.
const DefaultTimeout = 20 * time.Second

type Client struct {
	http    *resty.Client
	baseURL string
	token   string
	logger  zerolog.Logger
}

// New creates a client for the host at baseURL ("http://127.0.0.1:8765"),
// authenticating every call with token.
func New(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	baseURL = strings.TrimRight(baseURL, "/")
	logger = logger.With().Str("component", "bridge").Logger()

	h := resty.New().
		SetBaseURL(baseURL + "/bridge").
		SetAuthToken(token).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{http: h, baseURL: baseURL, token: token, logger: logger}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks that the host itself is up. It needs no token.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get(c.baseURL + "/healthz")
	if err != nil {
		return apperr.Wrap(apperr.KindServiceUnreachable, "ping host", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return apperr.New(apperr.KindServiceUnreachable, "ping host", "host returned %d", resp.StatusCode())
	}
	return nil
}

func (c *Client) GetEndpoint(ctx context.Context) (string, error) {
	var out preferences.EndpointBody
	err := c.call(ctx, "get endpoint", http.MethodGet, "/settings/endpoint", nil, &out)
	return out.Endpoint, err
}

// SetEndpoint returns the endpoint as stored by the host.
func (c *Client) SetEndpoint(ctx context.Context, endpoint string) (string, error) {
	var out preferences.EndpointBody
	err := c.call(ctx, "set endpoint", http.MethodPut, "/settings/endpoint", preferences.EndpointBody{Endpoint: endpoint}, &out)
	return out.Endpoint, err
}

func (c *Client) GetTheme(ctx context.Context) (settings.Theme, error) {
	var out preferences.ThemeBody
	err := c.call(ctx, "get theme", http.MethodGet, "/settings/theme", nil, &out)
	return out.Theme, err
}

func (c *Client) SetTheme(ctx context.Context, theme settings.Theme) (settings.Theme, error) {
	var out preferences.ThemeBody
	err := c.call(ctx, "set theme", http.MethodPut, "/settings/theme", preferences.ThemeBody{Theme: theme}, &out)
	return out.Theme, err
}

func (c *Client) GetWindow(ctx context.Context) (settings.Geometry, error) {
	var out settings.Geometry
	err := c.call(ctx, "get window", http.MethodGet, "/settings/window", nil, &out)
	return out, err
}

func (c *Client) SetWindow(ctx context.Context, g settings.Geometry) (settings.Geometry, error) {
	var out settings.Geometry
	err := c.call(ctx, "set window", http.MethodPut, "/settings/window", g, &out)
	return out, err
}

func (c *Client) RecentPatients(ctx context.Context) ([]string, error) {
	var out patient.RecentResponse
	err := c.call(ctx, "get recent patients", http.MethodGet, "/recent-patients", nil, &out)
	return out.Patients, err
}

// AddRecent touches id and returns the updated list.
func (c *Client) AddRecent(ctx context.Context, id string) ([]string, error) {
	var out patient.RecentResponse
	body := map[string]string{"patient_id": id}
	err := c.call(ctx, "add recent patient", http.MethodPost, "/recent-patients", body, &out)
	return out.Patients, err
}

func (c *Client) Health(ctx context.Context) (vitals.Health, error) {
	var out vitals.Health
	err := c.call(ctx, "health check", http.MethodGet, "/api/health", nil, &out)
	return out, err
}

func (c *Client) Calculate(ctx context.Context, sub vitals.Submission) (vitals.Result, error) {
	var out vitals.Result
	err := c.call(ctx, "calculate", http.MethodPost, "/api/calculate", sub, &out)
	return out, err
}

func (c *Client) History(ctx context.Context, patientID string, limit int) ([]vitals.HistoryRecord, error) {
	var out []vitals.HistoryRecord
	req := c.http.R().
		SetPathParam("patientId", patientID).
		SetQueryParam("limit", strconv.Itoa(limit))
	if err := c.exec(ctx, "get history", req, http.MethodGet, "/api/history/{patientId}", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []vitals.HistoryRecord{}
	}
	return out, nil
}

func (c *Client) Statistics(ctx context.Context, patientID string, days int) (vitals.Statistics, error) {
	var out vitals.Statistics
	req := c.http.R().
		SetPathParam("patientId", patientID).
		SetQueryParam("days", strconv.Itoa(days))
	err := c.exec(ctx, "get statistics", req, http.MethodGet, "/api/statistics/{patientId}", nil, &out)
	return out, err
}

// Navigate publishes a host menu event to every connected UI.
func (c *Client) Navigate(ctx context.Context, ev navigation.MenuEvent) (navigation.Response, error) {
	var out navigation.Response
	err := c.call(ctx, "navigation", http.MethodPost, "/navigation", navigation.Request{Event: string(ev)}, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	return c.exec(ctx, op, c.http.R(), method, path, body, out)
}

func (c *Client) exec(ctx context.Context, op string, req *resty.Request, method, path string, body, out any) error {
	req.SetContext(ctx).SetError(&apperr.Envelope{})
	if out != nil {
		req.SetResult(out)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn().Err(err).Str("op", op).Msg("bridge call failed")
		}
		return apperr.Wrap(apperr.KindServiceUnreachable, op, fmt.Errorf("host unreachable: %w", err))
	}
	if !resp.IsError() {
		return nil
	}
	return decodeError(op, resp)
}

// decodeError rebuilds the host's structured error. Responses that carry no
// envelope (auth, routing) are classified by status alone.
func decodeError(op string, resp *resty.Response) error {
	if env, ok := resp.Error().(*apperr.Envelope); ok && env.Error.Kind != "" {
		return apperr.FromBody(env.Error)
	}
	status := resp.StatusCode()
	switch status {
	case http.StatusUnauthorized:
		return apperr.New(apperr.KindInternal, op, "host rejected the session token")
	case http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, op, "host returned 404")
	case http.StatusGatewayTimeout:
		return apperr.New(apperr.KindServiceUnreachable, op, "host timed out waiting for the remote service")
	}
	return apperr.New(apperr.KindInternal, op, "host returned %d", status)
}
