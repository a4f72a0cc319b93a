package identity

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

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/emoji-maze-quest/telemetry"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultFetchTries    = 3
	defaultRetryInterval = 200 * time.Millisecond
	maxResponseBytes     = 1 << 20
)

// Client talks to the remote identity service. Every returned error is an
// *Error carrying a Kind.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	fetchTries    uint
	retryInterval time.Duration
	tracer        trace.Tracer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets how often FetchCategories tries and the first backoff interval
func WithRetry(tries uint, initial time.Duration) Option {
	return func(c *Client) {
		if tries > 0 {
			c.fetchTries = tries
		}
		c.retryInterval = initial
	}
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: defaultTimeout},
		fetchTries:    defaultFetchTries,
		retryInterval: defaultRetryInterval,
		tracer:        telemetry.Tracer("identity"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCategories loads the emoji categories used to build codes. Transport
// failures and 5xx replies are retried with exponential backoff.
func (c *Client) FetchCategories(ctx context.Context) (*Categories, error) {
	const op = "fetch_categories"
	ctx, span := c.start(ctx, op)
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	attempt := 0
	cats, err := backoff.Retry(ctx, func() (*Categories, error) {
		attempt++
		status, body, err := c.do(ctx, http.MethodGet, "/api/categories", nil)
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Str("op", op).Msg("Identity request failed")
			return nil, newError(KindServiceUnavailable, op, 0, err)
		}
		if status >= 500 {
			return nil, newError(KindServiceUnavailable, op, status, errorMessage(body))
		}
		if status != http.StatusOK {
			return nil, backoff.Permanent(newError(KindServiceUnavailable, op, status, errorMessage(body)))
		}
		var out Categories
		if err := json.Unmarshal(body, &out); err != nil || len(out.Categories) != CodeLength {
			if err == nil {
				err = fmt.Errorf("expected %d categories, got %d", CodeLength, len(out.Categories))
			}
			return nil, backoff.Permanent(newError(KindServiceUnavailable, op, status, err))
		}
		return &out, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.fetchTries))

	span.SetAttributes(attribute.Int("identity.attempts", attempt))
	if err != nil {
		return nil, c.fail(span, asError(err, KindServiceUnavailable, op))
	}
	return cats, nil
}

// CreateIdentity asks the service to mint a fresh code. The service resolves
// collisions itself, so the client never retries.
func (c *Client) CreateIdentity(ctx context.Context) (*CreatedIdentity, error) {
	const op = "create"
	ctx, span := c.start(ctx, op)
	defer span.End()

	status, body, err := c.do(ctx, http.MethodPost, "/api/players", struct{}{})
	if err != nil {
		return nil, c.fail(span, newError(KindCreationFailure, op, 0, err))
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, c.fail(span, newError(KindCreationFailure, op, status, errorMessage(body)))
	}
	var out CreatedIdentity
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, c.fail(span, newError(KindCreationFailure, op, status, err))
	}
	if _, err := ParseCode(out.Code); err != nil {
		return nil, c.fail(span, newError(KindCreationFailure, op, status, err))
	}
	return &out, nil
}

// Validate checks that a code exists and returns the player. A malformed code
// fails with KindValidation without contacting the service.
func (c *Client) Validate(ctx context.Context, code []string) (*Player, error) {
	const op = "validate"
	ctx, span := c.start(ctx, op)
	defer span.End()

	code, err := ParseCode(code)
	if err != nil {
		return nil, c.fail(span, newError(KindValidation, op, 0, err))
	}
	span.SetAttributes(attribute.String("identity.code_key", CodeKey(code)))

	status, body, err := c.do(ctx, http.MethodPost, "/api/players/validate", validateRequest{Code: code})
	if err != nil {
		return nil, c.fail(span, newError(KindServiceUnavailable, op, 0, err))
	}
	switch {
	case status == http.StatusOK:
	case status == http.StatusBadRequest:
		return nil, c.fail(span, newError(KindValidation, op, status, errorMessage(body)))
	case status == http.StatusNotFound:
		return nil, c.fail(span, newError(KindNotFound, op, status, errorMessage(body)))
	default:
		return nil, c.fail(span, newError(KindServiceUnavailable, op, status, errorMessage(body)))
	}

	var out Player
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, c.fail(span, newError(KindServiceUnavailable, op, status, err))
	}
	if out.Progress == nil {
		out.Progress = Progress{}
	}
	return &out, nil
}

// SyncProgress uploads the player's progress. Any failure is KindSyncFailure;
// callers treat syncs as fire-and-forget.
func (c *Client) SyncProgress(ctx context.Context, code []string, progress Progress) (*SyncResult, error) {
	const op = "sync"
	ctx, span := c.start(ctx, op)
	defer span.End()

	code, err := ParseCode(code)
	if err != nil {
		return nil, c.fail(span, newError(KindSyncFailure, op, 0, err))
	}
	path := "/api/players/" + url.PathEscape(CodeKey(code)) + "/progress"

	status, body, err := c.do(ctx, http.MethodPost, path, progressRequest{Progress: progress})
	if err != nil {
		return nil, c.fail(span, newError(KindSyncFailure, op, 0, err))
	}
	if status != http.StatusOK {
		return nil, c.fail(span, newError(KindSyncFailure, op, status, errorMessage(body)))
	}
	var out SyncResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, c.fail(span, newError(KindSyncFailure, op, status, err))
	}
	return &out, nil
}

// do performs one request and returns the status and body. An error means no
// usable response was received.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "identity."+op)
}

func (c *Client) fail(span trace.Span, e *Error) *Error {
	span.SetAttributes(attribute.String("identity.kind", string(e.Kind)))
	if e.Status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", e.Status))
	}
	span.RecordError(e)
	span.SetStatus(codes.Error, string(e.Kind))
	return e
}

// asError makes sure err is classified, falling back to kind for errors the
// retry loop produced itself (context expiry)
func asError(err error, kind Kind, op string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(kind, op, 0, err)
}

func errorMessage(body []byte) error {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return errors.New(er.Error)
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "empty response"
	}
	return errors.New(msg)
}
