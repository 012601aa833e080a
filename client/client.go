// Package client is a typed HTTP client for the staff side of the staffing API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/yeremiapane/locum-staffing/models"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetryDelay = time.Second
	DefaultMaxRetries = 2

	idempotencyKeyHeader = "Idempotency-Key"
)

// ErrUnauthorized is returned after a 401; the stored token has been cleared.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	// RetryDelay is the first backoff after a 429; each retry doubles it.
	RetryDelay time.Duration
	MaxRetries int

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.RetryDelay = d }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid base url: %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		RetryDelay: DefaultRetryDelay,
		MaxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) backoff(attempt int) time.Duration {
	return c.RetryDelay * time.Duration(1<<attempt)
}

type requestOptions struct {
	query          url.Values
	body           any
	idempotencyKey string
}

// do sends a request and decodes the data field of the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, opts requestOptions, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if opts.query != nil {
		u.RawQuery = opts.query.Encode()
	}

	var payload []byte
	if opts.body != nil {
		b, err := json.Marshal(opts.body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		payload = b
	}

	for attempt := 0; ; attempt++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
		if err != nil {
			return errors.Wrap(err, "build request")
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if opts.idempotencyKey != "" {
			req.Header.Set(idempotencyKeyHeader, opts.idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.Wrapf(err, "%s %s", method, path)
		}
		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return errors.Wrap(err, "read response")
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.MaxRetries {
			select {
			case <-time.After(c.backoff(attempt)):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var env envelope
		decodeErr := json.Unmarshal(respBody, &env)

		if resp.StatusCode == http.StatusUnauthorized {
			c.SetToken("")
			return errors.Wrap(ErrUnauthorized, env.Message)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg := env.Message
			if decodeErr != nil || msg == "" {
				msg = strings.TrimSpace(string(respBody))
			}
			return &APIError{StatusCode: resp.StatusCode, Message: msg}
		}
		if decodeErr != nil {
			return errors.Wrap(decodeErr, "decode response")
		}
		if out == nil || len(env.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, "decode response data")
		}
		return nil
	}
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Login authenticates and keeps the token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", requestOptions{
		body: map[string]string{"email": email, "password": password},
	}, &res)
	if err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type AssignmentPage struct {
	Items      []models.Assignment `json:"data"`
	Pagination Pagination          `json:"pagination"`
}

// Assignments lists the caller's assignments; status may be empty.
func (c *Client) Assignments(ctx context.Context, status string, page, limit int) (*AssignmentPage, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var res AssignmentPage
	if err := c.do(ctx, http.MethodGet, "/api/v1/staff/assignments", requestOptions{query: q}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ActiveAssignments(ctx context.Context) ([]models.Assignment, error) {
	var res []models.Assignment
	if err := c.do(ctx, http.MethodGet, "/api/v1/staff/assignments/active", requestOptions{}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Respond accepts or rejects an offer. Retries reuse one idempotency key.
func (c *Client) Respond(ctx context.Context, assignmentID uint, action, rejectionReason string) (*models.Assignment, error) {
	var res models.Assignment
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/staff/assignments/%d/respond", assignmentID), requestOptions{
		body:           map[string]string{"action": action, "rejectionReason": rejectionReason},
		idempotencyKey: uuid.NewString(),
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type ShiftInput struct {
	AssignmentID       uint     `json:"jobAssignmentId"`
	Location           Location `json:"location"`
	Notes              string   `json:"notes,omitempty"`
	CompleteAssignment bool     `json:"completeAssignment,omitempty"`
}

func (c *Client) CheckIn(ctx context.Context, in ShiftInput) (*models.CheckIn, error) {
	var res models.CheckIn
	err := c.do(ctx, http.MethodPost, "/api/v1/staff/check-in", requestOptions{
		body:           in,
		idempotencyKey: uuid.NewString(),
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CheckOut(ctx context.Context, in ShiftInput) (*models.CheckIn, error) {
	var res models.CheckIn
	err := c.do(ctx, http.MethodPost, "/api/v1/staff/check-out", requestOptions{
		body:           in,
		idempotencyKey: uuid.NewString(),
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type CheckInStatus struct {
	IsCheckedIn  bool       `json:"isCheckedIn"`
	CheckInID    *uint      `json:"checkInId,omitempty"`
	CheckInTime  *time.Time `json:"checkInTime,omitempty"`
	AssignmentID uint       `json:"jobAssignmentId"`
}

func (c *Client) CheckInStatus(ctx context.Context, assignmentID uint) (*CheckInStatus, error) {
	var res CheckInStatus
	path := fmt.Sprintf("/api/v1/staff/assignments/%d/check-in-status", assignmentID)
	if err := c.do(ctx, http.MethodGet, path, requestOptions{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
