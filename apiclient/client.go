// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/rollcall/models"
	"github.com/danielhkuo/rollcall/session"
)

// ErrUnauthorized matches any error caused by a 401 from a non-login call.
// By the time it is returned the session has been cleared.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// TransportError is a failure to get any answer from the backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// File is a file part of a multipart request.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Client is the single configured HTTP client of the console.
type Client struct {
	baseURL string
	http    *http.Client
	store   session.Store

	mu    sync.RWMutex
	hooks []func()
}

type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUnauthorized registers fn to run after a 401 has cleared the session.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Session exposes the store the client reads credentials from.
func (c *Client) Session() session.Store {
	return c.store
}

// Do sends a JSON request. body and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, out, true)
}

// DoMultipart sends fields and an optional file as multipart/form-data.
func (c *Client) DoMultipart(ctx context.Context, method, path string, fields map[string]string, file *File, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", multipart.FileContentDisposition(file.Field, file.Name))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := mw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return fmt.Errorf("write file part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.send(req, out, true)
}

// Login exchanges credentials for a token and stores the session.
// A 401 here is an authentication failure and is returned as *APIError
// without clearing anything.
func (c *Client) Login(ctx context.Context, email, password string) (models.LoginData, error) {
	raw, err := json.Marshal(models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return models.LoginData{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", bytes.NewReader(raw))
	if err != nil {
		return models.LoginData{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp models.LoginResponse
	if err := c.send(req, &resp, false); err != nil {
		return models.LoginData{}, err
	}
	if resp.Data.AccessToken == "" {
		return models.LoginData{}, &APIError{Status: http.StatusBadGateway, Message: "Login response carried no access token"}
	}

	if err := c.store.Set(session.Session{Token: resp.Data.AccessToken, Admin: resp.Data.Admin}); err != nil {
		return models.LoginData{}, fmt.Errorf("store session: %w", err)
	}

	slog.Info("signed in", "admin_id", resp.Data.Admin.ID)
	return resp.Data, nil
}

// Logout forgets the stored credential.
func (c *Client) Logout() error {
	return c.store.Clear()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if s, err := c.store.Get(); err == nil {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any, intercept bool) error {
	op := req.Method + " " + req.URL.Path

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
		if intercept && resp.StatusCode == http.StatusUnauthorized {
			c.unauthorized(op)
			return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) unauthorized(op string) {
	if err := c.store.Clear(); err != nil {
		slog.Error("failed to clear session", "error", err)
	}
	slog.Info("session cleared after authorization failure", "request", op)

	c.mu.RLock()
	hooks := append([]func(){}, c.hooks...)
	c.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}

func errorMessage(raw []byte) string {
	var body models.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return ""
}

// Message returns the backend's message for err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Retryable reports whether a read that failed with err may be tried again.
// Only transport failures and 5xx answers qualify.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrUnauthorized) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}

	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
