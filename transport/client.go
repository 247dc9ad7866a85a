// Etebase - Encrypt Everything
// Copyright (C) 2025 EteSync
//
// This file is part of Etebase.
//
// Etebase is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Etebase is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Etebase. If not, see <https://www.gnu.org/licenses/>.

// Package transport speaks the server's msgpack-over-HTTP protocol and maps
// HTTP failures onto the errs taxonomy. It knows nothing about keys or
// plaintext; everything it carries is already encrypted.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/etesync/etebase-go/codec"
	"github.com/etesync/etebase-go/errs"
	"github.com/etesync/etebase-go/internal/logger"
	"github.com/etesync/etebase-go/wire"
)

const (
	contentType    = "application/msgpack"
	defaultTimeout = 30 * time.Second
	apiPrefix      = "/api/v1"
)

// Client is the msgpack HTTP client for one server.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
	log       logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (timeouts, TLS config).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger replaces the transport logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for serverURL.
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &errs.ProgrammingError{Detail: "server url must be http or https"}
	}
	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: "etebase-go",
		log:       logger.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken installs the bearer auth token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

// Host returns the server host, included in signed login payloads.
func (c *Client) Host() string {
	return c.baseURL.Host
}

// ServerURL returns the configured server URL.
func (c *Client) ServerURL() string {
	return c.baseURL.String()
}

// Get performs a GET. out may be nil for empty responses.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post performs a POST with an optional msgpack body.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, query, body, out)
}

// Put performs a PUT with an optional msgpack body.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

// Patch performs a PATCH with a msgpack body.
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// GetBytes performs a GET and returns the raw response body. Chunk transfer
// moves ciphertext bytes, not msgpack.
func (c *Client) GetBytes(ctx context.Context, path string) ([]byte, error) {
	return c.doRaw(ctx, http.MethodGet, path, nil)
}

// PutBytes performs a PUT with a raw body.
func (c *Client) PutBytes(ctx context.Context, path string, body []byte) error {
	_, err := c.doRaw(ctx, http.MethodPut, path, body)
	return err
}

func (c *Client) doRaw(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + apiPrefix + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &errs.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.NetworkError{Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, mapStatus(resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + apiPrefix + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := codec.MsgpackEncode(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", contentType)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	reqID := uuid.NewString()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			logger.String("request_id", reqID),
			logger.String("method", method),
			logger.String("path", path),
			logger.Err(err))
		return &errs.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		logger.String("request_id", reqID),
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.NetworkError{Err: err}
	}

	if resp.StatusCode >= 300 {
		return mapStatus(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		return codec.MsgpackDecode(data, out)
	}
	return nil
}

// mapStatus converts an HTTP failure into the matching typed error.
func mapStatus(status int, body []byte) error {
	var detail wire.ErrorBody
	_ = codec.MsgpackDecode(body, &detail)

	switch status {
	case http.StatusUnauthorized:
		return &errs.UnauthorizedError{Code: detail.Code, Detail: detail.Detail}
	case http.StatusForbidden:
		return &errs.PermissionDeniedError{Detail: detail.Detail}
	case http.StatusNotFound:
		return &errs.NotFoundError{Detail: detail.Detail}
	case http.StatusConflict:
		return &errs.ConflictError{Detail: detail.Detail}
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &errs.TemporaryServerError{Status: status, Detail: detail.Detail}
	}
	if status >= 500 {
		return &errs.ServerError{Status: status, Detail: detail.Detail}
	}
	return &errs.ProgrammingError{Detail: fmt.Sprintf("request rejected (%d): %s", status, detail.Detail)}
}
