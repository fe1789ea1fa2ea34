// Package client provides an HTTP client for the memfs API with retries and
// an event stream subscriber.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/models"
	"github.com/fruitsalade/memfs/pkg/protocol"
	"github.com/fruitsalade/memfs/pkg/retry"
)

// Client talks to a memfs server.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
	log         *zap.Logger

	mu       sync.RWMutex
	online   bool
	lastPing time.Time
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	Logger      *zap.Logger
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retryConfig: cfg.RetryConfig,
		log:         cfg.Logger,
		online:      true,
	}
}

// APIError is a non-2xx response from the server. It unwraps to the
// namespace error kind named by Code, so errors.Is works across the wire.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "not_found":
		return entity.ErrNotFound
	case "already_exists":
		return entity.ErrAlreadyExists
	case "invalid_type":
		return entity.ErrInvalidType
	case "not_a_container":
		return entity.ErrNotAContainer
	case "invalid_containment":
		return entity.ErrInvalidContainment
	case "invalid_path":
		return entity.ErrInvalidPath
	}
	return nil
}

// ErrOffline is returned by Ping when the server cannot be reached.
var ErrOffline = errors.New("server is offline")

// IsOnline reports whether the last request reached the server.
func (c *Client) IsOnline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

func (c *Client) setOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.online != online {
		if online {
			c.log.Info("server is back online", zap.String("url", c.baseURL))
		} else {
			c.log.Warn("server is offline", zap.String("url", c.baseURL))
		}
	}
	c.online = online
	c.lastPing = time.Now()
}

// Ping checks that the server is reachable and healthy.
func (c *Client) Ping(ctx context.Context) (*protocol.HealthResponse, error) {
	var health protocol.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, true, &health); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrOffline, err)
	}
	return &health, nil
}

// do performs one API call and decodes the response into out. Only
// idempotent calls are retried.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, idempotent bool, out any) error {
	var payload []byte
	contentType := ""
	switch v := body.(type) {
	case nil:
	case string:
		payload = []byte(v)
		contentType = "text/plain; charset=utf-8"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload = data
		contentType = "application/json"
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	cfg := c.retryConfig
	if !idempotent {
		cfg.MaxAttempts = 1
	}

	return retry.Do(ctx, cfg, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.setOnline(false)
			return retry.Retryable(err)
		}
		defer resp.Body.Close()
		c.setOnline(true)

		if resp.StatusCode >= 300 {
			apiErr := decodeError(resp)
			if resp.StatusCode >= 500 {
				return retry.Retryable(apiErr)
			}
			return apiErr
		}

		switch dst := out.(type) {
		case nil:
			return nil
		case *string:
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return retry.Retryable(err)
			}
			*dst = string(data)
			return nil
		default:
			return json.NewDecoder(resp.Body).Decode(out)
		}
	})
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var er protocol.ErrorResponse
	if json.NewDecoder(resp.Body).Decode(&er) == nil && er.Error != "" {
		apiErr.Message = er.Error
		apiErr.Code = er.Details
	}
	return apiErr
}

func pathQuery(path string) url.Values {
	return url.Values{"path": {path}}
}

// Create creates an entity. parent is ignored for drives.
func (c *Client) Create(ctx context.Context, kind entity.Kind, name, parent string) (*protocol.MutationResponse, error) {
	var resp protocol.MutationResponse
	req := protocol.CreateRequest{Kind: kind.String(), Name: name, Parent: parent}
	if err := c.do(ctx, http.MethodPost, "/api/v1/entities", nil, req, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete removes the entity at path and its subtree.
func (c *Client) Delete(ctx context.Context, path string) (*protocol.MutationResponse, error) {
	var resp protocol.MutationResponse
	if err := c.do(ctx, http.MethodDelete, "/api/v1/entities", pathQuery(path), nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Move moves the entity at src into the container at dst.
func (c *Client) Move(ctx context.Context, src, dst string) (*protocol.MutationResponse, error) {
	return c.transfer(ctx, "/api/v1/move", src, dst)
}

// Copy copies the entity at src into the container at dst.
func (c *Client) Copy(ctx context.Context, src, dst string) (*protocol.MutationResponse, error) {
	return c.transfer(ctx, "/api/v1/copy", src, dst)
}

func (c *Client) transfer(ctx context.Context, endpoint, src, dst string) (*protocol.MutationResponse, error) {
	var resp protocol.MutationResponse
	req := protocol.TransferRequest{Source: src, Destination: dst}
	if err := c.do(ctx, http.MethodPost, endpoint, nil, req, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Rename renames the entity at path.
func (c *Client) Rename(ctx context.Context, path, name string) (*protocol.MutationResponse, error) {
	var resp protocol.MutationResponse
	req := protocol.RenameRequest{Path: path, Name: name}
	if err := c.do(ctx, http.MethodPost, "/api/v1/rename", nil, req, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WriteFile replaces the content of the text file at path.
func (c *Client) WriteFile(ctx context.Context, path, content string) (*protocol.MutationResponse, error) {
	var resp protocol.MutationResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/content", pathQuery(path), content, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReadFile returns the content of the text file at path.
func (c *Client) ReadFile(ctx context.Context, path string) (string, error) {
	var content string
	if err := c.do(ctx, http.MethodGet, "/api/v1/content", pathQuery(path), nil, true, &content); err != nil {
		return "", err
	}
	return content, nil
}

// Stat returns the metadata of the entity at path.
func (c *Client) Stat(ctx context.Context, path string) (*models.EntityNode, error) {
	var info models.EntityNode
	if err := c.do(ctx, http.MethodGet, "/api/v1/stat", pathQuery(path), nil, true, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// List returns the children of the container at path.
func (c *Client) List(ctx context.Context, path string) ([]*models.EntityNode, error) {
	var resp protocol.ListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/list", pathQuery(path), nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Children, nil
}

// Search returns the paths of every entity named name.
func (c *Client) Search(ctx context.Context, name string) ([]string, error) {
	var resp protocol.SearchResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/search", url.Values{"name": {name}}, nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Paths, nil
}

// Tree returns every drive with its subtree.
func (c *Client) Tree(ctx context.Context) ([]*models.EntityNode, error) {
	var resp protocol.TreeResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/tree", nil, nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Drives, nil
}

// SaveSnapshot asks the server to save a snapshot to its store.
func (c *Client) SaveSnapshot(ctx context.Context) (*protocol.SnapshotResponse, error) {
	return c.snapshot(ctx, "/api/v1/snapshot/save")
}

// LoadSnapshot asks the server to replace its namespace with the stored
// snapshot.
func (c *Client) LoadSnapshot(ctx context.Context) (*protocol.SnapshotResponse, error) {
	return c.snapshot(ctx, "/api/v1/snapshot/load")
}

func (c *Client) snapshot(ctx context.Context, endpoint string) (*protocol.SnapshotResponse, error) {
	var resp protocol.SnapshotResponse
	if err := c.do(ctx, http.MethodPost, endpoint, nil, nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
