// Package launchdarkly talks to the LaunchDarkly flag management REST API.
package launchdarkly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
)

// Config carries the management API coordinates.
type Config struct {
	APIURL         string
	APIToken       string
	ProjectKey     string
	EnvironmentKey string
	Timeout        time.Duration
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("launchdarkly: status %d: %s", e.Status, e.Message)
}

// Client manages flags for one project.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIURL) == "" {
		return nil, errors.New("launchdarkly api url is required")
	}
	if strings.TrimSpace(cfg.ProjectKey) == "" {
		return nil, errors.New("launchdarkly project key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type variation struct {
	Value any `json:"value"`
}

type createFlagRequest struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Kind        string      `json:"kind"`
	Variations  []variation `json:"variations"`
	Temporary   bool        `json:"temporary"`
}

type patchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// CreateBooleanFlag creates a true/false flag. An existing flag is left as is.
func (c *Client) CreateBooleanFlag(ctx context.Context, key, name, description string) error {
	return c.createFlag(ctx, createFlagRequest{
		Key:         key,
		Name:        name,
		Description: description,
		Kind:        "boolean",
		Variations:  []variation{{Value: true}, {Value: false}},
		Temporary:   true,
	})
}

// CreateStringFlag creates a multivariate flag with one variation per value.
func (c *Client) CreateStringFlag(ctx context.Context, key, name, description string, values []string) error {
	if len(values) == 0 {
		return errors.New("string flag needs at least one variation")
	}
	variations := make([]variation, 0, len(values))
	for _, v := range values {
		variations = append(variations, variation{Value: v})
	}
	return c.createFlag(ctx, createFlagRequest{
		Key:         key,
		Name:        name,
		Description: description,
		Kind:        "multivariate",
		Variations:  variations,
		Temporary:   true,
	})
}

func (c *Client) createFlag(ctx context.Context, body createFlagRequest) error {
	path, err := c.flagsPath()
	if err != nil {
		return err
	}
	err = c.do(ctx, http.MethodPost, path, "application/json", body)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		c.logger.LogAttrs(ctx, slog.LevelInfo, "flag already exists", slog.String("flag.key", body.Key))
		return nil
	}
	if err != nil {
		return err
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "flag created", slog.String("flag.key", body.Key), slog.String("flag.kind", body.Kind))
	return nil
}

// DeleteFlag removes a flag. A missing flag is not an error.
func (c *Client) DeleteFlag(ctx context.Context, key string) error {
	path, err := c.flagPath(key)
	if err != nil {
		return err
	}
	err = c.do(ctx, http.MethodDelete, path, "", nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		c.logger.LogAttrs(ctx, slog.LevelInfo, "flag already deleted", slog.String("flag.key", key))
		return nil
	}
	if err != nil {
		return err
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "flag deleted", slog.String("flag.key", key))
	return nil
}

// ArchiveFlag marks a flag archived with a JSON patch.
func (c *Client) ArchiveFlag(ctx context.Context, key string) error {
	path, err := c.flagPath(key)
	if err != nil {
		return err
	}
	if env := strings.TrimSpace(c.cfg.EnvironmentKey); env != "" {
		path += "?env=" + env
	}
	patch := []patchOperation{{Op: "replace", Path: "/archived", Value: true}}
	if err := c.do(ctx, http.MethodPatch, path, "application/json-patch+json", patch); err != nil {
		return err
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "flag archived", slog.String("flag.key", key))
	return nil
}

func (c *Client) flagsPath() (string, error) {
	project, err := runtime.StyleParamWithLocation("simple", false, "projectKey", runtime.ParamLocationPath, c.cfg.ProjectKey)
	if err != nil {
		return "", err
	}
	return "/flags/" + project, nil
}

func (c *Client) flagPath(key string) (string, error) {
	base, err := c.flagsPath()
	if err != nil {
		return "", err
	}
	flag, err := runtime.StyleParamWithLocation("simple", false, "flagKey", runtime.ParamLocationPath, key)
	if err != nil {
		return "", err
	}
	return base + "/" + flag, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", c.cfg.APIToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("launchdarkly %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return &APIError{Status: resp.StatusCode, Message: readMessage(resp.Body)}
}

func readMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}
