package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/types"
	nlog "github.com/yeisme/chunkvault/pkg/log"
)

// APIError 协调器返回的失败响应.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("coordinator returned %d", e.StatusCode)
	}

	return fmt.Sprintf("coordinator returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound 是否为 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// APIClient 协调器 HTTP 客户端.
// 连接错误、5xx 与 429 按指数退避重试，4xx 不重试.
type APIClient struct {
	http    *retryablehttp.Client
	baseURL string
	user    string
	logger  zerolog.Logger
}

// NewAPIClient 按客户端配置创建.
func NewAPIClient(cfg configs.ClientConfig) *APIClient {
	logger := nlog.Component("uploader")

	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	c.RetryWaitMin = cfg.RetryWaitMin
	c.RetryWaitMax = cfg.RetryWaitMax
	c.Backoff = retryablehttp.DefaultBackoff
	c.CheckRetry = retryablehttp.DefaultRetryPolicy
	// 最后一次的响应原样返回，由 decode 解析错误信息
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = leveledLogger{l: logger}
	c.HTTPClient.Timeout = cfg.Timeout

	return &APIClient{
		http:    c,
		baseURL: strings.TrimRight(cfg.ServerURL, "/"),
		user:    cfg.User,
		logger:  logger,
	}
}

// HTTPClient 底层不重试的 *http.Client，用于对象存储 PUT.
func (c *APIClient) HTTPClient() *http.Client {
	return c.http.HTTPClient
}

// Initiate POST /api/v1/uploads/initiate.
func (c *APIClient) Initiate(ctx context.Context, req types.InitiateUploadRequest) (*types.InitiateUploadResponse, error) {
	var out types.InitiateUploadResponse
	if err := c.post(ctx, "/api/v1/uploads/initiate", req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// RecordChunk POST /api/v1/uploads/chunk.
func (c *APIClient) RecordChunk(ctx context.Context, req types.RecordChunkRequest) error {
	return c.post(ctx, "/api/v1/uploads/chunk", req, &types.Response{})
}

// Complete POST /api/v1/uploads/complete.
func (c *APIClient) Complete(ctx context.Context, req types.CompleteUploadRequest) error {
	return c.post(ctx, "/api/v1/uploads/complete", req, &types.Response{})
}

// Abort POST /api/v1/uploads/abort.
func (c *APIClient) Abort(ctx context.Context, req types.AbortUploadRequest) error {
	return c.post(ctx, "/api/v1/uploads/abort", req, &types.Response{})
}

// DownloadURL POST /api/v1/files/download-url.
func (c *APIClient) DownloadURL(ctx context.Context, key string) (string, error) {
	var out types.DownloadURLResponse
	if err := c.post(ctx, "/api/v1/files/download-url", types.DownloadURLRequest{S3Key: key}, &out); err != nil {
		return "", err
	}

	return out.URL, nil
}

// Status GET /api/v1/uploads/:file_id.
func (c *APIClient) Status(ctx context.Context, fileID string) (*types.UploadStatusResponse, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/uploads/"+url.PathEscape(fileID), nil)
	if err != nil {
		return nil, err
	}

	var out types.UploadStatusResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *APIClient) post(ctx context.Context, path string, in, out any) error {
	body, err := sonic.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *APIClient) do(req *retryablehttp.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	if c.user != "" {
		req.Header.Set("X-User", c.user)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("close response body")
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope types.Response
	if len(bytes.TrimSpace(data)) > 0 {
		if err := sonic.Unmarshal(data, &envelope); err != nil && resp.StatusCode < http.StatusBadRequest {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest || !envelope.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// leveledLogger 把 retryablehttp 日志接到 zerolog.
type leveledLogger struct {
	l zerolog.Logger
}

func (z leveledLogger) Error(msg string, kv ...any) { z.l.Error().Fields(kv).Msg(msg) }
func (z leveledLogger) Info(msg string, kv ...any)  { z.l.Info().Fields(kv).Msg(msg) }
func (z leveledLogger) Debug(msg string, kv ...any) { z.l.Debug().Fields(kv).Msg(msg) }
func (z leveledLogger) Warn(msg string, kv ...any)  { z.l.Warn().Fields(kv).Msg(msg) }
