package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/meshsync/pkg/api"
)

// Client представляет HTTP транспорт между узлами.
// Каждый вызов несет deadline через контекст; transient сбои ретраятся
// с экспоненциальным backoff внутри окна вызова.
type Client struct {
	httpClient  *http.Client
	backoffBase time.Duration
	maxRetries  uint64
}

// NewClient создает транспортный клиент.
func NewClient(timeout time.Duration, maxRetries uint64, backoffBase time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
	}
}

// Probe выполняет активную проверку узла и возвращает латентность.
// Используется монитором здоровья как registry.ProbeFunc.
func (c *Client) Probe(ctx context.Context, addr string) (time.Duration, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/healthz", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("probe returned status %d", resp.StatusCode)
	}

	return time.Since(start), nil
}

// Dispatch доставляет задачу на исполнительный узел.
// Сетевые сбои ретраятся с backoff; ответ узла возвращается как есть,
// его разбор (permanent или transient) - дело вызывающей стороны.
func (c *Client) Dispatch(ctx context.Context, addr string, req api.DispatchRequest) (*api.DispatchResponse, error) {
	var resp api.DispatchResponse

	b := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoffBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.doRequest(ctx, http.MethodPost, addr+"/api/v1/execute", "", req, &resp); err != nil {
			// Сетевая ошибка или 5xx - transient
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch failed: %w", err)
	}

	return &resp, nil
}

// RegisterNode регистрирует узел на координаторе.
func (c *Client) RegisterNode(ctx context.Context, baseURL string, req api.RegisterNodeRequest) (*api.RegisterNodeResponse, error) {
	var resp api.RegisterNodeResponse
	if err := c.doRequest(ctx, http.MethodPost, baseURL+"/api/v1/nodes/register", "", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// SendHeartbeat отправляет heartbeat координатору.
func (c *Client) SendHeartbeat(ctx context.Context, baseURL, token string, req api.HeartbeatRequest) error {
	if err := c.doRequest(ctx, http.MethodPost, baseURL+"/api/v1/nodes/heartbeat", token, req, nil); err != nil {
		return fmt.Errorf("heartbeat request failed: %w", err)
	}
	return nil
}

// EnqueueOp передает оффлайн-операцию в журнал координатора.
func (c *Client) EnqueueOp(ctx context.Context, baseURL, token string, req api.EnqueueOpRequest) (*api.EnqueueOpResponse, error) {
	var resp api.EnqueueOpResponse
	if err := c.doRequest(ctx, http.MethodPost, baseURL+"/api/v1/ops", token, req, &resp); err != nil {
		return nil, fmt.Errorf("enqueue request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос с JSON телом и разбирает JSON ответ.
func (c *Client) doRequest(ctx context.Context, method, url, token string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("http %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
