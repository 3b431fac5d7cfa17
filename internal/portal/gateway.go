package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Validation 凭证校验结果
type Validation struct {
	Valid bool   `json:"valid"`
	Name  string `json:"name,omitempty"`
}

// LoginResult 重新登录结果
type LoginResult struct {
	SessionID string `json:"phpsessid,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Gateway 凭证校验 / 重新登录服务客户端
type Gateway struct {
	validateURL string
	loginURL    string
	httpClient  *http.Client
}

// NewGateway 创建校验服务客户端
func NewGateway(validateURL, loginURL string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		validateURL: validateURL,
		loginURL:    loginURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient 替换底层 http.Client（测试用）
func (g *Gateway) WithHTTPClient(c *http.Client) *Gateway {
	g.httpClient = c
	return g
}

// Validate POST {cookie} → {valid, name}
func (g *Gateway) Validate(ctx context.Context, cookie string) (Validation, error) {
	var out Validation
	if err := g.postJSON(ctx, g.validateURL, map[string]string{"cookie": cookie}, &out); err != nil {
		return Validation{}, fmt.Errorf("validate cookie: %w", err)
	}
	return out, nil
}

// Login POST {username, password} → {phpsessid?, error?}
func (g *Gateway) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := g.postJSON(ctx, g.loginURL, body, &out); err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	return out, nil
}

func (g *Gateway) postJSON(ctx context.Context, endpoint string, in, out any) error {
	if endpoint == "" {
		return errors.New("endpoint not configured")
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	// 校验服务对无效凭证也可能返回非 2xx，只要响应体可解析即视为有效应答
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("status %d: invalid response: %w", resp.StatusCode, err)
	}
	return nil
}
