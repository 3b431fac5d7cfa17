// Package portal 旧案件管理门户访问：会话 cookie 代理执行、页面结构提取与凭证校验服务
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dkmverify/internal/model"
)

// maxBodySize 门户响应体读取上限
const maxBodySize = 8 << 20

// Client 门户能力接口（每个门户版本一个实现）
type Client interface {
	// Listing 查询监控列表中案件的最新记录
	Listing(ctx context.Context, cookie, key string) (ListingEntry, error)
	// Detail 读取案件详情页
	Detail(ctx context.Context, cookie, path string) (DetailPage, error)
	// Submit 按路由参数提交审核结果
	Submit(ctx context.Context, cookie string, params model.RoutingParams) error
	// Identity 读取当前 cookie 对应的登录名
	Identity(ctx context.Context, cookie string) (string, error)
}

// StatusError 门户返回非 2xx 状态
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("portal %s: status %d: %s", e.Path, e.Status, e.Body)
}

// Response 代理执行结果（状态码原样返回）
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK 状态码是否为 2xx
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Executor 以会话 cookie 执行门户路径
type Executor struct {
	baseURL    string
	httpClient *http.Client
}

// NewExecutor 创建执行器
func NewExecutor(baseURL string, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient 替换底层 http.Client（测试用）
func (e *Executor) WithHTTPClient(c *http.Client) *Executor {
	e.httpClient = c
	return e
}

// Execute 执行 GET {base}{path}，携带 PHPSESSID cookie
func (e *Executor) Execute(ctx context.Context, path, cookie string) (Response, error) {
	if cookie == "" {
		return Response{}, errors.New("portal: PHPSESSID cookie required")
	}
	if e.baseURL == "" {
		return Response{}, errors.New("portal: base url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cookie", "PHPSESSID="+cookie)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("portal request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Response{}, fmt.Errorf("failed to read portal response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html"
	}
	return Response{Status: resp.StatusCode, ContentType: contentType, Body: body}, nil
}

// V1Options 门户 v1 路径配置
type V1Options struct {
	IndexPath   string
	ListingPath string
	KeyParam    string
	SubmitPath  string
}

// V1 门户 v1 实现（HTML 页面结构见 extract.go）
type V1 struct {
	exec *Executor
	opts V1Options
}

var _ Client = (*V1)(nil)

// NewV1 创建门户 v1 客户端
func NewV1(exec *Executor, opts V1Options) *V1 {
	if opts.IndexPath == "" {
		opts.IndexPath = "index.php"
	}
	if opts.ListingPath == "" {
		opts.ListingPath = "r_monitoring.php"
	}
	if opts.KeyParam == "" {
		opts.KeyParam = "inpsn"
	}
	return &V1{exec: exec, opts: opts}
}

func (c *V1) get(ctx context.Context, path, cookie string) ([]byte, error) {
	resp, err := c.exec.Execute(ctx, path, cookie)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &StatusError{Path: path, Status: resp.Status, Body: strings.TrimSpace(string(resp.Body))}
	}
	return resp.Body, nil
}

// Listing 查询监控列表
func (c *V1) Listing(ctx context.Context, cookie, key string) (ListingEntry, error) {
	path := c.opts.ListingPath + "?" + url.QueryEscape(c.opts.KeyParam) + "=" + url.QueryEscape(key)
	body, err := c.get(ctx, path, cookie)
	if err != nil {
		return ListingEntry{}, err
	}
	return ParseListing(body)
}

// Detail 读取详情页
func (c *V1) Detail(ctx context.Context, cookie, path string) (DetailPage, error) {
	body, err := c.get(ctx, path, cookie)
	if err != nil {
		return DetailPage{}, err
	}
	return ParseDetail(body)
}

// Submit 提交审核结果
func (c *V1) Submit(ctx context.Context, cookie string, params model.RoutingParams) error {
	if c.opts.SubmitPath == "" {
		return errors.New("portal: submit path not configured")
	}
	path := c.opts.SubmitPath
	if q := params.Encode(); q != "" {
		path += "?" + q
	}
	_, err := c.get(ctx, path, cookie)
	return err
}

// Identity 读取登录名
func (c *V1) Identity(ctx context.Context, cookie string) (string, error) {
	body, err := c.get(ctx, c.opts.IndexPath, cookie)
	if err != nil {
		return "", err
	}
	return ParseIdentity(body)
}
