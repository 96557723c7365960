package upstream

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// 上游错误。ErrRegistration 与 ErrLogin 均包装 ErrUpstream，可统一用 errors.Is 判断。
var (
	ErrUpstream     = errors.New("upstream request failed")
	ErrRegistration = fmt.Errorf("%w: registration failed", ErrUpstream)
	ErrLogin        = fmt.Errorf("%w: login failed", ErrUpstream)
	ErrNoDomain     = fmt.Errorf("%w: no active domain", ErrUpstream)
)

// 上游调用的操作名，用于日志与指标
const (
	OpRegister     = "register"
	OpLogin        = "login"
	OpListMessages = "list_messages"
	OpGetMessage   = "get_message"
	OpDomains      = "domains"
)

const maxResponseBytes = 10 << 20

// Observer 接收每次上游调用的结果
type Observer interface {
	ObserveUpstreamCall(operation, outcome string, duration time.Duration)
}

// Options 上游客户端参数
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // 每秒请求数，<=0 不限制
	HTTPClient *http.Client
	Observer   Observer
	Logger     *zap.Logger
}

// Client 是 mail.tm 兼容 REST API 的客户端
type Client struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	observer Observer
	log      *zap.Logger
}

// RegisteredAccount 是 POST /accounts 的响应
type RegisteredAccount struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Domain 是 GET /domains 返回的域名条目
type Domain struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	IsActive  bool   `json:"isActive"`
	IsPrivate bool   `json:"isPrivate"`
}

type credentials struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

type tokenResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// NewClient 创建上游客户端，默认传输层带有 OpenTelemetry 埋点
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   opts.Timeout,
		}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     httpClient,
		limiter:  limiter,
		observer: opts.Observer,
		log:      log.Named("upstream"),
	}
}

// Register 在上游注册地址，响应中必须包含确认后的 address。
func (c *Client) Register(ctx context.Context, address, password string) (*RegisteredAccount, error) {
	status, body, err := c.do(ctx, OpRegister, http.MethodPost, "/accounts", "", credentials{Address: address, Password: password})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistration, err)
	}

	var account RegisteredAccount
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("%w: status %d: decode body: %v", ErrRegistration, status, err)
	}
	if !isSuccess(status) || account.Address == "" {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRegistration, status, snippet(body))
	}

	return &account, nil
}

// Login 使用地址和密码换取 Bearer 令牌。
func (c *Client) Login(ctx context.Context, address, password string) (string, error) {
	status, body, err := c.do(ctx, OpLogin, http.MethodPost, "/token", "", credentials{Address: address, Password: password})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLogin, err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: status %d: decode body: %v", ErrLogin, status, err)
	}
	if !isSuccess(status) || tr.Token == "" {
		return "", fmt.Errorf("%w: status %d: %s", ErrLogin, status, snippet(body))
	}

	return tr.Token, nil
}

// ListMessages 获取收件箱邮件摘要，自动拆开 hydra:member 集合包装。
func (c *Client) ListMessages(ctx context.Context, token string) ([]json.RawMessage, error) {
	body, err := c.get(ctx, OpListMessages, "/messages", token)
	if err != nil {
		return nil, err
	}
	return unwrapCollection(body)
}

// GetMessage 获取单封邮件详情，原样返回上游 JSON。
func (c *Client) GetMessage(ctx context.Context, token, id string) (json.RawMessage, error) {
	body, err := c.get(ctx, OpGetMessage, "/messages/"+url.PathEscape(id), token)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s: invalid JSON body", ErrUpstream, OpGetMessage)
	}
	return json.RawMessage(body), nil
}

// Domains 获取上游提供的域名列表。
func (c *Client) Domains(ctx context.Context) ([]Domain, error) {
	body, err := c.get(ctx, OpDomains, "/domains", "")
	if err != nil {
		return nil, err
	}

	items, err := unwrapCollection(body)
	if err != nil {
		return nil, err
	}

	domains := make([]Domain, 0, len(items))
	for _, item := range items {
		var d Domain
		if err := json.Unmarshal(item, &d); err != nil {
			return nil, fmt.Errorf("%w: %s: decode domain: %v", ErrUpstream, OpDomains, err)
		}
		domains = append(domains, d)
	}
	return domains, nil
}

func (c *Client) get(ctx context.Context, op, path, token string) ([]byte, error) {
	status, body, err := c.do(ctx, op, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrUpstream, op, status, snippet(body))
	}
	return body, nil
}

// do 执行一次上游请求，返回状态码与响应体。
func (c *Client) do(ctx context.Context, op, method, path, token string, payload interface{}) (int, []byte, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstreamCall(op, outcome, time.Since(start))
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/ld+json, application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	if isSuccess(resp.StatusCode) {
		outcome = "success"
	} else {
		outcome = fmt.Sprintf("http_%d", resp.StatusCode)
	}

	c.log.Debug("upstream call",
		zap.String("operation", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return resp.StatusCode, body, nil
}

// unwrapCollection 从 hydra 集合包装中取出成员数组；字段缺失时返回空数组，裸数组原样接受。
func unwrapCollection(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: decode collection: %v", ErrUpstream, err)
		}
		return items, nil
	}

	var envelope struct {
		Member []json.RawMessage `json:"hydra:member"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode collection: %v", ErrUpstream, err)
	}
	if envelope.Member == nil {
		return []json.RawMessage{}, nil
	}
	return envelope.Member, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// snippet 截断响应体用于错误信息
func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
