package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// Config 重试配置
type Config struct {
	// 最大重试次数
	MaxRetries int `json:"max_retries"`

	// 初始延迟时间
	InitialDelay time.Duration `json:"initial_delay"`

	// 最大延迟时间
	MaxDelay time.Duration `json:"max_delay"`

	// 退避因子（指数退避）
	BackoffFactor float64 `json:"backoff_factor"`
}

// DefaultConfig 返回默认重试配置
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      15 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retrier 网络重试器
type Retrier struct {
	config Config
}

// NewRetrier 创建重试器
func NewRetrier(config Config) *Retrier {
	if config.BackoffFactor <= 1.0 {
		config.BackoffFactor = 2.0
	}
	return &Retrier{config: config}
}

// Do 执行带重试的 HTTP 调用
//
// 网络瞬时错误、429 和 5xx 重试，4xx 和其他永久错误直接返回。
func (r *Retrier) Do(ctx context.Context, fn func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := fn()
		if err == nil && resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			// 之前失败尝试暂存的响应体不再需要
			if lastResp != nil && lastResp != resp {
				lastResp.Body.Close()
			}
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if lastResp != nil && lastResp != resp {
				lastResp.Body.Close()
			}
			lastResp = resp
		}

		if !r.shouldRetry(err, resp) || attempt == r.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay(attempt)):
		}
	}

	if lastErr != nil {
		return lastResp, lastErr
	}
	if lastResp != nil {
		return lastResp, nil
	}
	return nil, errors.New("no response received")
}

// shouldRetry 判断是否应该重试
func (r *Retrier) shouldRetry(err error, resp *http.Response) bool {
	if err != nil {
		return IsNetworkError(err)
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

// delay 计算第 attempt 次重试前的延迟
func (r *Retrier) delay(attempt int) time.Duration {
	delay := r.config.InitialDelay
	if attempt > 0 {
		multiplier := math.Pow(r.config.BackoffFactor, float64(attempt))
		delay = time.Duration(float64(delay) * multiplier)
	}
	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	return delay
}

// IsNetworkError 判断是否为网络瞬时错误
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return IsNetworkError(urlErr.Err)
	}

	// OpError 要先于 net.Error 判断，连接拒绝不是超时但同样可重试
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"connection timed out",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"no such host",
		"broken pipe",
		"i/o timeout",
		"eof",
	}

	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// HTTPClient 可重试的 HTTP 客户端
type HTTPClient struct {
	client  *http.Client
	retrier *Retrier
}

// WrapHTTPClient 包装 HTTP 客户端，添加重试功能
func (r *Retrier) WrapHTTPClient(client *http.Client) *HTTPClient {
	return &HTTPClient{client: client, retrier: r}
}

// Do 执行 HTTP 请求（带重试）
func (hc *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return hc.retrier.Do(req.Context(), func() (*http.Response, error) {
		// 克隆请求并重新取 Body，避免被上一次尝试消费
		cloned := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			cloned.Body = body
		}
		return hc.client.Do(cloned)
	})
}
