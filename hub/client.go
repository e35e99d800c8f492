package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/guardflow/internal/cache"
	"github.com/BaSui01/guardflow/internal/metrics"
	"github.com/BaSui01/guardflow/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClientConfig 远端目录客户端配置
type ClientConfig struct {
	// BaseURL 目录服务地址
	BaseURL string `yaml:"base_url" json:"base_url"`

	// APIKey 目录服务密钥
	APIKey string `yaml:"api_key" json:"api_key"`

	// Timeout 单次请求超时
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// RateLimit 每秒请求上限
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`

	// RateBurst 突发请求上限
	RateBurst int `yaml:"rate_burst" json:"rate_burst"`

	// ManifestTTL 清单缓存时长
	ManifestTTL time.Duration `yaml:"manifest_ttl" json:"manifest_ttl"`

	// AvailabilityTTL 可用性探测结果缓存时长
	AvailabilityTTL time.Duration `yaml:"availability_ttl" json:"availability_ttl"`
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:         10 * time.Second,
		RateLimit:       10,
		RateBurst:       20,
		ManifestTTL:     10 * time.Minute,
		AvailabilityTTL: 30 * time.Second,
	}
}

// Manifest 目录中一条委托能力的清单
type Manifest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Client 远端目录客户端
// 带限流的 HTTP 客户端；清单经 Redis 缓存，可用性探测结果短暂缓存。
// BaseURL 为空表示未配置远端目录，所有方法按不可用处理。
type Client struct {
	cfg       ClientConfig
	client    *http.Client
	limiter   *rate.Limiter
	cache     *cache.Manager
	collector *metrics.Collector
	logger    *zap.Logger

	mu            sync.Mutex
	available     bool
	lastAvailable time.Time
}

// NewClient 创建远端目录客户端。
// cacheMgr 与 collector 均可为 nil。
func NewClient(cfg ClientConfig, cacheMgr *cache.Manager, collector *metrics.Collector, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	if cfg.AvailabilityTTL == 0 {
		cfg.AvailabilityTTL = 30 * time.Second
	}

	return &Client{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		cache:     cacheMgr,
		collector: collector,
		logger:    logger.With(zap.String("component", "hub_client")),
	}
}

// Available 探测远端目录是否可用。
// 探测结果在 AvailabilityTTL 内复用，避免每次解析都发请求。
func (c *Client) Available(ctx context.Context) bool {
	if c == nil || c.cfg.BaseURL == "" {
		return false
	}

	c.mu.Lock()
	if time.Since(c.lastAvailable) < c.cfg.AvailabilityTTL {
		available := c.available
		c.mu.Unlock()
		return available
	}
	c.mu.Unlock()

	available := c.probe(ctx)

	c.mu.Lock()
	c.available = available
	c.lastAvailable = time.Now()
	c.mu.Unlock()

	return available
}

// probe 实际执行一次健康探测
func (c *Client) probe(ctx context.Context) bool {
	if !c.limiter.Allow() {
		// 限流时沿用上次结果
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.available
	}

	start := time.Now()
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	c.recordRequest("health", time.Since(start))
	if err != nil {
		c.logger.Debug("hub health probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Manifest 获取一条能力的清单，优先走缓存
func (c *Client) Manifest(ctx context.Context, slug string) (*Manifest, error) {
	if c.cfg.BaseURL == "" {
		return nil, types.NewError(types.ErrHubUnavailable, "hub catalog is not configured")
	}

	key := manifestCacheKey(slug)
	if c.cache != nil {
		var cached Manifest
		if err := c.cache.GetJSON(ctx, "hub_manifest", key, &cached); err == nil {
			return &cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("hub rate limit wait: %w", err)
	}

	start := time.Now()
	resp, err := c.do(ctx, http.MethodGet, "/guardrails/"+slugBase(slug)+"/manifest", nil)
	c.recordRequest("manifest", time.Since(start))
	if err != nil {
		return nil, types.NewError(types.ErrHubUnavailable, "hub manifest request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("hub manifest not found: %s", slug)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrHubUnavailable,
			fmt.Sprintf("hub manifest request failed: status=%d", resp.StatusCode))
	}

	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode hub manifest: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, key, &m, c.cfg.ManifestTTL); err != nil {
			c.logger.Warn("hub manifest cache write failed", zap.String("slug", slug), zap.Error(err))
		}
	}

	return &m, nil
}

// Load 动态加载一条远端能力
func (c *Client) Load(ctx context.Context, slug string) (Capability, error) {
	m, err := c.Manifest(ctx, slug)
	if err != nil {
		return nil, err
	}

	c.logger.Info("remote capability loaded",
		zap.String("slug", slug),
		zap.String("name", m.Name),
		zap.String("version", m.Version),
	)

	return &remoteCapability{client: c, slug: slug, manifest: m}, nil
}

// do 发送一次带认证头的请求
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	return c.client.Do(req)
}

func (c *Client) recordRequest(operation string, elapsed time.Duration) {
	if c.collector != nil {
		c.collector.RecordHubRequest(operation, elapsed)
	}
}

// manifestCacheKey 清单缓存键
func manifestCacheKey(slug string) string {
	return "hub:manifest:" + slugBase(slug)
}

// =============================================================================
// 🌐 远端能力
// =============================================================================

// validateRequest 远端校验请求体
type validateRequest struct {
	Text   string         `json:"text"`
	Params map[string]any `json:"params,omitempty"`
}

// remoteCapability 远端目录中的委托能力
// 校验请求转发给目录服务，响应体原样交给 Invoker 归一化。
type remoteCapability struct {
	client   *Client
	slug     string
	manifest *Manifest
}

// Name 返回能力名称
func (r *remoteCapability) Name() string {
	if r.manifest != nil && r.manifest.Name != "" {
		return r.manifest.Name
	}
	return slugBase(r.slug)
}

// Validate 远程执行校验
func (r *remoteCapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	body, err := json.Marshal(validateRequest{Text: text, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode hub validate request: %w", err)
	}

	if err := r.client.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("hub rate limit wait: %w", err)
	}

	start := time.Now()
	resp, err := r.client.do(ctx, http.MethodPost, "/guardrails/"+slugBase(r.slug)+"/validate", body)
	r.client.recordRequest("validate", time.Since(start))
	if err != nil {
		return nil, types.NewError(types.ErrHubUnavailable, "hub validate request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hub validate failed: status=%d", resp.StatusCode)
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode hub validate response: %w", err)
	}
	return raw, nil
}
