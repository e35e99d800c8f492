package hub

import (
	"context"
	"strings"
	"sync"

	"github.com/BaSui01/guardflow/internal/metrics"
	"github.com/BaSui01/guardflow/types"
	"go.uber.org/zap"
)

// 解析策略名
const (
	StrategyBuiltin = "builtin"
	StrategyPlugin  = "plugin"
	StrategyRemote  = "remote"
)

// aliasTable 槽位别名表
// 将常见槽位与别名折叠到内置能力的规范名。
var aliasTable = map[string]string{
	"regex_match":      "RegexMatch",
	"regex":            "RegexMatch",
	"valid_json":       "ValidJson",
	"valid_url":        "ValidURL",
	"toxic_language":   "ToxicLanguage",
	"competitor_check": "CompetitorCheck",
	"detect_pii":       "DetectPII",
	"pii":              "DetectPII",
	"blocklist":        "Blocklist",
}

// Resolver 委托解析器
// 按固定顺序尝试内置能力、插件、远端目录三种策略。
// 解析只返回命中与否，任何一步失败都不会向上抛出。
type Resolver struct {
	builtins  map[string]Capability
	plugins   map[string]Capability
	client    *Client
	collector *metrics.Collector
	logger    *zap.Logger
	mu        sync.RWMutex
}

// NewResolver 创建委托解析器并注册全部内置能力。
// client 与 collector 均可为 nil。
func NewResolver(client *Client, collector *metrics.Collector, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Resolver{
		builtins:  make(map[string]Capability),
		plugins:   make(map[string]Capability),
		client:    client,
		collector: collector,
		logger:    logger.With(zap.String("component", "hub_resolver")),
	}

	for _, c := range []Capability{
		RegexMatchCapability{},
		ValidJSONCapability{},
		ValidURLCapability{},
		NewToxicLanguageCapability(nil),
		CompetitorCheckCapability{},
		DetectPIICapability{},
		BlocklistCapability{},
	} {
		r.builtins[c.Name()] = c
	}

	return r
}

// RegisterPlugin 按槽位注册插件能力（重复注册覆盖旧值）
func (r *Resolver) RegisterPlugin(slug string, c Capability) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[slugBase(slug)] = c
}

// Resolve 解析护栏的委托能力。
// 返回命中的能力、策略名与是否命中；未命中不是错误。
func (r *Resolver) Resolve(ctx context.Context, g types.Guardrail) (Capability, string, bool) {
	slug := g.HubSlug()
	if slug == "" {
		return nil, "", false
	}

	// 内置能力：依次尝试各命名候选
	for _, candidate := range nameCandidates(slug) {
		if c, ok := r.builtins[candidate]; ok {
			r.record(StrategyBuiltin, "found")
			return c, StrategyBuiltin, true
		}
	}

	// 插件：按槽位基名查找
	r.mu.RLock()
	c, ok := r.plugins[slugBase(slug)]
	r.mu.RUnlock()
	if ok {
		r.record(StrategyPlugin, "found")
		return c, StrategyPlugin, true
	}

	// 远端目录：动态加载
	if r.client != nil && r.client.Available(ctx) {
		remote, err := r.client.Load(ctx, slug)
		if err == nil {
			r.record(StrategyRemote, "found")
			return remote, StrategyRemote, true
		}
		r.logger.Debug("remote capability load failed",
			zap.String("slug", slug),
			zap.Error(err),
		)
	}

	r.record(StrategyRemote, "not_found")
	r.logger.Debug("no capability resolved", zap.String("slug", slug))
	return nil, "", false
}

// HasLocal 判断护栏是否可由内置或插件能力解析（不触达远端目录）。
// API 边界用它识别必须依赖远端目录的护栏。
func (r *Resolver) HasLocal(g types.Guardrail) bool {
	slug := g.HubSlug()
	if slug == "" {
		return false
	}
	for _, candidate := range nameCandidates(slug) {
		if _, ok := r.builtins[candidate]; ok {
			return true
		}
	}
	r.mu.RLock()
	_, ok := r.plugins[slugBase(slug)]
	r.mu.RUnlock()
	return ok
}

func (r *Resolver) record(strategy, outcome string) {
	if r.collector != nil {
		r.collector.RecordHubResolution(strategy, outcome)
	}
}

// =============================================================================
// 🔧 命名辅助
// =============================================================================

// slugBase 去掉槽位的命名空间前缀，如 "guardrails/regex_match" → "regex_match"
func slugBase(slug string) string {
	base := strings.ToLower(strings.TrimSpace(slug))
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return base
}

// nameCandidates 生成内置能力查找的命名候选：
// 别名表命中 > snake_case 原名 > PascalCase 变体。
func nameCandidates(slug string) []string {
	base := slugBase(slug)
	if base == "" {
		return nil
	}

	candidates := make([]string, 0, 3)
	if alias, ok := aliasTable[base]; ok {
		candidates = append(candidates, alias)
	}
	candidates = append(candidates, base, snakeToPascal(base))
	return candidates
}

// snakeToPascal 将 snake_case 转为 PascalCase，如 "regex_match" → "RegexMatch"
func snakeToPascal(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
