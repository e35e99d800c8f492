package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Capability 委托校验能力接口
// 返回值形态因实现而异（元组、字典、裸字符串），由 Invoker 统一归一化。
type Capability interface {
	// Validate 对文本执行校验
	Validate(ctx context.Context, text string, params map[string]any) (any, error)
	// Name 返回能力名称
	Name() string
}

// =============================================================================
// 🧩 内置能力
// =============================================================================

// RegexMatchCapability 正则匹配能力
// 要求文本整体或局部命中 pattern；结果为 (text, valid) 元组形态。
type RegexMatchCapability struct{}

// Name 返回能力名称
func (RegexMatchCapability) Name() string { return "RegexMatch" }

// Validate 执行正则匹配
func (RegexMatchCapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	pattern, _ := params["pattern"].(string)
	if pattern == "" {
		return nil, fmt.Errorf("regex_match: pattern is required")
	}

	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regex_match: invalid pattern %q: %w", pattern, err)
	}

	return []any{text, rx.MatchString(text)}, nil
}

// ValidJSONCapability JSON 格式校验能力
// 结果为带 valid 键的字典形态。
type ValidJSONCapability struct{}

// Name 返回能力名称
func (ValidJSONCapability) Name() string { return "ValidJson" }

// Validate 执行 JSON 校验
func (ValidJSONCapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	return map[string]any{
		"text":  text,
		"valid": json.Valid([]byte(strings.TrimSpace(text))),
	}, nil
}

// ValidURLCapability URL 格式校验能力
// 结果为带 ok 键的字典形态。
type ValidURLCapability struct{}

// Name 返回能力名称
func (ValidURLCapability) Name() string { return "ValidURL" }

// Validate 执行 URL 校验
func (ValidURLCapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	u, err := url.Parse(strings.TrimSpace(text))
	ok := err == nil && u.Scheme != "" && u.Host != ""
	return map[string]any{"ok": ok}, nil
}

// ToxicLanguageCapability 有害言论校验能力
// 基于词表的朴素实现；结果为带 passed 键的字典形态。
type ToxicLanguageCapability struct {
	terms []string
}

// defaultToxicTerms 默认有害词表
var defaultToxicTerms = []string{
	"idiot", "stupid", "moron", "hate you", "kill yourself", "worthless",
}

// NewToxicLanguageCapability 创建有害言论校验能力
func NewToxicLanguageCapability(terms []string) *ToxicLanguageCapability {
	if len(terms) == 0 {
		terms = defaultToxicTerms
	}
	return &ToxicLanguageCapability{terms: terms}
}

// Name 返回能力名称
func (c *ToxicLanguageCapability) Name() string { return "ToxicLanguage" }

// Validate 执行有害言论校验
func (c *ToxicLanguageCapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	lower := strings.ToLower(text)
	for _, term := range c.terms {
		if strings.Contains(lower, term) {
			return map[string]any{"passed": false, "matched": term}, nil
		}
	}
	return map[string]any{"passed": true}, nil
}

// CompetitorCheckCapability 竞品提及校验能力
// 竞品名单来自 params.competitors；结果为带 is_valid 键的字典形态。
type CompetitorCheckCapability struct{}

// Name 返回能力名称
func (CompetitorCheckCapability) Name() string { return "CompetitorCheck" }

// Validate 执行竞品提及校验
func (CompetitorCheckCapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	competitors := stringList(params["competitors"])
	lower := strings.ToLower(text)
	for _, name := range competitors {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && strings.Contains(lower, name) {
			return map[string]any{"is_valid": false, "competitor": name}, nil
		}
	}
	return map[string]any{"is_valid": true}, nil
}

// DetectPIICapability PII 脱敏能力
// 将命中的 PII 替换为掩码；结果为裸字符串形态（改写后的文本）。
type DetectPIICapability struct{}

// Name 返回能力名称
func (DetectPIICapability) Name() string { return "DetectPII" }

// detectPIIMaskPatterns 脱敏用识别模式
var detectPIIMaskPatterns = []struct {
	rx   *regexp.Regexp
	mask string
}{
	{regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), "<EMAIL_ADDRESS>"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`), "<PHONE_NUMBER>"},
}

// Validate 执行 PII 脱敏
func (DetectPIICapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	out := text
	for _, p := range detectPIIMaskPatterns {
		out = p.rx.ReplaceAllString(out, p.mask)
	}
	return out, nil
}

// BlocklistCapability 屏蔽词校验能力
// 结果为 (text, valid, meta) 三元组形态。
type BlocklistCapability struct{}

// Name 返回能力名称
func (BlocklistCapability) Name() string { return "Blocklist" }

// Validate 执行屏蔽词校验
func (BlocklistCapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	terms := stringList(params["terms"])
	if len(terms) == 0 {
		if pattern, ok := params["pattern"].(string); ok {
			for _, raw := range strings.Split(pattern, ",") {
				if term := strings.TrimSpace(raw); term != "" {
					terms = append(terms, term)
				}
			}
		}
	}

	lower := strings.ToLower(text)
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(lower, term) {
			return []any{text, false, map[string]any{"matched": term}}, nil
		}
	}
	return []any{text, true, map[string]any{}}, nil
}

// stringList 宽松解析字符串列表（JSON 反序列化后为 []any）
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	default:
		return nil
	}
}
