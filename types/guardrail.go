package types

import "strings"

// GuardrailScope 护栏作用域，决定护栏在交互的哪一侧生效
type GuardrailScope string

const (
	// ScopeInput 仅对用户输入生效
	ScopeInput GuardrailScope = "input"
	// ScopeOutput 仅对模型输出生效
	ScopeOutput GuardrailScope = "output"
	// ScopeBoth 对输入和输出均生效
	ScopeBoth GuardrailScope = "both"
)

// ParseScope 解析作用域字符串，未知或空值归一化为 ScopeBoth
func ParseScope(s string) GuardrailScope {
	switch GuardrailScope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeInput:
		return ScopeInput
	case ScopeOutput:
		return ScopeOutput
	default:
		return ScopeBoth
	}
}

// Matches 判断护栏作用域在给定运行时作用域下是否生效。
// ScopeBoth 的护栏在任何运行时作用域下均生效。
func (s GuardrailScope) Matches(runtime GuardrailScope) bool {
	return s == ScopeBoth || s == runtime
}

// GuardrailType 护栏类型
type GuardrailType string

const (
	// TypeRegexMatch 正则匹配护栏
	TypeRegexMatch GuardrailType = "regex_match"
	// TypeValidJSON JSON 格式校验护栏
	TypeValidJSON GuardrailType = "valid_json"
	// TypeValidURL URL 格式校验护栏
	TypeValidURL GuardrailType = "valid_url"
	// TypeToxicLanguage 有害言论校验护栏
	TypeToxicLanguage GuardrailType = "toxic_language"
	// TypeCompetitorCheck 竞品提及校验护栏
	TypeCompetitorCheck GuardrailType = "competitor_check"
	// TypeDetectPII PII 检测护栏
	TypeDetectPII GuardrailType = "detect_pii"
	// TypeBlocklist 屏蔽词护栏
	TypeBlocklist GuardrailType = "blocklist"
	// TypePII PII 护栏（detect_pii 的别名形式）
	TypePII GuardrailType = "pii"
)

// NormalizeTypeKey 将护栏类型键归一化为小写规范形式。
// 接受 "Regex_Match"、"GuardrailsType.BLOCKLIST" 等形式，
// 统一裁剪点号前缀并转小写。
func NormalizeTypeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if idx := strings.LastIndex(k, "."); idx >= 0 {
		k = k[idx+1:]
	}
	return k
}

// OnFail 护栏失败策略常量
const (
	// OnFailException 默认策略：委托调用异常计为校验失败
	OnFailException = "exception"
	// OnFailNoop 容忍策略：委托调用异常不影响整体有效性
	OnFailNoop = "noop"
)

// Guardrail 单条护栏配置。
// 每次校验请求由调用方构造，校验期间不可变。
type Guardrail struct {
	// ID 可选的护栏标识
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Type 护栏类型
	Type GuardrailType `json:"type" yaml:"type"`

	// Scope 作用域
	Scope GuardrailScope `json:"scope" yaml:"scope"`

	// HubID 第三方校验器目录标识（如 "guardrails/valid_json"），
	// 存在时优先于 Type 参与委托解析
	HubID string `json:"hub_id,omitempty" yaml:"hub_id,omitempty"`

	// Pattern 正则源串，或 blocklist/PII 类型的逗号分隔项
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// OnFail 失败策略（"exception" / "noop"）
	OnFail string `json:"on_fail,omitempty" yaml:"on_fail,omitempty"`

	// Params 护栏特定配置，未知键原样转发给委托校验器
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// TypeKey 返回归一化后的类型键
func (g Guardrail) TypeKey() string {
	return NormalizeTypeKey(string(g.Type))
}

// EffectiveScope 返回归一化后的作用域，空值视为 ScopeBoth
func (g Guardrail) EffectiveScope() GuardrailScope {
	if g.Scope == "" {
		return ScopeBoth
	}
	return ParseScope(string(g.Scope))
}

// EffectiveOnFail 返回失败策略，空值视为 OnFailException
func (g Guardrail) EffectiveOnFail() string {
	if strings.TrimSpace(g.OnFail) == "" {
		return OnFailException
	}
	return strings.ToLower(strings.TrimSpace(g.OnFail))
}

// HubSlug 返回参与委托解析的标识：优先 HubID，其次类型键
func (g Guardrail) HubSlug() string {
	if s := strings.ToLower(strings.TrimSpace(g.HubID)); s != "" {
		return s
	}
	return g.TypeKey()
}
