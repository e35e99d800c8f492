package api

import (
	"strings"

	"github.com/BaSui01/guardflow/types"
)

// =============================================================================
// 校验请求/响应类型
// =============================================================================

// ValidatorConfig 线上格式的单条校验器配置。
// 部分调用方（前端表单）只携带 UI 展示名而缺省 type，
// 转换时按展示名推断类型。
// @Description 校验器配置结构
type ValidatorConfig struct {
	// 校验器类型键，如 "regex_match"、"valid_json"、"detect_pii"
	Type string `json:"type,omitempty" example:"regex_match"`
	// UI 展示名（type 缺省时用于类型推断）
	Validator string `json:"validator,omitempty" example:"Regex Match"`
	// 展示名别名字段
	Name string `json:"name,omitempty"`
	// 作用域："input"、"output" 或 "both"
	Scope string `json:"scope,omitempty" example:"both"`
	// 第三方校验器目录标识，如 "guardrails/valid_json"
	HubID string `json:"hub_id,omitempty" example:"guardrails/regex_match"`
	// 正则源串（允许携带外层引号，转换时剥除）
	Pattern string `json:"pattern,omitempty" example:"^[a-z]+$"`
	// 失败策略："exception"（默认）或 "noop"
	OnFail string `json:"on_fail,omitempty" example:"exception"`
	// 校验器特定参数，未知键原样转发
	Params map[string]any `json:"params,omitempty"`
}

// ValidateRequest 文本校验请求。
// @Description 文本校验请求结构
type ValidateRequest struct {
	// 待校验文本
	Text string `json:"text" example:"Hello Alice"`
	// text 的别名字段（兼容旧调用方）
	UserInput string `json:"user_input,omitempty"`
	// 运行时作用域："input"、"output" 或 "both"
	Scope string `json:"scope,omitempty" example:"input"`
	// 校验器配置列表
	Validators []ValidatorConfig `json:"validators,omitempty"`
	// 本地优先开关（缺省沿用服务端配置）
	UseLocalFirst *bool `json:"use_local_first,omitempty"`
}

// ValidateResponse 文本校验响应。
// @Description 文本校验响应结构
type ValidateResponse struct {
	// 全部检查执行后的最终文本
	Text string `json:"text"`
	// 聚合有效性
	Valid bool `json:"valid"`
	// 校验明细（violations、executed、matches 等）
	Details map[string]any `json:"details"`
}

// EffectiveText 返回待校验文本，text 缺省时回退 user_input
func (r ValidateRequest) EffectiveText() string {
	if r.Text != "" {
		return r.Text
	}
	return r.UserInput
}

// EffectiveScope 返回归一化后的运行时作用域
func (r ValidateRequest) EffectiveScope() types.GuardrailScope {
	return types.ParseScope(r.Scope)
}

// Guardrails 把线上格式的校验器列表转换为领域护栏列表。
// 请求级 use_local_first 注入每条护栏参数。
func (r ValidateRequest) Guardrails() []types.Guardrail {
	out := make([]types.Guardrail, 0, len(r.Validators))
	for _, v := range r.Validators {
		g := v.ToGuardrail()
		if r.UseLocalFirst != nil {
			if g.Params == nil {
				g.Params = make(map[string]any, 1)
			}
			g.Params["use_local_first"] = *r.UseLocalFirst
		}
		out = append(out, g)
	}
	return out
}

// =============================================================================
// 线上格式 → 领域类型转换
// =============================================================================

// ToGuardrail 把单条线上配置转换为领域护栏：
//   - type 缺省时按 UI 展示名推断（含 "regex" → regex_match，
//     含 "url" → valid_url）
//   - pattern 剥除外层引号，仅在正则型配置上保留
//   - 正则型且缺省 hub_id 时补默认目录标识
func (v ValidatorConfig) ToGuardrail() types.Guardrail {
	typ := strings.ToLower(strings.TrimSpace(v.Type))
	if typ == "" {
		typ = inferTypeFromLabel(v.Validator, v.Name)
	}

	hubID := strings.ToLower(strings.TrimSpace(v.HubID))
	if hubID == "" && (typ == "regex" || typ == "regex_match") {
		hubID = "guardrails/regex_match"
	}

	g := types.Guardrail{
		Type:   types.GuardrailType(typ),
		Scope:  types.ParseScope(v.Scope),
		HubID:  hubID,
		OnFail: v.OnFail,
	}

	if pattern := stripQuotes(v.Pattern); pattern != "" && patternApplies(typ, hubID) {
		g.Pattern = pattern
	}

	if len(v.Params) > 0 {
		g.Params = make(map[string]any, len(v.Params))
		for k, val := range v.Params {
			g.Params[k] = val
		}
	}

	return g
}

// inferTypeFromLabel 按 UI 展示名推断类型键
func inferTypeFromLabel(labels ...string) string {
	for _, label := range labels {
		l := strings.ToLower(strings.TrimSpace(label))
		if l == "" {
			continue
		}
		switch {
		case strings.Contains(l, "regex"):
			return string(types.TypeRegexMatch)
		case strings.Contains(l, "url"):
			return string(types.TypeValidURL)
		}
	}
	return ""
}

// stripQuotes 剥除正则源串的外层引号
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, `'`)
	return s
}

// patternApplies 判断 pattern 是否随该配置下发：
// 仅正则型 type 或正则型 hub_id 携带 pattern，
// blocklist/PII 的逗号分隔项不受此限制（它们走 Pattern 语义的检测路径）。
func patternApplies(typ, hubID string) bool {
	switch typ {
	case "regex", "regex_match", string(types.TypeBlocklist),
		string(types.TypeDetectPII), string(types.TypePII):
		return true
	}
	return strings.HasSuffix(hubID, "regex_match") ||
		strings.HasSuffix(hubID, "/regex") ||
		strings.HasSuffix(hubID, "regex")
}
