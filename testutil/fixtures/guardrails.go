// Package fixtures 提供测试用的护栏配置与样本文本。
package fixtures

import "github.com/BaSui01/guardflow/types"

// 样本文本
const (
	TextWithEmail = "reach me at alice@example.com please"
	TextWithPhone = "call 555-123-4567 tomorrow"
	TextClean     = "nothing sensitive here"
)

// RegexGuardrail 返回正则护栏配置
func RegexGuardrail(pattern string, scope types.GuardrailScope) types.Guardrail {
	return types.Guardrail{
		Type:    types.TypeRegexMatch,
		Scope:   scope,
		Pattern: pattern,
	}
}

// BlocklistGuardrail 返回屏蔽词护栏配置，terms 为逗号分隔项
func BlocklistGuardrail(terms string) types.Guardrail {
	return types.Guardrail{
		Type:    types.TypeBlocklist,
		Scope:   types.ScopeBoth,
		Pattern: terms,
	}
}

// PIIGuardrail 返回 PII 检测护栏配置
func PIIGuardrail(piiTypes ...string) types.Guardrail {
	g := types.Guardrail{
		Type:  types.TypeDetectPII,
		Scope: types.ScopeBoth,
	}
	if len(piiTypes) > 0 {
		list := make([]any, 0, len(piiTypes))
		for _, t := range piiTypes {
			list = append(list, t)
		}
		g.Params = map[string]any{"pii_types": list}
	}
	return g
}

// DelegateGuardrail 返回指定目录标识的委托护栏配置
func DelegateGuardrail(typ types.GuardrailType, hubID string) types.Guardrail {
	return types.Guardrail{
		Type:  typ,
		Scope: types.ScopeBoth,
		HubID: hubID,
	}
}

// NoopGuardrail 返回 on_fail="noop" 的容忍型护栏配置
func NoopGuardrail(g types.Guardrail) types.Guardrail {
	g.OnFail = types.OnFailNoop
	return g
}
