package guardrail

import (
	"context"
	"regexp"
	"strings"

	"github.com/BaSui01/guardflow/types"
	"go.uber.org/zap"
)

// PIIType PII 类别
type PIIType string

const (
	// PIITypeEmail 邮箱地址
	PIITypeEmail PIIType = "email"
	// PIITypePhone 电话号码
	PIITypePhone PIIType = "phone_number"
	// PIITypeCreditCard 信用卡号
	PIITypeCreditCard PIIType = "credit_card"
	// PIITypeIP IP 地址
	PIITypeIP PIIType = "ip"
	// PIITypeURL URL 地址
	PIITypeURL PIIType = "url"
	// PIITypeAPIKey API 密钥
	PIITypeAPIKey PIIType = "api_key"
)

// defaultPIITypes 未指定类别时的默认检测集合
var defaultPIITypes = []PIIType{
	PIITypeEmail,
	PIITypeCreditCard,
	PIITypeIP,
	PIITypeURL,
	PIITypeAPIKey,
}

// piiPatterns 各类别的固定识别模式
var piiPatterns = map[PIIType]*regexp.Regexp{
	// RFC-5322 近似的邮箱形态
	PIITypeEmail: regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	// 13-19 位可分组数字序列
	PIITypeCreditCard: regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`),
	// 含可选国家码的常见电话形态
	PIITypePhone: regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	// 点分四段 IP
	PIITypeIP: regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	// http(s) 前缀 URL
	PIITypeURL: regexp.MustCompile(`(?i)\bhttps?://[^\s]+`),
	// sk- 前缀 32 位字母数字密钥
	PIITypeAPIKey: regexp.MustCompile(`sk-[A-Za-z0-9]{32}`),
}

// PIICheck PII 检测检查
// 仅报告匹配元数据，不拒绝也不改写文本。
type PIICheck struct {
	logger *zap.Logger
}

// NewPIICheck 创建 PII 检测检查
func NewPIICheck(logger *zap.Logger) *PIICheck {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PIICheck{
		logger: logger.With(zap.String("component", "pii_check")),
	}
}

// Name 返回检查名称
func (c *PIICheck) Name() string { return "pii_check" }

// Run 执行 PII 检测
// 类别选择优先级：params.pii_types 列表 > params 布尔开关 >
// pattern 逗号分隔类别 > 默认集合。
func (c *PIICheck) Run(ctx context.Context, text string, g types.Guardrail) (*CheckResult, error) {
	result := NewCheckResult(text)

	selected := selectPIITypes(g)
	matches := detectPII(text, selected)

	result.Matches = matches
	result.Metadata["type"] = "pii"
	result.Metadata["pii_types"] = piiTypeStrings(selected)
	result.Metadata["match_count"] = len(matches)

	if enforced(g) && len(matches) > 0 {
		result.AddViolation(NewViolation(g, ErrTagFailed))
	}

	return result, nil
}

// selectPIITypes 依据描述符确定要检测的 PII 类别
func selectPIITypes(g types.Guardrail) []PIIType {
	var selected []PIIType

	if g.Params != nil {
		if truthy(g.Params["email"]) {
			selected = append(selected, PIITypeEmail)
		}
		// phone_number / phone / phonenumber 同义
		if truthy(g.Params["phone_number"]) || truthy(g.Params["phone"]) || truthy(g.Params["phonenumber"]) {
			selected = append(selected, PIITypePhone)
		}
		if truthy(g.Params["credit_card"]) {
			selected = append(selected, PIITypeCreditCard)
		}

		// 显式列表覆盖布尔开关
		if explicit := parsePIITypeList(g.Params["pii_types"]); len(explicit) > 0 {
			selected = explicit
		}
	}

	if len(selected) == 0 {
		for _, raw := range strings.Split(g.Pattern, ",") {
			if t := normalizePIIType(raw); t != "" {
				selected = append(selected, t)
			}
		}
	}

	if len(selected) == 0 {
		selected = defaultPIITypes
	}
	return selected
}

// parsePIITypeList 解析 params.pii_types 列表（JSON 反序列化后为 []any）
func parsePIITypeList(v any) []PIIType {
	var out []PIIType
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				if t := normalizePIIType(s); t != "" {
					out = append(out, t)
				}
			}
		}
	case []string:
		for _, s := range list {
			if t := normalizePIIType(s); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// normalizePIIType 归一化类别名，phone 同义词折叠为 phone_number
func normalizePIIType(raw string) PIIType {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "":
		return ""
	case "phone", "phonenumber", "phone_number":
		return PIITypePhone
	default:
		return PIIType(s)
	}
}

// detectPII 对选定类别执行检测
func detectPII(text string, selected []PIIType) []Match {
	var matches []Match
	for _, t := range selected {
		rx, ok := piiPatterns[t]
		if !ok {
			continue
		}
		matches = append(matches, findAllMatches(rx, text, string(t))...)
	}
	return matches
}

// piiTypeStrings 转换类别切片用于元数据记录
func piiTypeStrings(ts []PIIType) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}

// truthy 宽松布尔判定：params 可能来自 JSON，true/字符串 "true" 均视为开
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}
