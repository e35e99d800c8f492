package guardrail

import (
	"context"

	"github.com/BaSui01/guardflow/types"
)

// Check 单条护栏检查接口
// 用于对文本执行一类护栏校验
type Check interface {
	// Run 执行检查，返回检查结果。
	// text 为当前（可能已被前序检查改写的）文本。
	Run(ctx context.Context, text string, g types.Guardrail) (*CheckResult, error)
	// Name 返回检查名称
	Name() string
}

// violation 错误标签常量
const (
	// ErrTagMissingPattern 正则型护栏缺少 pattern
	ErrTagMissingPattern = "validator_missing_pattern"
	// ErrTagNotFound 委托解析失败
	ErrTagNotFound = "validator_not_found"
	// ErrTagRegexCompileError 用户提供的正则无法编译
	ErrTagRegexCompileError = "validator_regex_compile_error"
	// ErrTagFailed 委托执行并报告无效
	ErrTagFailed = "validator_failed"
	// ErrTagTimeout 请求级超时
	ErrTagTimeout = "validator_timeout"
	// ErrTagHubUnavailable 委托目录不可用（仅 API 边界上报）
	ErrTagHubUnavailable = "hub_unavailable"
)

// Match 匹配区间
// Start/End 为原文本上的半开区间偏移
type Match struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Violation 违规记录
// Params 仅保留 on_fail 字段，避免将委托参数原样回传调用方
type Violation struct {
	Type   string         `json:"type"`
	Scope  string         `json:"scope"`
	Params map[string]any `json:"params"`
	Error  string         `json:"error"`
}

// NewViolation 依据护栏配置构造违规记录
func NewViolation(g types.Guardrail, errTag string) Violation {
	typ := g.TypeKey()
	if typ == "" {
		typ = "unknown"
	}
	return Violation{
		Type:   typ,
		Scope:  string(g.EffectiveScope()),
		Params: map[string]any{"on_fail": g.EffectiveOnFail()},
		Error:  errTag,
	}
}

// CheckResult 单条检查结果
type CheckResult struct {
	// Text 检查后的文本（检测类检查不改写，委托类检查可能改写）
	Text string `json:"text"`
	// Valid 本条检查的有效性信号
	Valid bool `json:"valid"`
	// Matches 检测到的匹配区间（仅检测类检查产出）
	Matches []Match `json:"matches,omitempty"`
	// Violations 本条检查产生的违规记录
	Violations []Violation `json:"violations,omitempty"`
	// Metadata 附加元数据
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewCheckResult 创建一个有效的检查结果
func NewCheckResult(text string) *CheckResult {
	return &CheckResult{
		Text:     text,
		Valid:    true,
		Metadata: make(map[string]any),
	}
}

// AddViolation 追加违规记录并将结果标记为无效
func (r *CheckResult) AddViolation(v Violation) {
	r.Valid = false
	r.Violations = append(r.Violations, v)
}

// AddToleratedViolation 追加违规记录但不影响有效性。
// 用于 on_fail="noop" 的容忍型失败。
func (r *CheckResult) AddToleratedViolation(v Violation) {
	r.Violations = append(r.Violations, v)
}

// EvaluationResult 管道聚合结果
type EvaluationResult struct {
	// Text 全部检查执行后的最终文本
	Text string `json:"text"`
	// Valid 所有检查有效性信号的逻辑与（零条检查时为 true）
	Valid bool `json:"valid"`
	// Violations 按执行顺序拼接的全部违规记录
	Violations []Violation `json:"violations"`
	// Executed 实际执行的检查名称（按执行顺序）
	Executed []string `json:"executed,omitempty"`
	// Metadata 附加元数据（匹配详情等）
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewEvaluationResult 创建一个有效的聚合结果
func NewEvaluationResult(text string) *EvaluationResult {
	return &EvaluationResult{
		Text:       text,
		Valid:      true,
		Violations: []Violation{},
		Executed:   []string{},
		Metadata:   make(map[string]any),
	}
}

// Merge 合并单条检查结果
func (r *EvaluationResult) Merge(cr *CheckResult) {
	if cr == nil {
		return
	}
	if !cr.Valid {
		r.Valid = false
	}
	r.Violations = append(r.Violations, cr.Violations...)
	r.Text = cr.Text
	for k, v := range cr.Metadata {
		r.Metadata[k] = v
	}
}

// passthroughCheck 透传检查：未注册的护栏类型回退实现。
// 永远有效，不改写文本，不产生违规。
type passthroughCheck struct{}

// Name 返回检查名称
func (passthroughCheck) Name() string { return "passthrough" }

// Run 执行透传检查
func (passthroughCheck) Run(ctx context.Context, text string, g types.Guardrail) (*CheckResult, error) {
	return NewCheckResult(text), nil
}

// enforced 读取描述符上的强制开关。
// 检测类检查默认仅做观测，params.enforce=true 时命中即判无效。
func enforced(g types.Guardrail) bool {
	if g.Params == nil {
		return false
	}
	b, ok := g.Params["enforce"].(bool)
	return ok && b
}
