package guardrail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/guardflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubCheck 测试用检查：可改写文本、置为无效或返回错误
type stubCheck struct {
	name    string
	rewrite func(string) string
	valid   bool
	errTag  string
	err     error
	delay   time.Duration
}

func (s *stubCheck) Name() string { return s.name }

func (s *stubCheck) Run(ctx context.Context, text string, g types.Guardrail) (*CheckResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}

	out := text
	if s.rewrite != nil {
		out = s.rewrite(text)
	}
	result := NewCheckResult(out)
	if !s.valid {
		result.AddViolation(NewViolation(g, s.errTag))
	}
	return result, nil
}

func newTestPipeline(t *testing.T, reg *Registry) *Pipeline {
	t.Helper()
	return NewPipeline(PipelineConfig{}, reg, nil, nil, zap.NewNop())
}

func TestPipeline_NoGuardrails(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	p := newTestPipeline(t, reg)

	result, err := p.Evaluate(context.Background(), "untouched text", types.ScopeInput, nil)
	require.NoError(t, err)

	assert.Equal(t, "untouched text", result.Text)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Violations)
	assert.Empty(t, result.Executed)
}

func TestPipeline_DetectionChecks(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.RegisterDetectionChecks(zap.NewNop())
	p := newTestPipeline(t, reg)

	guardrails := []types.Guardrail{
		{Type: types.TypeDetectPII, Scope: types.ScopeBoth},
		{Type: types.TypeBlocklist, Scope: types.ScopeBoth, Pattern: "alice"},
	}

	result, err := p.Evaluate(context.Background(), "Hello Alice", types.ScopeInput, guardrails)
	require.NoError(t, err)

	// 检测类检查只观测，不判无效也不改写
	assert.True(t, result.Valid)
	assert.Equal(t, "Hello Alice", result.Text)
	assert.Empty(t, result.Violations)
	assert.Equal(t, []string{"pii_check", "blocklist_check"}, result.Executed)
}

func TestPipeline_ScopeFiltering(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("input_only", func(types.Guardrail) Check {
		return &stubCheck{name: "input_only", valid: true}
	})
	reg.Register("output_only", func(types.Guardrail) Check {
		return &stubCheck{name: "output_only", valid: true}
	})
	reg.Register("always", func(types.Guardrail) Check {
		return &stubCheck{name: "always", valid: true}
	})
	p := newTestPipeline(t, reg)

	guardrails := []types.Guardrail{
		{Type: "input_only", Scope: types.ScopeInput},
		{Type: "output_only", Scope: types.ScopeOutput},
		{Type: "always", Scope: types.ScopeBoth},
	}

	result, err := p.Evaluate(context.Background(), "text", types.ScopeInput, guardrails)
	require.NoError(t, err)
	assert.Equal(t, []string{"input_only", "always"}, result.Executed)

	result, err = p.Evaluate(context.Background(), "text", types.ScopeOutput, guardrails)
	require.NoError(t, err)
	assert.Equal(t, []string{"output_only", "always"}, result.Executed)
}

func TestPipeline_TextThreading(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("upper", func(types.Guardrail) Check {
		return &stubCheck{name: "upper", valid: true, rewrite: strings.ToUpper}
	})
	reg.Register("trim", func(types.Guardrail) Check {
		return &stubCheck{name: "trim", valid: true, rewrite: strings.TrimSpace}
	})
	p := newTestPipeline(t, reg)

	guardrails := []types.Guardrail{
		{Type: "upper"},
		{Type: "trim"},
	}

	// 第二条检查收到第一条改写后的文本
	result, err := p.Evaluate(context.Background(), "  hello  ", types.ScopeInput, guardrails)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", result.Text)
}

func TestPipeline_FailureDoesNotAbort(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("failing", func(types.Guardrail) Check {
		return &stubCheck{name: "failing", valid: false, errTag: ErrTagFailed}
	})
	reg.Register("passing", func(types.Guardrail) Check {
		return &stubCheck{name: "passing", valid: true}
	})
	p := newTestPipeline(t, reg)

	guardrails := []types.Guardrail{
		{Type: "failing"},
		{Type: "passing"},
	}

	result, err := p.Evaluate(context.Background(), "text", types.ScopeInput, guardrails)
	require.NoError(t, err)

	// 单条失败后剩余检查照常执行
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"failing", "passing"}, result.Executed)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, ErrTagFailed, result.Violations[0].Error)
}

func TestPipeline_CheckErrorContinues(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("broken", func(types.Guardrail) Check {
		return &stubCheck{name: "broken", err: errors.New("boom")}
	})
	reg.Register("passing", func(types.Guardrail) Check {
		return &stubCheck{name: "passing", valid: true}
	})
	p := newTestPipeline(t, reg)

	guardrails := []types.Guardrail{
		{Type: "broken"},
		{Type: "passing"},
	}

	result, err := p.Evaluate(context.Background(), "text", types.ScopeInput, guardrails)
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, []string{"broken", "passing"}, result.Executed)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, ErrTagFailed, result.Violations[0].Error)
}

func TestPipeline_CheckErrorNoopTolerated(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("broken", func(types.Guardrail) Check {
		return &stubCheck{name: "broken", err: errors.New("boom")}
	})
	p := newTestPipeline(t, reg)

	guardrails := []types.Guardrail{
		{Type: "broken", OnFail: types.OnFailNoop},
	}

	result, err := p.Evaluate(context.Background(), "text", types.ScopeInput, guardrails)
	require.NoError(t, err)

	// noop 容忍失败：违规仍被记录但不影响有效性
	assert.True(t, result.Valid)
	require.Len(t, result.Violations, 1)
}

func TestPipeline_Timeout(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("slow", func(types.Guardrail) Check {
		return &stubCheck{name: "slow", valid: true, delay: 200 * time.Millisecond}
	})
	reg.Register("never_runs", func(types.Guardrail) Check {
		return &stubCheck{name: "never_runs", valid: true}
	})
	p := NewPipeline(PipelineConfig{Timeout: 20 * time.Millisecond}, reg, nil, nil, zap.NewNop())

	guardrails := []types.Guardrail{
		{Type: "slow"},
		{Type: "never_runs"},
	}

	result, err := p.Evaluate(context.Background(), "text", types.ScopeInput, guardrails)
	require.NoError(t, err)

	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Violations)
	assert.Equal(t, ErrTagTimeout, result.Violations[0].Error)
	assert.NotContains(t, result.Executed, "never_runs")
}

func TestPipeline_ViolationShape(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register("failing", func(types.Guardrail) Check {
		return &stubCheck{name: "failing", valid: false, errTag: ErrTagFailed}
	})
	p := newTestPipeline(t, reg)

	guardrails := []types.Guardrail{
		{Type: "failing", Scope: types.ScopeInput, Params: map[string]any{"api_key": "should-not-leak"}},
	}

	result, err := p.Evaluate(context.Background(), "text", types.ScopeInput, guardrails)
	require.NoError(t, err)

	require.Len(t, result.Violations, 1)
	v := result.Violations[0]
	assert.Equal(t, "failing", v.Type)
	assert.Equal(t, "input", v.Scope)
	assert.Equal(t, ErrTagFailed, v.Error)

	// 违规中的 params 仅保留 on_fail，绝不回传委托参数
	assert.Equal(t, map[string]any{"on_fail": "exception"}, v.Params)
}
