package guardrail

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/guardflow/events"
	"github.com/BaSui01/guardflow/internal/metrics"
	"github.com/BaSui01/guardflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PipelineConfig 管道配置
type PipelineConfig struct {
	// Timeout 单次评估的总超时；零值表示不限制
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultPipelineConfig 返回默认管道配置
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Timeout: 30 * time.Second,
	}
}

// Pipeline 护栏评估管道
// 按配置顺序依次执行作用域匹配的检查，将可能被改写的文本
// 串行传递给后续检查。单条检查失败绝不中止管道，只有请求级
// 超时会提前终止剩余检查。
type Pipeline struct {
	config    PipelineConfig
	registry  *Registry
	emitter   *events.Emitter
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewPipeline 创建评估管道。
// emitter 与 collector 均可为 nil，事件与指标随之关闭。
func NewPipeline(config PipelineConfig, registry *Registry, emitter *events.Emitter, collector *metrics.Collector, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		config:    config,
		registry:  registry,
		emitter:   emitter,
		collector: collector,
		logger:    logger.With(zap.String("component", "guardrail_pipeline")),
	}
}

// Evaluate 对文本执行一次完整评估。
// scope 为运行时作用域（input/output）；不匹配的护栏被跳过。
// 零条护栏时原样返回文本且 Valid=true。
func (p *Pipeline) Evaluate(ctx context.Context, text string, scope types.GuardrailScope, guardrails []types.Guardrail) (*EvaluationResult, error) {
	result := NewEvaluationResult(text)
	if len(guardrails) == 0 {
		return result, nil
	}

	validationID := uuid.NewString()
	started := time.Now()

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	for _, g := range guardrails {
		if !g.EffectiveScope().Matches(scope) {
			continue
		}

		// 超时后不再启动新检查
		if err := ctx.Err(); err != nil {
			p.markTimeout(result, g, validationID)
			break
		}

		check := p.registry.Create(g)
		p.emitStart(ctx, validationID, scope, g, result.Text)

		input := result.Text
		checkStart := time.Now()
		cr, err := check.Run(ctx, input, g)
		elapsed := time.Since(checkStart)

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				p.recordCheck(g, "error", elapsed)
				p.markTimeout(result, g, validationID)
				p.emitEnd(ctx, validationID, scope, g, input, result.Text, false, 1)
				break
			}

			// 检查自身出错：记录违规但继续执行剩余检查
			p.logger.Warn("guardrail check error",
				zap.String("validation_id", validationID),
				zap.String("type", g.TypeKey()),
				zap.Error(err),
			)
			p.recordCheck(g, "error", elapsed)
			v := NewViolation(g, ErrTagFailed)
			if g.EffectiveOnFail() == types.OnFailNoop {
				result.Violations = append(result.Violations, v)
			} else {
				result.Valid = false
				result.Violations = append(result.Violations, v)
			}
			p.recordViolations([]Violation{v})
			result.Executed = append(result.Executed, check.Name())
			p.emitEnd(ctx, validationID, scope, g, input, result.Text, false, 1)
			continue
		}

		outcome := "pass"
		if cr != nil && !cr.Valid {
			outcome = "fail"
		}
		p.recordCheck(g, outcome, elapsed)
		if cr != nil {
			p.recordViolations(cr.Violations)
		}

		result.Merge(cr)
		result.Executed = append(result.Executed, check.Name())

		valid := cr == nil || cr.Valid
		nViolations := 0
		if cr != nil {
			nViolations = len(cr.Violations)
		}
		p.emitEnd(ctx, validationID, scope, g, input, result.Text, valid, nViolations)
	}

	if p.collector != nil {
		p.collector.RecordValidation(string(scope), result.Valid, time.Since(started))
	}

	p.logger.Debug("guardrail evaluation complete",
		zap.String("validation_id", validationID),
		zap.String("scope", string(scope)),
		zap.Bool("valid", result.Valid),
		zap.Int("executed", len(result.Executed)),
		zap.Int("violations", len(result.Violations)),
	)

	return result, nil
}

// markTimeout 追加超时违规并将结果置为无效
func (p *Pipeline) markTimeout(result *EvaluationResult, g types.Guardrail, validationID string) {
	p.logger.Warn("guardrail evaluation timed out",
		zap.String("validation_id", validationID),
		zap.String("type", g.TypeKey()),
	)
	v := NewViolation(g, ErrTagTimeout)
	result.Valid = false
	result.Violations = append(result.Violations, v)
	p.recordViolations([]Violation{v})
}

func (p *Pipeline) emitStart(ctx context.Context, validationID string, scope types.GuardrailScope, g types.Guardrail, input string) {
	if p.emitter == nil {
		return
	}
	p.emitter.EmitStart(ctx, &events.StartEvent{
		ValidationID: validationID,
		Scope:        scope,
		Guardrail:    g,
		Input:        input,
	})
}

func (p *Pipeline) emitEnd(ctx context.Context, validationID string, scope types.GuardrailScope, g types.Guardrail, input, output string, valid bool, violations int) {
	if p.emitter == nil {
		return
	}
	p.emitter.EmitEnd(ctx, &events.EndEvent{
		ValidationID: validationID,
		Scope:        scope,
		Guardrail:    g,
		Input:        input,
		Result:       output,
		Valid:        valid,
		Violations:   violations,
	})
}

func (p *Pipeline) recordCheck(g types.Guardrail, outcome string, elapsed time.Duration) {
	if p.collector == nil {
		return
	}
	p.collector.RecordCheck(g.TypeKey(), outcome, elapsed)
}

func (p *Pipeline) recordViolations(vs []Violation) {
	if p.collector == nil {
		return
	}
	for _, v := range vs {
		p.collector.RecordViolation(v.Error)
	}
}
