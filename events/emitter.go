package events

import (
	"context"
	"time"

	"github.com/BaSui01/guardflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StartEvent 校验开始事件
type StartEvent struct {
	// ValidationID 本次校验的唯一标识
	ValidationID string `json:"validation_id"`
	// Scope 运行时作用域
	Scope types.GuardrailScope `json:"scope"`
	// Guardrail 即将执行的护栏配置
	Guardrail types.Guardrail `json:"guardrail"`
	// Input 输入文本
	Input string `json:"input"`
	// Timestamp 事件时间
	Timestamp time.Time `json:"timestamp"`
}

// EndEvent 校验结束事件
type EndEvent struct {
	// ValidationID 本次校验的唯一标识
	ValidationID string `json:"validation_id"`
	// Scope 运行时作用域
	Scope types.GuardrailScope `json:"scope"`
	// Guardrail 已执行的护栏配置
	Guardrail types.Guardrail `json:"guardrail"`
	// Input 原始输入文本
	Input string `json:"input"`
	// Result 检查后的文本
	Result string `json:"result"`
	// Valid 本条检查的有效性信号
	Valid bool `json:"valid"`
	// Violations 本条检查产生的违规数量
	Violations int `json:"violations"`
	// Timestamp 事件时间
	Timestamp time.Time `json:"timestamp"`
}

// Sink 事件接收器接口
// 实现方不得阻塞调用方；返回的错误仅用于记录，不会传播。
type Sink interface {
	// OnValidateStart 处理校验开始事件
	OnValidateStart(ctx context.Context, ev *StartEvent) error
	// OnValidateEnd 处理校验结束事件
	OnValidateEnd(ctx context.Context, ev *EndEvent) error
	// Name 返回接收器名称
	Name() string
}

// Emitter 事件发射器
// 将校验开始/结束事件 fire-and-forget 地分发给全部接收器。
// 任何接收器出错只记录日志，绝不影响校验管道。
type Emitter struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewEmitter 创建事件发射器
func NewEmitter(logger *zap.Logger, sinks ...Sink) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{
		sinks:  sinks,
		logger: logger.With(zap.String("component", "event_emitter")),
	}
}

// EmitStart 分发校验开始事件
func (e *Emitter) EmitStart(ctx context.Context, ev *StartEvent) {
	if e == nil || len(e.sinks) == 0 {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	e.fanout(ctx, func(sctx context.Context, s Sink) error { return s.OnValidateStart(sctx, ev) })
}

// EmitEnd 分发校验结束事件
func (e *Emitter) EmitEnd(ctx context.Context, ev *EndEvent) {
	if e == nil || len(e.sinks) == 0 {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	e.fanout(ctx, func(sctx context.Context, s Sink) error { return s.OnValidateEnd(sctx, ev) })
}

// fanout 并发分发到全部接收器，出错仅记录
func (e *Emitter) fanout(ctx context.Context, fn func(context.Context, Sink) error) {
	g, gctx := errgroup.WithContext(ctx)

	for _, sink := range e.sinks {
		sink := sink
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Warn("event sink panicked", zap.String("sink", sink.Name()), zap.Any("panic", r))
				}
			}()
			if err := fn(gctx, sink); err != nil {
				e.logger.Warn("event sink error", zap.String("sink", sink.Name()), zap.Error(err))
			}
			return nil // 接收器错误不终止其他分发
		})
	}
	_ = g.Wait()
}

// ZapSink 日志接收器：将校验事件写入结构化日志
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink 创建日志接收器
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.With(zap.String("component", "guardrail_events"))}
}

// Name 返回接收器名称
func (s *ZapSink) Name() string { return "zap" }

// OnValidateStart 记录校验开始
func (s *ZapSink) OnValidateStart(ctx context.Context, ev *StartEvent) error {
	s.logger.Info("guardrail validate start",
		zap.String("validation_id", ev.ValidationID),
		zap.String("scope", string(ev.Scope)),
		zap.String("type", string(ev.Guardrail.Type)),
		zap.String("hub_id", ev.Guardrail.HubID),
	)
	return nil
}

// OnValidateEnd 记录校验结束
func (s *ZapSink) OnValidateEnd(ctx context.Context, ev *EndEvent) error {
	s.logger.Info("guardrail validate end",
		zap.String("validation_id", ev.ValidationID),
		zap.String("scope", string(ev.Scope)),
		zap.String("type", string(ev.Guardrail.Type)),
		zap.Bool("valid", ev.Valid),
		zap.Int("violations", ev.Violations),
	)
	return nil
}

// SpanSink 追踪接收器：将校验事件附加为当前 span 的事件
type SpanSink struct{}

// NewSpanSink 创建追踪接收器
func NewSpanSink() *SpanSink { return &SpanSink{} }

// Name 返回接收器名称
func (s *SpanSink) Name() string { return "span" }

// OnValidateStart 附加开始事件
func (s *SpanSink) OnValidateStart(ctx context.Context, ev *StartEvent) error {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("guardrail.validate.start", trace.WithAttributes(
		attribute.String("guardrail.validation_id", ev.ValidationID),
		attribute.String("guardrail.type", string(ev.Guardrail.Type)),
		attribute.String("guardrail.scope", string(ev.Scope)),
	))
	return nil
}

// OnValidateEnd 附加结束事件
func (s *SpanSink) OnValidateEnd(ctx context.Context, ev *EndEvent) error {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("guardrail.validate.end", trace.WithAttributes(
		attribute.String("guardrail.validation_id", ev.ValidationID),
		attribute.String("guardrail.type", string(ev.Guardrail.Type)),
		attribute.Bool("guardrail.valid", ev.Valid),
		attribute.Int("guardrail.violations", ev.Violations),
	))
	return nil
}
