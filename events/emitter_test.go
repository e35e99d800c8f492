package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/BaSui01/guardflow/types"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// recordingSink 测试用接收器
type recordingSink struct {
	mu     sync.Mutex
	starts []*StartEvent
	ends   []*EndEvent
	err    error
	panics bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) OnValidateStart(ctx context.Context, ev *StartEvent) error {
	if s.panics {
		panic("sink panic")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, ev)
	return s.err
}

func (s *recordingSink) OnValidateEnd(ctx context.Context, ev *EndEvent) error {
	if s.panics {
		panic("sink panic")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ends = append(s.ends, ev)
	return s.err
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.starts), len(s.ends)
}

func TestEmitter_FanOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	emitter := NewEmitter(zap.NewNop(), a, b)

	ctx := context.Background()
	g := types.Guardrail{Type: types.TypeDetectPII}

	emitter.EmitStart(ctx, &StartEvent{ValidationID: "v1", Scope: types.ScopeInput, Guardrail: g, Input: "hello"})
	emitter.EmitEnd(ctx, &EndEvent{ValidationID: "v1", Scope: types.ScopeInput, Guardrail: g, Input: "hello", Result: "hello", Valid: true})

	for _, sink := range []*recordingSink{a, b} {
		starts, ends := sink.counts()
		assert.Equal(t, 1, starts)
		assert.Equal(t, 1, ends)
	}
}

func TestEmitter_TimestampFilled(t *testing.T) {
	sink := &recordingSink{}
	emitter := NewEmitter(zap.NewNop(), sink)

	emitter.EmitStart(context.Background(), &StartEvent{ValidationID: "v1"})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.False(t, sink.starts[0].Timestamp.IsZero())
}

func TestEmitter_SinkErrorIsolated(t *testing.T) {
	failing := &recordingSink{err: errors.New("sink down")}
	healthy := &recordingSink{}
	emitter := NewEmitter(zap.NewNop(), failing, healthy)

	// 出错的接收器不影响其他接收器
	emitter.EmitEnd(context.Background(), &EndEvent{ValidationID: "v1"})

	_, ends := healthy.counts()
	assert.Equal(t, 1, ends)
}

func TestEmitter_SinkPanicRecovered(t *testing.T) {
	panicking := &recordingSink{panics: true}
	healthy := &recordingSink{}
	emitter := NewEmitter(zap.NewNop(), panicking, healthy)

	assert.NotPanics(t, func() {
		emitter.EmitStart(context.Background(), &StartEvent{ValidationID: "v1"})
	})

	starts, _ := healthy.counts()
	assert.Equal(t, 1, starts)
}

func TestEmitter_NoSinks(t *testing.T) {
	emitter := NewEmitter(zap.NewNop())

	assert.NotPanics(t, func() {
		emitter.EmitStart(context.Background(), &StartEvent{ValidationID: "v1"})
		emitter.EmitEnd(context.Background(), &EndEvent{ValidationID: "v1"})
	})
}

func TestZapSink(t *testing.T) {
	sink := NewZapSink(zap.NewNop())
	g := types.Guardrail{Type: types.TypeBlocklist}

	assert.NoError(t, sink.OnValidateStart(context.Background(), &StartEvent{ValidationID: "v1", Guardrail: g}))
	assert.NoError(t, sink.OnValidateEnd(context.Background(), &EndEvent{ValidationID: "v1", Guardrail: g, Valid: false, Violations: 2}))
}

func TestSpanSink_NoActiveSpan(t *testing.T) {
	sink := NewSpanSink()
	g := types.Guardrail{Type: types.TypeRegexMatch}

	// 无活跃 span 时为 no-op span，不应崩溃
	assert.NoError(t, sink.OnValidateStart(context.Background(), &StartEvent{ValidationID: "v1", Guardrail: g}))
	assert.NoError(t, sink.OnValidateEnd(context.Background(), &EndEvent{ValidationID: "v1", Guardrail: g}))
}
