package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/guardflow/events"
)

// RecordingSink 记录收到的校验事件，供事件链路断言使用
type RecordingSink struct {
	mu     sync.Mutex
	starts []*events.StartEvent
	ends   []*events.EndEvent

	// Err 非空时每次回调返回该错误，用于验证发射器的错误隔离
	Err error
}

// NewRecordingSink 创建事件记录替身
func NewRecordingSink() *RecordingSink { return &RecordingSink{} }

// Name 返回 sink 名称
func (s *RecordingSink) Name() string { return "recording" }

// OnValidateStart 记录校验开始事件
func (s *RecordingSink) OnValidateStart(ctx context.Context, ev *events.StartEvent) error {
	s.mu.Lock()
	s.starts = append(s.starts, ev)
	s.mu.Unlock()
	return s.Err
}

// OnValidateEnd 记录校验结束事件
func (s *RecordingSink) OnValidateEnd(ctx context.Context, ev *events.EndEvent) error {
	s.mu.Lock()
	s.ends = append(s.ends, ev)
	s.mu.Unlock()
	return s.Err
}

// Starts 返回开始事件副本
func (s *RecordingSink) Starts() []*events.StartEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*events.StartEvent, len(s.starts))
	copy(out, s.starts)
	return out
}

// Ends 返回结束事件副本
func (s *RecordingSink) Ends() []*events.EndEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*events.EndEvent, len(s.ends))
	copy(out, s.ends)
	return out
}
