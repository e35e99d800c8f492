// Package mocks 提供测试用的可编排替身实现。
package mocks

import (
	"context"
	"sync"
)

// ScriptedCapability 是可编排的委托能力替身。
// Result/Err 在 Validate 时原样返回，并记录每次调用。
type ScriptedCapability struct {
	CapName string
	Result  any
	Err     error

	mu    sync.Mutex
	calls []CapabilityCall
}

// CapabilityCall 单次调用记录
type CapabilityCall struct {
	Text   string
	Params map[string]any
}

// NewScriptedCapability 创建返回固定结果的能力替身
func NewScriptedCapability(name string, result any) *ScriptedCapability {
	return &ScriptedCapability{CapName: name, Result: result}
}

// Name 返回能力名称
func (c *ScriptedCapability) Name() string { return c.CapName }

// Validate 记录调用并返回预设结果
func (c *ScriptedCapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	c.mu.Lock()
	c.calls = append(c.calls, CapabilityCall{Text: text, Params: params})
	c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	return c.Result, nil
}

// Calls 返回调用记录副本
func (c *ScriptedCapability) Calls() []CapabilityCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CapabilityCall, len(c.calls))
	copy(out, c.calls)
	return out
}
