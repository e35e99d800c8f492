package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/guardflow/types"
	"go.uber.org/zap"
)

// ErrMissingPattern 正则型护栏缺少 pattern
var ErrMissingPattern = errors.New("pattern is required for regex guardrails")

// reservedKeys 护栏配置的保留字段，不透传给委托能力
var reservedKeys = map[string]struct{}{
	"type":    {},
	"scope":   {},
	"hub_id":  {},
	"pattern": {},
	"on_fail": {},
	"params":  {},
}

// Outcome 归一化后的委托校验结果
type Outcome struct {
	// Text 校验后的文本（能力未改写时为原文本）
	Text string
	// Valid 有效性信号（结果未携带时视为有效）
	Valid bool
	// Meta 结果附带的元数据
	Meta map[string]any
}

// Invoker 委托调用器
// 负责组装透传参数、调用能力并把异构返回形态归一化为 Outcome。
type Invoker struct {
	logger *zap.Logger
}

// NewInvoker 创建委托调用器
func NewInvoker(logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{
		logger: logger.With(zap.String("component", "hub_invoker")),
	}
}

// Invoke 调用委托能力。
// 正则型护栏缺少 pattern 时返回 ErrMissingPattern，不会调用能力。
// 能力实现 panic 会被隔离并转换为普通错误，评估流程不中断。
func (i *Invoker) Invoke(ctx context.Context, c Capability, text string, g types.Guardrail) (outcome *Outcome, err error) {
	if isRegexShaped(g) && g.Pattern == "" {
		return nil, ErrMissingPattern
	}

	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("capability panicked",
				zap.String("capability", c.Name()),
				zap.Any("panic", r),
			)
			outcome = nil
			err = fmt.Errorf("capability %s panicked: %v", c.Name(), r)
		}
	}()

	params := BuildParams(g)
	raw, err := c.Validate(ctx, text, params)
	if err != nil {
		return nil, err
	}

	outcome = Normalize(raw, text)
	i.logger.Debug("capability invoked",
		zap.String("capability", c.Name()),
		zap.Bool("valid", outcome.Valid),
	)
	return outcome, nil
}

// BuildParams 组装透传给能力的参数：
// 非保留字段原样透传，嵌套 params 展开合并，pattern 与 ID 单独映射。
func BuildParams(g types.Guardrail) map[string]any {
	out := make(map[string]any)

	for k, v := range g.Params {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		out[k] = v
	}

	// 嵌套 params 展开到顶层
	if nested, ok := g.Params["params"].(map[string]any); ok {
		for k, v := range nested {
			if _, reserved := reservedKeys[k]; reserved {
				continue
			}
			out[k] = v
		}
	}

	if g.Pattern != "" {
		out["pattern"] = g.Pattern
	}
	if g.ID != "" {
		out["guardrail_id"] = g.ID
	}

	return out
}

// Normalize 将异构返回形态归一化：
//   - 裸字符串：改写后的文本，视为有效
//   - 元组 [text, valid, meta?]：逐位解析
//   - 字典：text/validated_text/output 取文本，
//     valid/is_valid/passed/ok/success 取有效性
//   - 其余形态：原文本 + 有效
//
// 有效性信号缺失时一律视为有效。
func Normalize(raw any, fallback string) *Outcome {
	out := &Outcome{Text: fallback, Valid: true}

	switch v := raw.(type) {
	case nil:
		return out

	case string:
		out.Text = v
		return out

	case bool:
		out.Valid = v
		return out

	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				out.Text = s
			}
		}
		if len(v) > 1 {
			if b, ok := v[1].(bool); ok {
				out.Valid = b
			}
		}
		if len(v) > 2 {
			if m, ok := v[2].(map[string]any); ok {
				out.Meta = m
			}
		}
		return out

	case map[string]any:
		for _, key := range []string{"text", "validated_text", "output"} {
			if s, ok := v[key].(string); ok {
				out.Text = s
				break
			}
		}
		for _, key := range []string{"valid", "is_valid", "passed", "ok", "success"} {
			if b, ok := v[key].(bool); ok {
				out.Valid = b
				break
			}
		}
		out.Meta = v
		return out

	default:
		return out
	}
}

// isRegexShaped 判断护栏是否按正则语义解析
func isRegexShaped(g types.Guardrail) bool {
	return slugBase(g.HubSlug()) == "regex_match" || slugBase(g.HubSlug()) == "regex"
}
