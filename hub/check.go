package hub

import (
	"context"
	"regexp"
	"strings"

	"github.com/BaSui01/guardflow/guardrail"
	"github.com/BaSui01/guardflow/types"
	"go.uber.org/zap"
)

// HubCheck 委托型护栏检查
// 解析护栏对应的委托能力并调用；解析失败、调用失败与结果无效
// 分别映射为不同的违规标签。on_fail="noop" 仅容忍执行失败类违规。
type HubCheck struct {
	resolver *Resolver
	invoker  *Invoker
	logger   *zap.Logger

	// localFirst 正则型护栏优先走本地实现，不经解析
	localFirst bool
}

// NewHubCheck 创建委托型护栏检查
func NewHubCheck(resolver *Resolver, invoker *Invoker, logger *zap.Logger) *HubCheck {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HubCheck{
		resolver: resolver,
		invoker:  invoker,
		logger:   logger.With(zap.String("component", "hub_check")),
	}
}

// WithLocalFirst 设置正则型护栏默认优先本地执行
func (c *HubCheck) WithLocalFirst(localFirst bool) *HubCheck {
	c.localFirst = localFirst
	return c
}

// Name 返回检查名称
func (c *HubCheck) Name() string { return "hub_check" }

// Run 执行委托校验
func (c *HubCheck) Run(ctx context.Context, text string, g types.Guardrail) (*guardrail.CheckResult, error) {
	result := guardrail.NewCheckResult(text)

	// 正则型护栏可配置为优先本地执行
	if c.useLocalFirst(g) && isRegexShaped(g) && strings.TrimSpace(g.Pattern) != "" {
		c.runLocalRegex(result, text, g)
		return result, nil
	}

	capability, strategy, found := c.resolver.Resolve(ctx, g)
	if !found {
		// 未解析到委托时，正则形态的护栏退化为本地正则
		if isRegexShaped(g) && strings.TrimSpace(g.Pattern) != "" {
			c.runLocalRegex(result, text, g)
			return result, nil
		}

		c.logger.Warn("validator not found",
			zap.String("slug", g.HubSlug()),
			zap.String("type", g.TypeKey()),
		)
		c.addViolation(result, g, guardrail.ErrTagNotFound)
		return result, nil
	}

	outcome, err := c.invoker.Invoke(ctx, capability, text, g)
	if err != nil {
		if err == ErrMissingPattern {
			c.addViolation(result, g, guardrail.ErrTagMissingPattern)
			return result, nil
		}

		c.logger.Warn("capability invocation failed",
			zap.String("capability", capability.Name()),
			zap.String("strategy", strategy),
			zap.Error(err),
		)
		c.addViolation(result, g, guardrail.ErrTagFailed)
		return result, nil
	}

	result.Text = outcome.Text
	for k, v := range outcome.Meta {
		result.Metadata[k] = v
	}
	if !outcome.Valid {
		c.addViolation(result, g, guardrail.ErrTagFailed)
	}

	return result, nil
}

// runLocalRegex 本地正则兜底：
// 模式非法 → 编译错误违规；不命中 → 校验失败违规。
func (c *HubCheck) runLocalRegex(result *guardrail.CheckResult, text string, g types.Guardrail) {
	rx, err := regexp.Compile(g.Pattern)
	if err != nil {
		c.logger.Warn("local regex compile failed",
			zap.String("pattern", g.Pattern),
			zap.Error(err),
		)
		c.addViolation(result, g, guardrail.ErrTagRegexCompileError)
		return
	}

	result.Metadata["local_regex"] = true
	if !rx.MatchString(text) {
		c.addViolation(result, g, guardrail.ErrTagFailed)
	}
}

// addViolation 按 on_fail 语义追加违规。
// noop 仅容忍执行失败类违规；缺少 pattern、找不到校验器
// 与正则编译错误属于配置问题，无条件判无效。
func (c *HubCheck) addViolation(result *guardrail.CheckResult, g types.Guardrail, errTag string) {
	v := guardrail.NewViolation(g, errTag)
	if errTag == guardrail.ErrTagFailed && g.EffectiveOnFail() == types.OnFailNoop {
		result.AddToleratedViolation(v)
		return
	}
	result.AddViolation(v)
}

// useLocalFirst 读取本地优先开关：描述符参数优先于检查级默认值
func (c *HubCheck) useLocalFirst(g types.Guardrail) bool {
	if g.Params != nil {
		switch v := g.Params["use_local_first"].(type) {
		case bool:
			return v
		case string:
			return strings.EqualFold(v, "true")
		}
	}
	return c.localFirst
}

// delegateTypes 委托型护栏类型集合
var delegateTypes = []types.GuardrailType{
	types.TypeRegexMatch,
	types.TypeValidJSON,
	types.TypeValidURL,
	types.TypeToxicLanguage,
	types.TypeCompetitorCheck,
}

// IsDelegate 判断护栏是否为委托型（由 HubCheck 处理）
func IsDelegate(g types.Guardrail) bool {
	key := g.TypeKey()
	for _, t := range delegateTypes {
		if key == string(t) {
			return true
		}
	}
	return false
}

// RegisterHubChecks 将委托型护栏类型注册到检查注册表。
// 同一个 HubCheck 实例服务全部委托类型，按描述符逐次解析。
func RegisterHubChecks(reg *guardrail.Registry, check *HubCheck) {
	factory := func(types.Guardrail) guardrail.Check { return check }

	for _, t := range delegateTypes {
		reg.Register(string(t), factory)
	}
}
