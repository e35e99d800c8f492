package guardrail

import (
	"context"
	"regexp"
	"strings"

	"github.com/BaSui01/guardflow/types"
	"go.uber.org/zap"
)

// RegexCheck 正则检测检查
// 仅做检测，不改写文本；匹配详情记录在结果元数据中。
type RegexCheck struct {
	logger *zap.Logger
}

// NewRegexCheck 创建正则检测检查
func NewRegexCheck(logger *zap.Logger) *RegexCheck {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegexCheck{
		logger: logger.With(zap.String("component", "regex_check")),
	}
}

// Name 返回检查名称
func (c *RegexCheck) Name() string { return "regex_check" }

// Run 执行正则检测
// 模式按大小写不敏感、多行方式编译；非法模式按零匹配处理，不会崩溃。
func (c *RegexCheck) Run(ctx context.Context, text string, g types.Guardrail) (*CheckResult, error) {
	result := NewCheckResult(text)

	pattern := strings.TrimSpace(g.Pattern)
	if pattern == "" {
		return result, nil
	}

	rx, err := regexp.Compile("(?im)" + pattern)
	if err != nil {
		// 用户提供的模式非法时不中断管道
		c.logger.Warn("invalid regex pattern, treated as zero matches",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		result.Metadata["regex_compile_error"] = err.Error()
		return result, nil
	}

	matches := findAllMatches(rx, text, "")
	result.Matches = matches
	result.Metadata["type"] = "regex"
	result.Metadata["match_count"] = len(matches)

	if enforced(g) && len(matches) > 0 {
		result.AddViolation(NewViolation(g, ErrTagFailed))
	}

	return result, nil
}

// findAllMatches 收集全部匹配区间
func findAllMatches(rx *regexp.Regexp, text, piiType string) []Match {
	var matches []Match
	for _, loc := range rx.FindAllStringIndex(text, -1) {
		matches = append(matches, Match{
			Start: loc[0],
			End:   loc[1],
			Value: text[loc[0]:loc[1]],
			Type:  piiType,
		})
	}
	return matches
}
