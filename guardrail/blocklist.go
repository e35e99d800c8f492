package guardrail

import (
	"context"
	"regexp"
	"strings"

	"github.com/BaSui01/guardflow/types"
	"go.uber.org/zap"
)

// BlocklistCheck 屏蔽词检测检查
// 对每个词先做整词匹配，整词无命中时再做子串兜底，
// 以覆盖多词短语或紧邻标点的情况。仅做检测，不改写文本。
type BlocklistCheck struct {
	logger *zap.Logger
}

// NewBlocklistCheck 创建屏蔽词检测检查
func NewBlocklistCheck(logger *zap.Logger) *BlocklistCheck {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlocklistCheck{
		logger: logger.With(zap.String("component", "blocklist_check")),
	}
}

// Name 返回检查名称
func (c *BlocklistCheck) Name() string { return "blocklist_check" }

// Run 执行屏蔽词检测
func (c *BlocklistCheck) Run(ctx context.Context, text string, g types.Guardrail) (*CheckResult, error) {
	result := NewCheckResult(text)

	terms := ParseTerms(g.Pattern)
	c.logger.Info("executing blocklist check",
		zap.Int("terms", len(terms)),
		zap.String("scope", string(g.EffectiveScope())),
	)
	if len(terms) == 0 {
		return result, nil
	}

	lowerText := strings.ToLower(text)
	var matches []Match

	for _, term := range terms {
		// 整词匹配
		rx, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		var termMatches []Match
		if err == nil {
			termMatches = findAllMatches(rx, text, "")
		}

		// 整词无命中时退化为子串匹配
		if len(termMatches) == 0 {
			if idx := strings.Index(lowerText, term); idx >= 0 {
				termMatches = append(termMatches, Match{
					Start: idx,
					End:   idx + len(term),
					Value: text[idx : idx+len(term)],
				})
			}
		}
		matches = append(matches, termMatches...)
	}

	result.Matches = matches
	result.Metadata["type"] = "blocklist"
	result.Metadata["match_count"] = len(matches)

	if enforced(g) && len(matches) > 0 {
		result.AddViolation(NewViolation(g, ErrTagFailed))
	}

	return result, nil
}

// ParseTerms 将逗号/换行分隔的词表解析为小写词项
func ParseTerms(pattern string) []string {
	var terms []string
	for _, raw := range strings.FieldsFunc(pattern, func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		if term := strings.ToLower(strings.TrimSpace(raw)); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}
