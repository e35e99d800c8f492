package guardrail

import (
	"context"
	"testing"

	"github.com/BaSui01/guardflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// 属性：检测类检查对任意输入只观测不改写,且匹配偏移始终指向原文
func TestProperty_PIICheck_DetectionOffsets(t *testing.T) {
	check := NewPIICheck(zap.NewNop())

	rapid.Check(t, func(rt *rapid.T) {
		// 生成随机邮箱
		emailUser := rapid.StringMatching(`[a-z]{3,10}`).Draw(rt, "emailUser")
		emailDomain := rapid.StringMatching(`[a-z]{3,8}`).Draw(rt, "emailDomain")
		email := emailUser + "@" + emailDomain + ".com"

		// 生成周围文本（不含 @ 与 PII 形态）
		prefix := rapid.StringMatching(`[a-z ]{0,20}`).Draw(rt, "prefix")
		suffix := rapid.StringMatching(`[a-z ]{0,20}`).Draw(rt, "suffix")
		text := prefix + " " + email + " " + suffix

		g := types.Guardrail{Type: types.TypeDetectPII}
		result, err := check.Run(context.Background(), text, g)
		require.NoError(rt, err)

		// 检测类检查永远有效且不改写文本
		assert.True(rt, result.Valid, "detection must never invalidate: %s", text)
		assert.Equal(rt, text, result.Text)

		// 至少检出该邮箱
		require.NotEmpty(rt, result.Matches, "should detect email: %s", email)

		// 每个匹配的偏移必须切出其 Value
		for _, m := range result.Matches {
			require.GreaterOrEqual(rt, m.Start, 0)
			require.LessOrEqual(rt, m.End, len(text))
			assert.Equal(rt, m.Value, text[m.Start:m.End])
		}
	})
}

// 属性：词表解析结果均为非空小写词项,且每个词项都出现在原始模式中
func TestProperty_ParseTerms_Normalization(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		pattern := ""
		for i := 0; i < n; i++ {
			word := rapid.StringMatching(`[ ]{0,2}[A-Za-z]{0,6}[ ]{0,2}`).Draw(rt, "word")
			if i > 0 {
				pattern += ","
			}
			pattern += word
		}

		terms := ParseTerms(pattern)
		for _, term := range terms {
			assert.NotEmpty(rt, term)
			assert.Equal(rt, term, termLower(term))
			assert.NotContains(rt, term, ",")
			assert.NotContains(rt, term, "\n")
		}
	})
}

func termLower(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
