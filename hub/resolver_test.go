package hub

import (
	"context"
	"testing"

	"github.com/BaSui01/guardflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNameCandidates(t *testing.T) {
	tests := []struct {
		name string
		slug string
		want []string
	}{
		{
			name: "aliased slug",
			slug: "regex_match",
			want: []string{"RegexMatch", "regex_match", "RegexMatch"},
		},
		{
			name: "namespaced slug",
			slug: "guardrails/regex_match",
			want: []string{"RegexMatch", "regex_match", "RegexMatch"},
		},
		{
			name: "unknown slug",
			slug: "custom_thing",
			want: []string{"custom_thing", "CustomThing"},
		},
		{
			name: "empty",
			slug: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nameCandidates(tt.slug))
		})
	}
}

func TestSnakeToPascal(t *testing.T) {
	assert.Equal(t, "RegexMatch", snakeToPascal("regex_match"))
	assert.Equal(t, "ValidJson", snakeToPascal("valid_json"))
	assert.Equal(t, "Pii", snakeToPascal("pii"))
	assert.Equal(t, "AB", snakeToPascal("a__b"))
}

func TestResolver_Builtins(t *testing.T) {
	r := NewResolver(nil, nil, zap.NewNop())

	tests := []struct {
		guardrail types.Guardrail
		wantName  string
	}{
		{types.Guardrail{Type: types.TypeRegexMatch}, "RegexMatch"},
		{types.Guardrail{Type: types.TypeValidJSON}, "ValidJson"},
		{types.Guardrail{Type: types.TypeValidURL}, "ValidURL"},
		{types.Guardrail{Type: types.TypeToxicLanguage}, "ToxicLanguage"},
		{types.Guardrail{Type: types.TypeCompetitorCheck}, "CompetitorCheck"},
		{types.Guardrail{HubID: "guardrails/detect_pii"}, "DetectPII"},
	}

	for _, tt := range tests {
		c, strategy, found := r.Resolve(context.Background(), tt.guardrail)
		require.True(t, found, "should resolve %s", tt.guardrail.HubSlug())
		assert.Equal(t, StrategyBuiltin, strategy)
		assert.Equal(t, tt.wantName, c.Name())
	}
}

func TestResolver_HubIDPreferred(t *testing.T) {
	r := NewResolver(nil, nil, zap.NewNop())

	// hub_id 优先于护栏类型参与解析
	g := types.Guardrail{Type: types.TypeValidJSON, HubID: "guardrails/regex_match"}
	c, _, found := r.Resolve(context.Background(), g)
	require.True(t, found)
	assert.Equal(t, "RegexMatch", c.Name())
}

func TestResolver_NotFound(t *testing.T) {
	r := NewResolver(nil, nil, zap.NewNop())

	// 未知槽位且无远端目录：未命中但不报错
	_, _, found := r.Resolve(context.Background(), types.Guardrail{Type: "definitely_unknown"})
	assert.False(t, found)

	// 空槽位
	_, _, found = r.Resolve(context.Background(), types.Guardrail{})
	assert.False(t, found)
}

func TestResolver_Plugin(t *testing.T) {
	r := NewResolver(nil, nil, zap.NewNop())

	plugin := &stubCapability{name: "CustomPlugin", result: map[string]any{"valid": true}}
	r.RegisterPlugin("vendor/custom_thing", plugin)

	c, strategy, found := r.Resolve(context.Background(), types.Guardrail{HubID: "custom_thing"})
	require.True(t, found)
	assert.Equal(t, StrategyPlugin, strategy)
	assert.Equal(t, "CustomPlugin", c.Name())
}

func TestResolver_BuiltinShadowsPlugin(t *testing.T) {
	r := NewResolver(nil, nil, zap.NewNop())
	r.RegisterPlugin("regex_match", &stubCapability{name: "ShadowAttempt"})

	c, strategy, found := r.Resolve(context.Background(), types.Guardrail{Type: types.TypeRegexMatch})
	require.True(t, found)
	assert.Equal(t, StrategyBuiltin, strategy)
	assert.Equal(t, "RegexMatch", c.Name())
}

// stubCapability 测试用能力
type stubCapability struct {
	name   string
	result any
	err    error
}

func (s *stubCapability) Name() string { return s.name }

func (s *stubCapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	return s.result, s.err
}
