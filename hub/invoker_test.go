package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/guardflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildParams(t *testing.T) {
	tests := []struct {
		name      string
		guardrail types.Guardrail
		want      map[string]any
	}{
		{
			name: "reserved keys filtered",
			guardrail: types.Guardrail{
				Params: map[string]any{
					"type":      "x",
					"scope":     "x",
					"hub_id":    "x",
					"on_fail":   "x",
					"threshold": 0.8,
				},
			},
			want: map[string]any{"threshold": 0.8},
		},
		{
			name: "nested params flattened",
			guardrail: types.Guardrail{
				Params: map[string]any{
					"params": map[string]any{"competitors": []any{"acme"}, "type": "x"},
				},
			},
			want: map[string]any{"competitors": []any{"acme"}},
		},
		{
			name: "pattern and id forwarded",
			guardrail: types.Guardrail{
				ID:      "g-1",
				Pattern: `\d+`,
			},
			want: map[string]any{"pattern": `\d+`, "guardrail_id": "g-1"},
		},
		{
			name:      "empty guardrail",
			guardrail: types.Guardrail{},
			want:      map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildParams(tt.guardrail))
		})
	}
}

func TestInvoker_MissingPattern(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	cap := &stubCapability{name: "RegexMatch", result: []any{"text", true}}

	g := types.Guardrail{Type: types.TypeRegexMatch}
	_, err := inv.Invoke(context.Background(), cap, "text", g)
	assert.ErrorIs(t, err, ErrMissingPattern)
}

func TestInvoker_CapabilityError(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	cap := &stubCapability{name: "Broken", err: errors.New("boom")}

	_, err := inv.Invoke(context.Background(), cap, "text", types.Guardrail{Type: types.TypeValidJSON})
	assert.Error(t, err)
}

// panicCapability 测试用能力：调用即 panic
type panicCapability struct{}

func (p *panicCapability) Name() string { return "Panicker" }

func (p *panicCapability) Validate(ctx context.Context, text string, params map[string]any) (any, error) {
	panic("delegate blew up")
}

func TestInvoker_CapabilityPanicIsolated(t *testing.T) {
	inv := NewInvoker(zap.NewNop())

	outcome, err := inv.Invoke(context.Background(), &panicCapability{}, "text", types.Guardrail{Type: types.TypeValidJSON})
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Contains(t, err.Error(), "panicked")
}

func TestInvoker_Invoke(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	cap := &stubCapability{name: "Rewriter", result: []any{"rewritten", false}}

	outcome, err := inv.Invoke(context.Background(), cap, "original", types.Guardrail{Type: types.TypeToxicLanguage})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", outcome.Text)
	assert.False(t, outcome.Valid)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		raw       any
		wantText  string
		wantValid bool
	}{
		{
			name:      "nil is valid passthrough",
			raw:       nil,
			wantText:  "fallback",
			wantValid: true,
		},
		{
			name:      "bare string rewrites text",
			raw:       "masked text",
			wantText:  "masked text",
			wantValid: true,
		},
		{
			name:      "bare bool sets validity",
			raw:       false,
			wantText:  "fallback",
			wantValid: false,
		},
		{
			name:      "tuple text and validity",
			raw:       []any{"new text", false},
			wantText:  "new text",
			wantValid: false,
		},
		{
			name:      "tuple missing validity defaults valid",
			raw:       []any{"new text"},
			wantText:  "new text",
			wantValid: true,
		},
		{
			name:      "tuple non-string head keeps fallback",
			raw:       []any{42, true},
			wantText:  "fallback",
			wantValid: true,
		},
		{
			name:      "empty tuple",
			raw:       []any{},
			wantText:  "fallback",
			wantValid: true,
		},
		{
			name:      "map with text and valid",
			raw:       map[string]any{"text": "t", "valid": false},
			wantText:  "t",
			wantValid: false,
		},
		{
			name:      "map validated_text key",
			raw:       map[string]any{"validated_text": "vt"},
			wantText:  "vt",
			wantValid: true,
		},
		{
			name:      "map output key",
			raw:       map[string]any{"output": "o", "is_valid": true},
			wantText:  "o",
			wantValid: true,
		},
		{
			name:      "map passed key",
			raw:       map[string]any{"passed": false},
			wantText:  "fallback",
			wantValid: false,
		},
		{
			name:      "map ok key",
			raw:       map[string]any{"ok": false},
			wantText:  "fallback",
			wantValid: false,
		},
		{
			name:      "map success key",
			raw:       map[string]any{"success": true},
			wantText:  "fallback",
			wantValid: true,
		},
		{
			name:      "map without validity key is valid",
			raw:       map[string]any{"note": "hi"},
			wantText:  "fallback",
			wantValid: true,
		},
		{
			name:      "first validity key wins",
			raw:       map[string]any{"valid": true, "passed": false},
			wantText:  "fallback",
			wantValid: true,
		},
		{
			name:      "unsupported shape is valid passthrough",
			raw:       42,
			wantText:  "fallback",
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(tt.raw, "fallback")
			assert.Equal(t, tt.wantText, out.Text)
			assert.Equal(t, tt.wantValid, out.Valid)
		})
	}
}

func TestNormalize_TupleMeta(t *testing.T) {
	out := Normalize([]any{"t", true, map[string]any{"matched": "x"}}, "fallback")
	require.NotNil(t, out.Meta)
	assert.Equal(t, "x", out.Meta["matched"])
}
