package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/guardflow/types"
)

func TestValidatorConfig_ToGuardrail(t *testing.T) {
	tests := []struct {
		name string
		cfg  ValidatorConfig
		want types.Guardrail
	}{
		{
			name: "explicit regex type",
			cfg: ValidatorConfig{
				Type:    "regex_match",
				Scope:   "input",
				Pattern: "^[a-z]+$",
			},
			want: types.Guardrail{
				Type:    types.TypeRegexMatch,
				Scope:   types.ScopeInput,
				HubID:   "guardrails/regex_match",
				Pattern: "^[a-z]+$",
			},
		},
		{
			name: "type inferred from UI label",
			cfg: ValidatorConfig{
				Validator: "Regex Match (Custom)",
				Pattern:   "Alice",
			},
			want: types.Guardrail{
				Type:    types.TypeRegexMatch,
				Scope:   types.ScopeBoth,
				HubID:   "guardrails/regex_match",
				Pattern: "Alice",
			},
		},
		{
			name: "url inferred from name alias",
			cfg: ValidatorConfig{
				Name:  "Valid URL",
				Scope: "output",
			},
			want: types.Guardrail{
				Type:  types.TypeValidURL,
				Scope: types.ScopeOutput,
			},
		},
		{
			name: "pattern quotes stripped",
			cfg: ValidatorConfig{
				Type:    "regex",
				Pattern: `  "^\d+$"  `,
			},
			want: types.Guardrail{
				Type:    "regex",
				Scope:   types.ScopeBoth,
				HubID:   "guardrails/regex_match",
				Pattern: `^\d+$`,
			},
		},
		{
			name: "pattern dropped for non-regex delegate",
			cfg: ValidatorConfig{
				Type:    "valid_json",
				Pattern: "should-not-survive",
			},
			want: types.Guardrail{
				Type:  types.TypeValidJSON,
				Scope: types.ScopeBoth,
			},
		},
		{
			name: "pattern kept for blocklist terms",
			cfg: ValidatorConfig{
				Type:    "blocklist",
				Pattern: "foo,bar",
			},
			want: types.Guardrail{
				Type:    types.TypeBlocklist,
				Scope:   types.ScopeBoth,
				Pattern: "foo,bar",
			},
		},
		{
			name: "pattern kept for regex hub_id suffix",
			cfg: ValidatorConfig{
				Type:    "custom",
				HubID:   "acme/regex",
				Pattern: "x+",
			},
			want: types.Guardrail{
				Type:    "custom",
				Scope:   types.ScopeBoth,
				HubID:   "acme/regex",
				Pattern: "x+",
			},
		},
		{
			name: "on_fail forwarded",
			cfg: ValidatorConfig{
				Type:   "toxic_language",
				OnFail: "noop",
			},
			want: types.Guardrail{
				Type:   types.TypeToxicLanguage,
				Scope:  types.ScopeBoth,
				OnFail: "noop",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.ToGuardrail()
			assert.Equal(t, tt.want.Type, got.Type)
			assert.Equal(t, tt.want.Scope, got.Scope)
			assert.Equal(t, tt.want.HubID, got.HubID)
			assert.Equal(t, tt.want.Pattern, got.Pattern)
			assert.Equal(t, tt.want.OnFail, got.OnFail)
		})
	}
}

func TestValidatorConfig_ToGuardrail_ParamsCopied(t *testing.T) {
	cfg := ValidatorConfig{
		Type:   "competitor_check",
		Params: map[string]any{"competitors": []any{"acme"}},
	}

	g := cfg.ToGuardrail()
	require.NotNil(t, g.Params)
	assert.Equal(t, []any{"acme"}, g.Params["competitors"])

	// 转换后的参数与原请求解耦
	g.Params["competitors"] = nil
	assert.Equal(t, []any{"acme"}, cfg.Params["competitors"])
}

func TestValidateRequest_EffectiveText(t *testing.T) {
	assert.Equal(t, "hello", ValidateRequest{Text: "hello"}.EffectiveText())
	assert.Equal(t, "legacy", ValidateRequest{UserInput: "legacy"}.EffectiveText())
	assert.Equal(t, "new", ValidateRequest{Text: "new", UserInput: "legacy"}.EffectiveText())
	assert.Empty(t, ValidateRequest{}.EffectiveText())
}

func TestValidateRequest_EffectiveScope(t *testing.T) {
	assert.Equal(t, types.ScopeInput, ValidateRequest{Scope: "Input"}.EffectiveScope())
	assert.Equal(t, types.ScopeBoth, ValidateRequest{}.EffectiveScope())
	assert.Equal(t, types.ScopeBoth, ValidateRequest{Scope: "weird"}.EffectiveScope())
}

func TestValidateRequest_Guardrails_UseLocalFirst(t *testing.T) {
	useLocal := false
	req := ValidateRequest{
		Validators: []ValidatorConfig{
			{Type: "regex_match", Pattern: "a"},
			{Type: "detect_pii"},
		},
		UseLocalFirst: &useLocal,
	}

	gs := req.Guardrails()
	require.Len(t, gs, 2)
	for _, g := range gs {
		require.NotNil(t, g.Params)
		assert.Equal(t, false, g.Params["use_local_first"])
	}

	// 缺省时不注入参数
	req.UseLocalFirst = nil
	for _, g := range req.Guardrails() {
		assert.Nil(t, g.Params)
	}
}
