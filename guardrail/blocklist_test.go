package guardrail

import (
	"context"
	"testing"

	"github.com/BaSui01/guardflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseTerms(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{
			name:    "comma separated",
			pattern: "foo,bar,baz",
			want:    []string{"foo", "bar", "baz"},
		},
		{
			name:    "newline separated",
			pattern: "foo\nbar",
			want:    []string{"foo", "bar"},
		},
		{
			name:    "mixed separators with whitespace",
			pattern: " foo , bar \n baz ",
			want:    []string{"foo", "bar", "baz"},
		},
		{
			name:    "lowercased",
			pattern: "Foo,BAR",
			want:    []string{"foo", "bar"},
		},
		{
			name:    "empty entries dropped",
			pattern: "foo,,bar,",
			want:    []string{"foo", "bar"},
		},
		{
			name:    "empty pattern",
			pattern: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTerms(tt.pattern))
		})
	}
}

func TestBlocklistCheck_Run(t *testing.T) {
	check := NewBlocklistCheck(zap.NewNop())

	tests := []struct {
		name        string
		pattern     string
		text        string
		wantMatches int
	}{
		{
			name:        "whole word match",
			pattern:     "secret",
			text:        "the secret plan",
			wantMatches: 1,
		},
		{
			name:        "case insensitive whole word",
			pattern:     "secret",
			text:        "the SECRET plan",
			wantMatches: 1,
		},
		{
			name:        "substring fallback when no word boundary hit",
			pattern:     "foo,bar",
			text:        "I like foo and barstool",
			wantMatches: 2,
		},
		{
			name:        "multi word phrase",
			pattern:     "insider trading",
			text:        "discussing insider trading here",
			wantMatches: 1,
		},
		{
			name:        "no match",
			pattern:     "secret",
			text:        "nothing here",
			wantMatches: 0,
		},
		{
			name:        "empty term list",
			pattern:     "",
			text:        "anything",
			wantMatches: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := types.Guardrail{Type: types.TypeBlocklist, Pattern: tt.pattern}
			result, err := check.Run(context.Background(), tt.text, g)
			require.NoError(t, err)

			assert.True(t, result.Valid)
			assert.Equal(t, tt.text, result.Text)
			assert.Len(t, result.Matches, tt.wantMatches)
		})
	}
}

func TestBlocklistCheck_WholeWordPreferred(t *testing.T) {
	check := NewBlocklistCheck(zap.NewNop())
	g := types.Guardrail{Type: types.TypeBlocklist, Pattern: "bar"}

	// "bar" 整词出现两次时，不应再追加子串兜底
	result, err := check.Run(context.Background(), "bar and bar again", g)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 2)
}

func TestBlocklistCheck_SubstringOffsets(t *testing.T) {
	check := NewBlocklistCheck(zap.NewNop())
	g := types.Guardrail{Type: types.TypeBlocklist, Pattern: "stool"}

	result, err := check.Run(context.Background(), "the barstool", g)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)

	m := result.Matches[0]
	assert.Equal(t, "stool", "the barstool"[m.Start:m.End])
}

func TestBlocklistCheck_Enforced(t *testing.T) {
	check := NewBlocklistCheck(zap.NewNop())
	g := types.Guardrail{
		Type:    types.TypeBlocklist,
		Pattern: "competitor",
		Params:  map[string]any{"enforce": true},
	}

	result, err := check.Run(context.Background(), "our competitor is better", g)
	require.NoError(t, err)

	assert.False(t, result.Valid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, ErrTagFailed, result.Violations[0].Error)
	assert.Equal(t, "blocklist", result.Violations[0].Type)
}
