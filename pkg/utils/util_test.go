package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     map[string]interface{}
		wantErr  bool
	}{
		{
			name:     "plain JSON object",
			response: `{"answer": 42}`,
			want:     map[string]interface{}{"answer": float64(42)},
		},
		{
			name:     "fenced with language tag",
			response: "```json\n{\"answer\": 42}\n```",
			want:     map[string]interface{}{"answer": float64(42)},
		},
		{
			name:     "fenced without language tag",
			response: "```\n{\"lessons\": []}\n```",
			want:     map[string]interface{}{"lessons": []interface{}{}},
		},
		{
			name:     "surrounding whitespace",
			response: "\n\n  {\"ok\": true}  \n",
			want:     map[string]interface{}{"ok": true},
		},
		{
			name:     "not JSON",
			response: "I cannot answer that.",
			wantErr:  true,
		},
		{
			name:     "JSON array is not an object",
			response: `[1, 2, 3]`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONResponse(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFences(`{"a": 1}`))
	assert.Equal(t, "plain text", StripCodeFences("  plain text  "))
}
