package llm

import (
	"testing"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare object", input: `{"a": "b"}`, want: `{"a": "b"}`},
		{name: "preamble", input: "Here you go:\n{\"a\": \"b\"}", want: `{"a": "b"}`},
		{name: "code fence", input: "```json\n{\"a\": \"b\"}\n```", want: `{"a": "b"}`},
		{name: "trailing commentary", input: `{"a": "b"} Let me know if you need more.`, want: `{"a": "b"}`},
		{name: "first of two", input: `{"a": "1"} {"b": "2"}`, want: `{"a": "1"}`},
		{name: "skips broken brace", input: `{oops {"a": "b"}`, want: `{"a": "b"}`},
		{name: "no object", input: "I cannot classify these.", wantErr: true},
		{name: "unterminated", input: `{"a": "b"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrNoJSONInResponse)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestParseLabels(t *testing.T) {
	want := map[string]bool{"1": true, "2": true, "3": true, "4": true}
	reply := `{"1": "fraud", "2": " Fees ", "3": "weather", "4": 5, "99": "fraud"}`

	labels, skipped, err := parseLabels(reply, want)
	require.NoError(t, err)

	assert.Equal(t, map[string]model.CategoryLabel{
		"1": model.LabelFraud,
		"2": model.LabelFees,
	}, labels)
	assert.Equal(t, 3, skipped)
}

func TestParseLabels_NotAnObject(t *testing.T) {
	_, _, err := parseLabels(`["fraud"]`, map[string]bool{})
	require.ErrorIs(t, err, common.ErrNoJSONInResponse)
}
