package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplaintRecord_ReceivedAt(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{in: "2025-03-04", want: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), wantOK: true},
		{in: "2025-03-04T12:30:00Z", want: time.Date(2025, 3, 4, 12, 30, 0, 0, time.UTC), wantOK: true},
		{in: "2025-03-04T12:30:00", want: time.Date(2025, 3, 4, 12, 30, 0, 0, time.UTC), wantOK: true},
		{in: "", wantOK: false},
		{in: "March 4", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ComplaintRecord{DateReceived: tt.in}.ReceivedAt()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}

func TestComplaintRecord_HasUsableNarrative(t *testing.T) {
	tests := []struct {
		name      string
		narrative string
		want      bool
	}{
		{name: "empty", narrative: "", want: false},
		{name: "at threshold", narrative: strings.Repeat("a", MinNarrativeLength), want: false},
		{name: "over threshold", narrative: strings.Repeat("a", MinNarrativeLength+1), want: true},
		{name: "multi-byte under threshold", narrative: strings.Repeat("é", 30), want: false},
		{name: "multi-byte at threshold", narrative: strings.Repeat("€", MinNarrativeLength), want: false},
		{name: "multi-byte over threshold", narrative: strings.Repeat("é", MinNarrativeLength+1), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComplaintRecord{Narrative: tt.narrative}.HasUsableNarrative())
		})
	}
}

func TestHit_SortKey(t *testing.T) {
	hit := Hit{Sort: []json.RawMessage{json.RawMessage(`1714521600000`), json.RawMessage(`"8871234"`)}}
	assert.Equal(t, "1714521600000_8871234", hit.SortKey())

	assert.Empty(t, Hit{Sort: []json.RawMessage{json.RawMessage(`1`)}}.SortKey())
	assert.Empty(t, Hit{}.SortKey())
}

func TestHit_Record(t *testing.T) {
	hit := Hit{ID: "42", Source: ComplaintRecord{Company: "Coinbase"}}
	rec := hit.Record()
	assert.Equal(t, "42", rec.ID)
	assert.Equal(t, "Coinbase", rec.Company)
}

func TestEnvelope_TotalForms(t *testing.T) {
	for _, body := range []string{
		`{"hits":{"total":{"value":2,"relation":"eq"},"hits":[]}}`,
		`{"hits":{"total":2,"hits":[]}}`,
	} {
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(body), &env), body)
		assert.Equal(t, 2, env.Hits.Total.Value, body)
	}

	var env Envelope
	assert.Error(t, json.Unmarshal([]byte(`{"hits":{"total":"many"}}`), &env))

	out, err := json.Marshal(NewEnvelope(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"hits":{"total":{"value":0},"hits":[]}}`, string(out))
}

func TestParseCategoryLabel(t *testing.T) {
	got, err := ParseCategoryLabel("  Fraud ")
	require.NoError(t, err)
	assert.Equal(t, LabelFraud, got)

	_, err = ParseCategoryLabel("scam")
	assert.Error(t, err)

	assert.Len(t, CategoryLabels(), 7)
	for _, l := range CategoryLabels() {
		assert.True(t, l.Valid(), l)
	}
}
