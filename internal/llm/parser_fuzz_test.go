package llm

import (
	"encoding/json"
	"testing"

	"github.com/Veraticus/crypto-complaints/internal/model"
)

// FuzzParseLabels feeds arbitrary model replies through the label parser.
func FuzzParseLabels(f *testing.F) {
	seedCorpus := []string{
		`{"101": "fraud", "102": "fees"}`,
		"Sure! ```json\n{\"101\": \"withdrawal\"}\n```",
		`{"101": "FRAUD "} and {"102": "fees"}`,
		`{"999": "fraud"}`,
		`{"101": 7}`,
		`{invalid json`,
		`{"unclosed": "string`,
		`{{{{`,
		`}{`,
		``,
		`no json here`,
	}
	for _, seed := range seedCorpus {
		f.Add(seed)
	}

	want := map[string]bool{"101": true, "102": true}

	f.Fuzz(func(t *testing.T, reply string) {
		labels, skipped, err := parseLabels(reply, want)
		if err != nil {
			if labels != nil || skipped != 0 {
				t.Fatalf("error %v returned with results", err)
			}
			return
		}
		if skipped < 0 {
			t.Fatalf("negative skipped count %d", skipped)
		}
		for id, label := range labels {
			if !want[id] {
				t.Errorf("accepted unrequested id %q", id)
			}
			if _, err := model.ParseCategoryLabel(string(label)); err != nil {
				t.Errorf("accepted invalid label %q for %q", label, id)
			}
		}

		raw, err := extractJSONObject(reply)
		if err != nil {
			t.Fatalf("parseLabels succeeded but extractJSONObject failed: %v", err)
		}
		if !json.Valid(raw) {
			t.Errorf("extracted invalid JSON %q", raw)
		}
	})
}
