// Package model defines the core domain models used throughout the application.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MinNarrativeLength is the length a narrative must exceed to be usable for categorization.
const MinNarrativeLength = 50

// DateLayout is the calendar date format used by the complaint database.
const DateLayout = "2006-01-02"

// ComplaintRecord is a single consumer complaint as published by the complaint database.
// Records are immutable once merged into the record store.
type ComplaintRecord struct {
	ID                      string  `json:"-"`
	DateReceived            string  `json:"date_received,omitempty"`
	Company                 string  `json:"company,omitempty"`
	Product                 string  `json:"product,omitempty"`
	SubProduct              string  `json:"sub_product,omitempty"`
	Issue                   string  `json:"issue,omitempty"`
	SubIssue                string  `json:"sub_issue,omitempty"`
	Narrative               string  `json:"complaint_what_happened,omitempty"`
	CompanyResponse         string  `json:"company_response,omitempty"`
	CompanyPublicResponse   *string `json:"company_public_response,omitempty"`
	Timely                  string  `json:"timely,omitempty"`
	ConsumerDisputed        string  `json:"consumer_disputed,omitempty"`
	State                   *string `json:"state,omitempty"`
	ZipCode                 *string `json:"zip_code,omitempty"`
	Tags                    *string `json:"tags,omitempty"`
	SubmittedVia            string  `json:"submitted_via,omitempty"`
	DateSentToCompany       string  `json:"date_sent_to_company,omitempty"`
	ConsumerConsentProvided *string `json:"consumer_consent_provided,omitempty"`
	ComplaintID             string  `json:"complaint_id,omitempty"`
	HasNarrative            *bool   `json:"has_narrative,omitempty"`
}

var receivedLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ReceivedAt parses the received date. The second return value is false when the
// date is missing or cannot be parsed.
func (c ComplaintRecord) ReceivedAt() (time.Time, bool) {
	s := strings.TrimSpace(c.DateReceived)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range receivedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// HasUsableNarrative reports whether the narrative is long enough to categorize.
// Length is counted in characters, not bytes.
func (c ComplaintRecord) HasUsableNarrative() bool {
	return utf8.RuneCountInString(c.Narrative) > MinNarrativeLength
}

// Hit is one entry in the search envelope: the complaint plus its envelope metadata.
type Hit struct {
	ID     string            `json:"_id"`
	Source ComplaintRecord   `json:"_source"`
	Sort   []json.RawMessage `json:"sort,omitempty"`
}

// Record returns the complaint with its ID populated from the envelope.
func (h Hit) Record() ComplaintRecord {
	rec := h.Source
	rec.ID = h.ID
	return rec
}

// SortKey renders the hit's first two sort values as a continuation cursor of the
// form "{primary}_{secondary}". It returns "" when fewer than two values exist.
func (h Hit) SortKey() string {
	if len(h.Sort) < 2 {
		return ""
	}
	return sortValue(h.Sort[0]) + "_" + sortValue(h.Sort[1])
}

func sortValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// Total is the reported hit count. The API emits either {"value": N} or a bare N.
type Total struct {
	Value int `json:"value"`
}

// UnmarshalJSON accepts both the object and the bare number forms.
func (t *Total) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Value = 0
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Value int `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("invalid total object: %w", err)
		}
		t.Value = obj.Value
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid total: %w", err)
	}
	t.Value = n
	return nil
}

// HitList is the inner "hits" object of the envelope.
type HitList struct {
	Total Total `json:"total"`
	Hits  []Hit `json:"hits"`
}

// Envelope is the search response shape, also used as the on-disk record store format.
type Envelope struct {
	Hits HitList `json:"hits"`
}

// NewEnvelope wraps hits with a total equal to their count.
func NewEnvelope(hits []Hit) Envelope {
	if hits == nil {
		hits = []Hit{}
	}
	return Envelope{Hits: HitList{Total: Total{Value: len(hits)}, Hits: hits}}
}

// Records converts hits into complaint records, preserving order.
func Records(hits []Hit) []ComplaintRecord {
	out := make([]ComplaintRecord, len(hits))
	for i, h := range hits {
		out[i] = h.Record()
	}
	return out
}
