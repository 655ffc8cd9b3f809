package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
)

// extractJSONObject returns the first complete JSON object in text, ignoring any
// preamble, code fences or trailing commentary.
func extractJSONObject(text string) (json.RawMessage, error) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		dec := json.NewDecoder(strings.NewReader(text[start:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, nil
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, common.ErrNoJSONInResponse
}

// parseLabels decodes a reply of the form {"<id>": "<label>", ...}. Only ids in
// want are accepted; entries with an unknown id or label are skipped and counted.
func parseLabels(reply string, want map[string]bool) (map[string]model.CategoryLabel, int, error) {
	raw, err := extractJSONObject(reply)
	if err != nil {
		return nil, 0, err
	}

	var entries map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", common.ErrNoJSONInResponse, err)
	}

	labels := make(map[string]model.CategoryLabel, len(entries))
	skipped := 0
	for id, value := range entries {
		id = strings.TrimSpace(id)
		if !want[id] {
			slog.Warn("Ignoring classification for unknown complaint", "id", id)
			skipped++
			continue
		}

		s, ok := value.(string)
		if !ok {
			slog.Warn("Invalid category, skipping", "id", id, "category", value)
			skipped++
			continue
		}
		label, err := model.ParseCategoryLabel(s)
		if err != nil {
			slog.Warn("Invalid category, skipping", "id", id, "category", s)
			skipped++
			continue
		}
		labels[id] = label
	}
	return labels, skipped, nil
}
