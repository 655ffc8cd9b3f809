package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/Veraticus/crypto-complaints/internal/model"
)

// Classifications is the precomputed complaint id to category map produced by
// the batch classifier. Keys are hit _id values, which equal _source.complaint_id,
// so caches written by earlier tooling keyed on complaint_id load unchanged.
type Classifications map[string]model.CategoryLabel

// LoadClassifications reads the classification cache. Entries with a label
// outside the closed set are skipped with a warning. A missing or corrupt file
// yields an empty cache.
func LoadClassifications(path string) (Classifications, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Classifications{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read classifications: %w", err)
	}

	cache, skipped, err := DecodeClassifications(data)
	if err != nil {
		slog.Warn("Could not parse classification cache, ignoring it", "path", path, "error", err)
		return Classifications{}, nil
	}
	if skipped > 0 {
		slog.Warn("Skipped invalid classification entries", "path", path, "skipped", skipped)
	}
	return cache, nil
}

// DecodeClassifications parses a flat JSON object of id to label. It returns the
// number of entries skipped because their value was not a known label.
func DecodeClassifications(data []byte) (Classifications, int, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("invalid classification cache: %w", err)
	}

	cache := make(Classifications, len(raw))
	skipped := 0
	for id, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			slog.Warn("Skipping non-string classification", "id", id)
			skipped++
			continue
		}
		label := model.CategoryLabel(s)
		if !label.Valid() {
			slog.Warn("Skipping invalid classification", "id", id, "category", s)
			skipped++
			continue
		}
		cache[id] = label
	}
	return cache, skipped, nil
}

// SaveClassifications writes the cache as indented JSON. encoding/json sorts
// map keys, so the file is stable across saves.
func SaveClassifications(path string, cache Classifications) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode classifications: %w", err)
	}
	data = append(bytes.TrimRight(data, "\n"), '\n')

	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write classifications: %w", err)
	}
	return nil
}
