// Package storage provides the data persistence layer: the JSON record store,
// the classification cache file and the run history database.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
)

// RecordStore is the on-disk JSON document holding every retained complaint.
type RecordStore struct {
	Path string
}

// NewRecordStore creates a store backed by path.
func NewRecordStore(path string) (*RecordStore, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	return &RecordStore{Path: path}, nil
}

// Load reads the store. A missing file yields an empty dataset. An unreadable or
// unparseable file also yields an empty dataset, with Recovered set and a warning
// logged, since a fresh full fetch is always safe to merge from.
func (s *RecordStore) Load() (*Dataset, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewDataset(nil), nil
	}
	if err != nil {
		slog.Warn("Could not read record store, starting fresh", "path", s.Path, "error", err)
		ds := NewDataset(nil)
		ds.Recovered = true
		return ds, nil
	}

	hits, err := decodeStore(data)
	if err != nil {
		slog.Warn("Could not parse record store, starting fresh", "path", s.Path, "error", err)
		ds := NewDataset(nil)
		ds.Recovered = true
		return ds, nil
	}

	return NewDataset(hits), nil
}

func decodeStore(data []byte) ([]model.Hit, error) {
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreCorrupted, err)
	}
	return env.Hits.Hits, nil
}

// Save replaces the store with ds in one atomic write. It returns the size of the
// written file in bytes.
func (s *RecordStore) Save(ds *Dataset) (int64, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(model.NewEnvelope(ds.Hits())); err != nil {
		return 0, fmt.Errorf("failed to encode record store: %w", err)
	}

	data := bytes.TrimRight(buf.Bytes(), "\n")
	if err := writeFileAtomic(s.Path, data); err != nil {
		return 0, fmt.Errorf("failed to write record store: %w", err)
	}
	return int64(len(data)), nil
}

// Dataset is the in-memory record store: hits plus an id index.
type Dataset struct {
	ids  map[string]struct{}
	hits []model.Hit
	// Recovered is true when the backing file existed but could not be parsed.
	Recovered bool
}

// NewDataset indexes hits. Duplicate ids after the first are discarded.
func NewDataset(hits []model.Hit) *Dataset {
	ds := &Dataset{
		ids:  make(map[string]struct{}, len(hits)),
		hits: make([]model.Hit, 0, len(hits)),
	}
	for _, h := range hits {
		if _, seen := ds.ids[h.ID]; seen {
			continue
		}
		ds.ids[h.ID] = struct{}{}
		ds.hits = append(ds.hits, h)
	}
	return ds
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.hits)
}

// Contains reports whether a record with id is present.
func (d *Dataset) Contains(id string) bool {
	_, ok := d.ids[id]
	return ok
}

// Hits returns the hits in store order. The slice must not be modified.
func (d *Dataset) Hits() []model.Hit {
	return d.hits
}

// Records returns the complaints in store order.
func (d *Dataset) Records() []model.ComplaintRecord {
	return model.Records(d.hits)
}

// LatestDate returns the most recent parseable received date.
func (d *Dataset) LatestDate() (time.Time, bool) {
	var (
		latest time.Time
		found  bool
	)
	for _, h := range d.hits {
		t, ok := h.Source.ReceivedAt()
		if !ok {
			continue
		}
		if !found || t.After(latest) {
			latest, found = t, true
		}
	}
	return latest, found
}

// Merge inserts every fresh hit whose id is not yet present, then re-sorts the
// dataset by received date, newest first. It returns the number inserted.
func (d *Dataset) Merge(fresh []model.Hit) int {
	added := 0
	for _, h := range fresh {
		if _, seen := d.ids[h.ID]; seen {
			continue
		}
		d.ids[h.ID] = struct{}{}
		d.hits = append(d.hits, h)
		added++
	}
	SortByReceivedDesc(d.hits)
	return added
}

// SortByReceivedDesc orders hits newest first. Hits without a usable date go last;
// equal keys keep their relative order.
func SortByReceivedDesc(hits []model.Hit) {
	type keyed struct {
		t   time.Time
		hit model.Hit
		ok  bool
	}
	tmp := make([]keyed, len(hits))
	for i, h := range hits {
		t, ok := h.Source.ReceivedAt()
		tmp[i] = keyed{t: t, ok: ok, hit: h}
	}

	sort.SliceStable(tmp, func(i, j int) bool {
		if tmp[i].ok != tmp[j].ok {
			return tmp[i].ok
		}
		return tmp[i].t.After(tmp[j].t)
	})

	for i := range tmp {
		hits[i] = tmp[i].hit
	}
}
