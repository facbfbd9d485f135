package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"lexime/internal/config"
)

// LXUD checkpoint layout: [4B magic "LXUD"][1B version][serialized tables].
const (
	checkpointMagic   = "LXUD"
	checkpointVersion = 1
)

var (
	ErrInvalidHeader      = errors.New("history: invalid header (too short)")
	ErrInvalidMagic       = errors.New("history: invalid magic bytes")
	ErrUnsupportedVersion = errors.New("history: unsupported version")
)

type unigramRecord struct {
	Reading   string `json:"reading"`
	Surface   string `json:"surface"`
	Frequency uint32 `json:"frequency"`
	LastUsed  uint64 `json:"last_used"`
}

type bigramRecord struct {
	PrevSurface string `json:"prev_surface"`
	NextReading string `json:"next_reading"`
	NextSurface string `json:"next_surface"`
	Frequency   uint32 `json:"frequency"`
	LastUsed    uint64 `json:"last_used"`
}

type historyData struct {
	Unigrams []unigramRecord `json:"unigrams"`
	Bigrams  []bigramRecord  `json:"bigrams"`
}

// Bytes serializes the tables to the LXUD format. The snapshot is taken
// under the reader lock; records are sorted so the output is deterministic.
func (h *UserHistory) Bytes() ([]byte, error) {
	h.mu.RLock()
	data := h.toData()
	h.mu.RUnlock()

	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("history: encode checkpoint: %w", err)
	}
	buf := make([]byte, 0, 5+len(body))
	buf = append(buf, checkpointMagic...)
	buf = append(buf, checkpointVersion)
	buf = append(buf, body...)
	return buf, nil
}

func (h *UserHistory) toData() historyData {
	var data historyData
	for reading, inner := range h.unigrams {
		for surface, e := range inner {
			data.Unigrams = append(data.Unigrams, unigramRecord{
				Reading:   reading,
				Surface:   surface,
				Frequency: e.Frequency,
				LastUsed:  e.LastUsed,
			})
		}
	}
	for prev, inner := range h.bigrams {
		for key, e := range inner {
			data.Bigrams = append(data.Bigrams, bigramRecord{
				PrevSurface: prev,
				NextReading: key.Reading,
				NextSurface: key.Surface,
				Frequency:   e.Frequency,
				LastUsed:    e.LastUsed,
			})
		}
	}
	sort.Slice(data.Unigrams, func(i, j int) bool {
		a, b := data.Unigrams[i], data.Unigrams[j]
		if a.Reading != b.Reading {
			return a.Reading < b.Reading
		}
		return a.Surface < b.Surface
	})
	sort.Slice(data.Bigrams, func(i, j int) bool {
		a, b := data.Bigrams[i], data.Bigrams[j]
		if a.PrevSurface != b.PrevSurface {
			return a.PrevSurface < b.PrevSurface
		}
		if a.NextReading != b.NextReading {
			return a.NextReading < b.NextReading
		}
		return a.NextSurface < b.NextSurface
	})
	return data
}

// FromBytes parses an LXUD checkpoint into a fresh store.
func FromBytes(data []byte, cfg config.HistorySettings) (*UserHistory, error) {
	if len(data) < 5 {
		return nil, ErrInvalidHeader
	}
	if string(data[:4]) != checkpointMagic {
		return nil, ErrInvalidMagic
	}
	if data[4] != checkpointVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[4])
	}
	var parsed historyData
	if err := json.Unmarshal(data[5:], &parsed); err != nil {
		return nil, fmt.Errorf("history: decode checkpoint: %w", err)
	}

	h := New(cfg)
	for _, rec := range parsed.Unigrams {
		inner, ok := h.unigrams[rec.Reading]
		if !ok {
			inner = make(map[string]*Entry)
			h.unigrams[rec.Reading] = inner
		}
		inner[rec.Surface] = &Entry{Frequency: rec.Frequency, LastUsed: rec.LastUsed}
	}
	for _, rec := range parsed.Bigrams {
		inner, ok := h.bigrams[rec.PrevSurface]
		if !ok {
			inner = make(map[bigramKey]*Entry)
			h.bigrams[rec.PrevSurface] = inner
		}
		inner[bigramKey{Reading: rec.NextReading, Surface: rec.NextSurface}] =
			&Entry{Frequency: rec.Frequency, LastUsed: rec.LastUsed}
	}
	return h, nil
}

// Open reads the checkpoint at path (missing file yields an empty store),
// attaches the sibling WAL, and replays its frames in file order.
func Open(path string, cfg config.HistorySettings) (*UserHistory, error) {
	var h *UserHistory
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		h, err = FromBytes(data, cfg)
		if err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		h = New(cfg)
	default:
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}

	wal := NewWAL(path)
	records, err := wal.replay()
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	for _, rec := range records {
		h.recordLocked(rec.Reading, rec.Surface, rec.Segments, rec.Timestamp)
	}
	h.wal = wal
	h.mu.Unlock()

	return h, nil
}

// Save writes the checkpoint atomically (tmp + rename) and truncates the
// attached WAL.
func (h *UserHistory) Save(path string) error {
	data, err := h.Bytes()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("history: create dir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("history: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("history: rename %s: %w", tmp, err)
	}

	h.mu.RLock()
	wal := h.wal
	h.mu.RUnlock()
	if wal != nil {
		return wal.Truncate()
	}
	return nil
}

// NeedsCompact reports whether the attached WAL has outgrown its threshold.
func (h *UserHistory) NeedsCompact() bool {
	h.mu.RLock()
	wal := h.wal
	h.mu.RUnlock()
	return wal != nil && wal.NeedsCompact()
}

// Close releases the WAL handle.
func (h *UserHistory) Close() error {
	h.mu.Lock()
	wal := h.wal
	h.wal = nil
	h.mu.Unlock()
	if wal != nil {
		return wal.Close()
	}
	return nil
}
