package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
)

// The WAL is a sequence of frames, each [length:u32][CRC32:u32][payload]
// (little-endian), where payload is a JSON-encoded record event. Replay is
// in file order and truncates at the first frame whose CRC mismatches, so a
// torn tail write loses only the final record.
const compactThresholdBytes = 64 * 1024

var ErrWALClosed = errors.New("history: wal is closed")

type walRecord struct {
	Reading   string `json:"reading"`
	Surface   string `json:"surface"`
	Segments  []Pair `json:"segments,omitempty"`
	Timestamp uint64 `json:"timestamp"`
}

// WAL appends record frames alongside a checkpoint file. The handle is held
// open in append mode for the lifetime of the store and synced per frame.
type WAL struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	byteCount int64
	frames    int
	closed    bool
}

// NewWAL creates a WAL handle for the sibling of a checkpoint path.
func NewWAL(checkpointPath string) *WAL {
	return &WAL{path: checkpointPath + ".wal"}
}

// Path returns the WAL file path.
func (w *WAL) Path() string { return w.path }

func (w *WAL) openFile() error {
	if w.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("history: create wal directory: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("history: open wal: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("history: stat wal: %w", err)
	}
	w.file = f
	w.byteCount = stat.Size()
	return nil
}

// Append writes one frame and syncs it to disk.
func (w *WAL) Append(rec walRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWALClosed
	}
	if err := w.openFile(); err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: encode wal frame: %w", err)
	}

	frame := make([]byte, 0, 8+len(payload))
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(payload)))
	frame = binary.LittleEndian.AppendUint32(frame, crc32.ChecksumIEEE(payload))
	frame = append(frame, payload...)

	if _, err := w.file.Write(frame); err != nil {
		return fmt.Errorf("history: write wal frame: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("history: sync wal: %w", err)
	}

	w.byteCount += int64(len(frame))
	w.frames++
	return nil
}

// replay decodes all valid frames in file order. Frames after the first
// corrupt one are discarded.
func (w *WAL) replay() ([]walRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: read wal: %w", err)
	}

	var records []walRecord
	pos := 0
	for pos+8 <= len(data) {
		length := int(binary.LittleEndian.Uint32(data[pos:]))
		wantCRC := binary.LittleEndian.Uint32(data[pos+4:])
		if length == 0 || pos+8+length > len(data) {
			break
		}
		payload := data[pos+8 : pos+8+length]
		if crc32.ChecksumIEEE(payload) != wantCRC {
			break
		}
		var rec walRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			break
		}
		records = append(records, rec)
		pos += 8 + length
	}

	w.byteCount = int64(len(data))
	w.frames = len(records)
	return records, nil
}

// NeedsCompact reports whether the WAL has grown past the compaction
// threshold.
func (w *WAL) NeedsCompact() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.byteCount > compactThresholdBytes
}

// Truncate empties the WAL after a checkpoint has been written.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("history: truncate wal: %w", err)
	}
	f.Close()
	w.byteCount = 0
	w.frames = 0
	return nil
}

// Frames returns the number of frames appended or replayed since open.
func (w *WAL) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Close releases the file handle.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
