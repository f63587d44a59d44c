// Package journal implements the append-only mutation log: binary framing
// for individual records and a writer that tracks the logical file length
// between compactions.
package journal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"duralog/pkg/dberrors"
)

// FileName is the journal's file name inside the persistence directory.
const FileName = "journal"

// frameHeaderSize is the fixed per-record overhead: type id plus payload
// length, 4 little-endian bytes each.
const frameHeaderSize = 8

// Record is one decoded journal frame: a serialized mutation and the type id
// it was registered under.
type Record struct {
	TypeID  uint32
	Payload []byte
}

// Path returns the journal file path for a persistence directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// WriteRecord writes one frame to w: [type_id: u32 LE][len: u32 LE][payload].
func WriteRecord(w io.Writer, typeID uint32, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("duralog: mutation payload too large: %d", len(payload))
	}

	if err := binary.Write(w, binary.LittleEndian, typeID); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(payload))); err != nil {
		return err
	}

	if _, err := w.Write(payload); err != nil {
		return err
	}

	return nil
}

// ReadRecord reads one frame from r. It returns (nil, nil) when the stream
// ends exactly at a frame boundary, and also when it ends partway through
// the header or payload: a torn trailing frame left by a crash is treated
// as absent, never as data and never as an error.
func ReadRecord(r io.Reader) (*Record, error) {
	var typeID uint32
	if err := binary.Read(r, binary.LittleEndian, &typeID); err != nil {
		return nil, ignoreEOF(err)
	}

	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, ignoreEOF(err)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, ignoreEOF(err)
	}

	return &Record{TypeID: typeID, Payload: payload}, nil
}

// ignoreEOF maps clean and torn ends of stream to nil so that replay stops
// there instead of failing.
func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil
	}
	return err
}

// Journal is the append-only writer over the journal file. In buffered mode
// appended records may sit in memory until a flush or buffer-full event; in
// synchronous mode every Append flushes before returning.
type Journal struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	buffered bool
	length   int
	filePath string
}

// Open opens the journal file inside dir in append mode, creating it if
// absent.
func Open(dir string, buffered bool) (*Journal, error) {
	filePath := Path(dir)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("duralog: open journal file: %w", err)
	}

	return &Journal{
		file:     file,
		writer:   bufio.NewWriter(file),
		buffered: buffered,
		filePath: filePath,
	}, nil
}

// Append writes one record and returns its framed byte size. The tracked
// length grows only on success.
func (j *Journal) Append(typeID uint32, payload []byte) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.writer == nil {
		return 0, dberrors.ErrClosed
	}

	if err := WriteRecord(j.writer, typeID, payload); err != nil {
		return 0, fmt.Errorf("duralog: append journal record: %w", err)
	}

	if !j.buffered {
		if err := j.writer.Flush(); err != nil {
			return 0, fmt.Errorf("duralog: flush journal: %w", err)
		}
	}

	n := frameHeaderSize + len(payload)
	j.length += n
	return n, nil
}

// Length reports the tracked logical byte length appended since the last
// truncation. Buffered bytes count even before they reach the file.
func (j *Journal) Length() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.length
}

// Flush forces buffered records to the underlying file.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.writer == nil {
		return dberrors.ErrClosed
	}

	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("duralog: flush journal: %w", err)
	}

	return nil
}

// Truncate discards any buffered records, truncates the file to zero length
// and resets the tracked length. The file stays open for appending.
func (j *Journal) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return dberrors.ErrClosed
	}

	// Buffered bytes would only land in the region being discarded, so the
	// buffer is reset rather than flushed. This also clears any sticky write
	// error after a failed append.
	j.writer.Reset(j.file)

	if err := j.file.Truncate(0); err != nil {
		return fmt.Errorf("duralog: truncate journal: %w", err)
	}

	j.length = 0
	return nil
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.writer != nil {
		if err := j.writer.Flush(); err != nil {
			return fmt.Errorf("duralog: flush journal on close: %w", err)
		}
		j.writer = nil
	}

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("duralog: close journal file: %w", err)
		}
		j.file = nil
	}

	return nil
}

// Replay reads whole records from the journal file inside dir, in file
// order, invoking fn for each. A missing file is a no-op; reading stops
// silently at a clean or torn end.
func Replay(dir string, fn func(Record) error) error {
	file, err := os.Open(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("duralog: open journal for replay: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("failed to close journal after replay", "error", cerr)
		}
	}()

	reader := bufio.NewReader(file)

	for {
		rec, err := ReadRecord(reader)
		if err != nil {
			return fmt.Errorf("duralog: read journal record: %w", err)
		}
		if rec == nil {
			return nil
		}

		if err := fn(*rec); err != nil {
			return err
		}
	}
}
