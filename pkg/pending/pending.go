// Package pending implements the pending-snapshot record file: one JSON
// object per line, appended by test processes and read back by the
// reviewer. Only the records sharing the run identifier of the last line
// are authoritative; earlier runs' lines are discarded on load.
package pending

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ormasoftchile/snapfile/pkg/snapshot"
)

// Record is one proposed inline-snapshot change. A nil New marks a
// deletion: the assertion passed again or the call site vanished.
type Record struct {
	RunID string             `json:"run_id"`
	Line  int                `json:"line"`
	New   *snapshot.Snapshot `json:"new"`
	Old   *snapshot.Snapshot `json:"old"`
}

// NewRecord builds a record tagged with this process's run identifier.
func NewRecord(new, old *snapshot.Snapshot, line int) *Record {
	return &Record{RunID: RunID(), Line: line, New: new, Old: old}
}

var (
	runIDOnce sync.Once
	runID     string
)

// RunID returns the identifier for this test-process invocation. It is
// stable for the process lifetime; SNAPFILE_RUN_ID overrides it so an
// external runner can stitch multiple processes into one logical run.
func RunID() string {
	runIDOnce.Do(func() {
		if id := os.Getenv("SNAPFILE_RUN_ID"); id != "" {
			runID = id
			return
		}
		now := time.Now()
		runID = fmt.Sprintf("%d-%d", now.Unix(), now.Nanosecond())
	})
	return runID
}

// MalformedRecordError reports an unparsable line in a pending record
// file. It is fatal for that file's load.
type MalformedRecordError struct {
	Path   string
	LineNo int
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("pending record %s line %d: %v", e.Path, e.LineNo, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Append serializes one record onto the end of the file, creating it if
// needed. It never rewrites existing lines, so independent test processes
// can interleave writes safely.
func Append(path string, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal pending record: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open pending file: %w", err)
	}
	defer f.Close()
	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append pending record: %w", err)
	}
	return nil
}

// LoadBatch reads every record and returns only those whose run identifier
// matches the last line's. An unparsable line fails the whole load.
func LoadBatch(path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pending file: %w", err)
	}
	defer f.Close()

	var records []*Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, &MalformedRecordError{Path: path, LineNo: lineNo, Err: err}
		}
		records = append(records, &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pending file: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}
	lastRun := records[len(records)-1].RunID
	current := records[:0]
	for _, rec := range records {
		if rec.RunID == lastRun {
			current = append(current, rec)
		}
	}
	return current, nil
}

// SaveBatch atomically replaces the file with exactly the given records.
// An empty batch deletes the file: an empty pending file is not a valid
// terminal state.
func SaveBatch(path string, batch []*Record) error {
	if len(batch) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove pending file: %w", err)
		}
		return nil
	}
	var buf bytes.Buffer
	for _, rec := range batch {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal pending record: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if err := snapshot.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("replace pending file: %w", err)
	}
	return nil
}
