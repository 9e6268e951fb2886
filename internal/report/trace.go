package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cwbudde/railfit/internal/opt"
)

// TraceEntry is one line of trace.jsonl: the cost after an optimizer
// iteration, stamped with wall-clock time.
type TraceEntry struct {
	Iteration int       `json:"iteration"`
	Cost      float64   `json:"cost"`
	Timestamp time.Time `json:"timestamp"`
}

// TraceWriter appends trace entries to a JSONL file through a buffer. It
// is safe for concurrent use; Close flushes and releases the file.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTraceWriter creates or truncates the trace file at path.
func NewTraceWriter(path string) (*TraceWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Append writes one entry as a JSON line.
func (t *TraceWriter) Append(entry TraceEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("serialize trace entry: %w", err)
	}
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write trace newline: %w", err)
	}
	return nil
}

// Flush pushes buffered entries to disk.
func (t *TraceWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("flush trace: %w", err)
	}
	return nil
}

// Close flushes and closes the trace file.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.writer.Flush(); err != nil {
		t.file.Close()
		return fmt.Errorf("flush trace: %w", err)
	}
	if err := t.file.Close(); err != nil {
		return fmt.Errorf("close trace: %w", err)
	}
	return nil
}

// WriteTrace writes a recorded cost curve to path in one pass, stamping
// every entry with the current time.
func WriteTrace(path string, points []opt.TracePoint) error {
	w, err := NewTraceWriter(path)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, p := range points {
		if err := w.Append(TraceEntry{Iteration: p.Iteration, Cost: p.Cost, Timestamp: now}); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// ReadTrace loads every entry of a trace.jsonl file.
func ReadTrace(path string) ([]TraceEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer file.Close()

	var entries []TraceEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry TraceEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("parse trace line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return entries, nil
}
