package trace

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/esmax/internal/es"
)

func TestWriter_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-123"

	writer, err := NewWriter(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []Entry{
		{Generation: 0, Score: 1.0, Param: -0.5, Gradient: -2.1, Timestamp: time.Now()},
		{Generation: 1, Score: 0.8, Param: -0.4, Gradient: -1.9, Timestamp: time.Now()},
		{Generation: 2, Score: 0.6, Param: -0.27, Gradient: -1.5, Timestamp: time.Now()},
	}
	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	wantPath := filepath.Join(tmpDir, "runs", runID, "trace.jsonl")
	if writer.Path() != wantPath {
		t.Errorf("Expected path %s, got %s", wantPath, writer.Path())
	}
	if _, err := os.Stat(wantPath); os.IsNotExist(err) {
		t.Fatalf("Trace file not created: %s", wantPath)
	}

	reader, err := NewReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	got, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}
	for i := range got {
		if got[i].Generation != entries[i].Generation || got[i].Score != entries[i].Score ||
			got[i].Param != entries[i].Param || got[i].Gradient != entries[i].Gradient {
			t.Errorf("Entry %d mismatch: got %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestReader_ReadEOF(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir, "eof")
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	writer.Write(Entry{Generation: 0, Score: 2})
	writer.Close()

	reader, err := NewReader(tmpDir, "eof")
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Read(); err != nil {
		t.Fatalf("First read failed: %v", err)
	}
	if _, err := reader.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestNewReader_NotFound(t *testing.T) {
	_, err := NewReader(t.TempDir(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.RunID != "missing" {
		t.Errorf("Expected NotFoundError for 'missing', got %v", err)
	}
}

func TestNewWriter_EmptyRunID(t *testing.T) {
	if _, err := NewWriter(t.TempDir(), ""); err == nil {
		t.Error("Expected error for empty runID")
	}
}

func TestWriter_CloseTwice(t *testing.T) {
	writer, err := NewWriter(t.TempDir(), NewRunID())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	if err := writer.Write(Entry{Generation: 0, Score: 1}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
	if err := writer.Write(Entry{Generation: 1}); err == nil {
		t.Error("Expected error writing to a closed writer")
	}
}

func TestWriter_ObserveRecordsRun(t *testing.T) {
	tmpDir := t.TempDir()
	runID := NewRunID()

	writer, err := NewWriter(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	cfg := es.DefaultConfig()
	cfg.Generations = 20
	result, err := es.Run(cfg, func(w float64) float64 { return (w - 0.5) * (w - 0.5) }, writer.Observe)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	reader, err := NewReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != len(result.History) {
		t.Fatalf("Expected %d entries, got %d", len(result.History), len(entries))
	}
	for i, e := range entries {
		g := result.History[i]
		if e.Generation != g.Index || e.Score != g.Score || e.Param != g.Param {
			t.Errorf("Entry %d does not match generation: %+v vs %+v", i, e, g)
		}
	}
}

func TestNewRunIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if id == "" {
			t.Fatal("Empty run ID")
		}
		if seen[id] {
			t.Fatalf("Duplicate run ID %s", id)
		}
		seen[id] = true
	}
}
