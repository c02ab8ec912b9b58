package server

import (
	"path/filepath"
	"testing"
	"time"
)

func TestEvalLogRecordAndRecent(t *testing.T) {
	log, err := OpenEvalLog(filepath.Join(t.TempDir(), "eval", "log.db"))
	if err != nil {
		t.Fatalf("OpenEvalLog() error: %v", err)
	}
	defer log.Close()

	log.Record("/modules/foo", "get", 200, 12*time.Millisecond, "")
	log.Record("/modules/bar", "post", 400, 3*time.Millisecond, "unknown argument")

	entries, err := log.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	// Newest first.
	if entries[0].Path != "/modules/bar" || entries[0].Status != 400 || entries[0].Error != "unknown argument" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Path != "/modules/foo" || entries[1].Verb != "get" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if entries[0].Timestamp.IsZero() {
		t.Errorf("timestamp not recorded")
	}
}

func TestEvalLogRecentLimit(t *testing.T) {
	log, err := OpenEvalLog(filepath.Join(t.TempDir(), "log.db"))
	if err != nil {
		t.Fatalf("OpenEvalLog() error: %v", err)
	}
	defer log.Close()

	for i := 0; i < 5; i++ {
		log.Record("/modules/foo", "get", 200, time.Millisecond, "")
	}
	entries, err := log.Recent(3)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestEvalLogNilIsSafe(t *testing.T) {
	var log *EvalLog
	log.Record("/modules/foo", "get", 200, time.Millisecond, "")
	if err := log.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
}
