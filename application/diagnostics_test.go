package application_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/plumenote/eventstore/application"
)

func TestRunDiagnostics(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), []byte("0123456789"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	d := application.RunDiagnostics(dir)
	if !d.ProbeOK {
		t.Errorf("ProbeOK = false (%v), want a writable directory to pass", d.ProbeErr)
	}
	if d.UsageBytes < 10 {
		t.Errorf("UsageBytes = %d, want at least the seeded file size", d.UsageBytes)
	}
	if d.CheckedAt.IsZero() {
		t.Error("CheckedAt is zero")
	}

	// The probe file is cleaned up.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries after the probe, want 1", len(entries))
	}
}

func TestRunDiagnostics_NoDirectory(t *testing.T) {
	t.Parallel()

	d := application.RunDiagnostics("")
	if !d.ProbeOK {
		t.Error("ProbeOK = false for a memory-only backend, want trivially true")
	}
	if d.UsageBytes != 0 {
		t.Errorf("UsageBytes = %d, want 0", d.UsageBytes)
	}
}

func TestRunDiagnostics_MissingDirectory(t *testing.T) {
	t.Parallel()

	d := application.RunDiagnostics(filepath.Join(t.TempDir(), "absent"))
	if d.ProbeOK {
		t.Error("ProbeOK = true for a missing directory")
	}
	if d.ProbeErr == nil {
		t.Error("ProbeErr = nil, want the write failure")
	}
}
