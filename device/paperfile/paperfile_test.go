/*
 * Copyright 2024, Richard Cornwell
 */

package paperfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenameWithRetryProducesArchiveWithSuffix(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "LP5xx_C00_E0")
	if err := os.WriteFile(orig, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	archived, err := RenameWithRetry(orig, "LP5xx", ".txt")
	if err != nil {
		t.Fatalf("RenameWithRetry: %v", err)
	}
	if !strings.HasSuffix(archived, ".txt") {
		t.Fatalf("archive name %q should end in .txt", archived)
	}
	if !strings.Contains(filepath.Base(archived), "LP5xx_") {
		t.Fatalf("archive name %q should start with the given prefix", archived)
	}
	if _, err := os.Stat(orig); !os.IsNotExist(err) {
		t.Fatalf("original file should no longer exist after rename")
	}
	b, err := os.ReadFile(archived)
	if err != nil || string(b) != "hello" {
		t.Fatalf("archived contents = %q, %v, want %q", b, err, "hello")
	}
}

func TestRenameWithRetryEmptySuffixOmitsDot(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "LP1612_C00")
	if err := os.WriteFile(orig, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	archived, err := RenameWithRetry(orig, "LP1612", "")
	if err != nil {
		t.Fatalf("RenameWithRetry: %v", err)
	}
	if strings.HasSuffix(archived, ".txt") {
		t.Fatalf("1612 archive name %q should not carry the .txt suffix", archived)
	}
}

// TestRenameWithRetrySkipsCollidingName covers the second-call branch
// of scenario 7: a pre-existing archive name for the current second
// is skipped in favor of the next sequence number.
func TestRenameWithRetrySkipsCollidingName(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "LP5xx_C00_E0")
	if err := os.WriteFile(orig, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	first, err := RenameWithRetry(orig, "LP5xx", ".txt")
	if err != nil {
		t.Fatalf("first RenameWithRetry: %v", err)
	}

	if err := os.WriteFile(orig, []byte("more"), 0o644); err != nil {
		t.Fatalf("recreate capture file: %v", err)
	}
	second, err := RenameWithRetry(orig, "LP5xx", ".txt")
	if err != nil {
		t.Fatalf("second RenameWithRetry: %v", err)
	}
	if second == first {
		t.Fatalf("second archive name %q must differ from the first %q", second, first)
	}
}
