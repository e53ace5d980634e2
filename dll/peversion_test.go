package dll

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractFileVersionNotPE(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not_a_pe.dll")
	if err := os.WriteFile(path, []byte("plainly not an executable"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractFileVersion(path); err == nil {
		t.Fatal("ExtractFileVersion on a non-PE file succeeded, want error")
	}
}

func TestExtractFileVersionMissingFile(t *testing.T) {
	if _, err := ExtractFileVersion(filepath.Join(t.TempDir(), "absent.dll")); err == nil {
		t.Fatal("ExtractFileVersion on a missing file succeeded, want error")
	}
}
