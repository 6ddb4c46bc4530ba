package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileSync(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "f")
	tmp := name + ".tmp"

	if err := WriteFileSync(name, tmp, []byte("one"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileSync(name, tmp, []byte("two"), 0600); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(name)
	if err != nil || string(b) != "two" {
		t.Errorf("got %q %v", b, err)
	}
	if _, err = os.Stat(tmp); !os.IsNotExist(err) {
		t.Errorf("temporary file left: %v", err)
	}
	if err = SyncFileName(name); err != nil {
		t.Error(err)
	}
	if err = SyncDir(dir); err != nil {
		t.Error(err)
	}
	if err = SyncFileName(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("missing file synced")
	}

	// unwritable destination keeps old file
	bad := filepath.Join(dir, "nodir", "x.tmp")
	if err = WriteFileSync(name, bad, []byte("three"), 0600); err == nil {
		t.Errorf("write into missing directory succeeded")
	}
	if b, _ = os.ReadFile(name); string(b) != "two" {
		t.Errorf("old content lost: %q", b)
	}
}
