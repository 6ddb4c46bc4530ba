// Package fileutil flushes files and directories to stable storage.
package fileutil

import (
	"fmt"
	"os"
)

// SyncFileName flushes named file.
func SyncFileName(fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("failed os.Open %q: %w", fname, err)
	}
	err = f.Sync()
	cerr := f.Close()
	if err != nil {
		return fmt.Errorf("failed f.Sync %q: %w", fname, err)
	}
	if cerr != nil {
		return fmt.Errorf("failed f.Close %q: %w", fname, cerr)
	}
	return nil
}

// SyncDir flushes directory entries, making renames into dir durable.
func SyncDir(dir string) error {
	return syncDir(dir)
}

// WriteFileSync writes data to tmp, flushes it and renames it over name.
// On failure tmp is removed and name is left untouched.
func WriteFileSync(name, tmp string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, name)
	}
	if err != nil {
		os.Remove(tmp)
	}
	return err
}
