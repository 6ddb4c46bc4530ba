//go:build !windows

package fileutil

import (
	"fmt"
	"os"
)

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed os.Open dir: %w", err)
	}
	err = f.Sync()
	cerr := f.Close()
	if err != nil {
		return fmt.Errorf("failed f.Sync dir: %w", err)
	}
	if cerr != nil {
		return fmt.Errorf("failed f.Close dir: %w", cerr)
	}
	return nil
}
