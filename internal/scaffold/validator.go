package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/boardsync/internal/config"
)

// CheckExisting returns an error if dir already holds a boardsync.yml.
func CheckExisting(dir string) error {
	path := filepath.Join(dir, config.DefaultFileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("boardsync already initialized\n\nFound existing: %s\n\nUse 'boardsync init --force' to reinitialize (this will overwrite existing configuration)", config.DefaultFileName)
	}
	return nil
}
