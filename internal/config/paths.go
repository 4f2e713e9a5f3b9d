package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/the-split-must-flow/internal/common"
)

const databaseFile = "split.db"

// DefaultDatabasePath returns $XDG_DATA_HOME/split/split.db, or
// ~/.local/share/split/split.db when XDG_DATA_HOME is unset or relative.
func DefaultDatabasePath() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, "split", databaseFile), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: cannot locate default database: %v", common.ErrMissingConfig, err)
	}
	return filepath.Join(home, ".local", "share", "split", databaseFile), nil
}

// ResolvePath expands $VARS and a leading ~ in path.
func ResolvePath(path string) (string, error) {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: cannot expand %q: %v", common.ErrMissingConfig, path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// resolvePaths fills in the default database location and expands both paths.
func (s *Settings) resolvePaths() error {
	var err error
	if s.DatabasePath == "" {
		if s.DatabasePath, err = DefaultDatabasePath(); err != nil {
			return err
		}
	} else if s.DatabasePath, err = ResolvePath(s.DatabasePath); err != nil {
		return err
	}

	if s.OutputPath != "" {
		if s.OutputPath, err = ResolvePath(s.OutputPath); err != nil {
			return err
		}
	}
	return nil
}
