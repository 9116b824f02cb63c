package db

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultBaseDir resolves the directory the .moneyai data dir lives under.
// MONEYAI_HOME overrides the user home directory, which keeps tests and
// throwaway sandboxes away from real data.
func DefaultBaseDir() (string, error) {
	if dir := os.Getenv("MONEYAI_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return home, nil
}

// DataDir returns the .moneyai directory under the base dir.
func DataDir(baseDir string) string {
	return filepath.Join(baseDir, ".moneyai")
}

// Exists reports whether the database file is present under baseDir.
func Exists(baseDir string) bool {
	_, err := os.Stat(filepath.Join(baseDir, dbFile))
	return err == nil
}
