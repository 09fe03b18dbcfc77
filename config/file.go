package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/kisa-team/gonka-wallet/log"
)

// ExpandHomeDir resolves a leading ~ (ex. ~/.gonka-wallet/config.yaml => /home/gonka/.gonka-wallet/config.yaml).
// Paths are returned unchanged when there is no home directory to resolve against.
func ExpandHomeDir(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func FileExists(path string) bool {
	return cmtos.FileExists(ExpandHomeDir(path))
}

// SafeWrite writes a file readable only by its owner, creating parent directories. An existing file is
// left untouched.
func SafeWrite(file string, contents []byte, logger *log.Logger) error {
	expanded := ExpandHomeDir(file)
	if cmtos.FileExists(expanded) {
		logger.Warn("skipping overwriting existing file", "file", expanded)
		return nil
	}

	dir := filepath.Dir(expanded)
	if err := cmtos.EnsureDir(dir, 0o700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(expanded, contents, 0o600); err != nil {
		return err
	}
	logger.Info("wrote file", "file", expanded)
	return nil
}
