package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// GetWorkDir resolves and creates the directory holding the bot's state.
func GetWorkDir(base string, path ...string) (string, error) {
	workDir, err := homedir.Expand(filepath.Join(append([]string{base}, path...)...))
	if err != nil {
		return "", fmt.Errorf("expand work dir: %w", err)
	}
	if err = os.MkdirAll(workDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	return workDir, nil
}
