package gitlib

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

const (
	gitmodulesFile     = ".gitmodules"
	submodulePathGlob  = `submodule\..*\.path`
	submoduleKeyPrefix = "submodule."
)

// SubmodulePaths returns the path of every submodule declared in the
// work tree's .gitmodules, slash separated and relative to the root. A missing
// .gitmodules yields no paths.
func (r *Repository) SubmodulePaths() ([]string, error) {
	file := filepath.Join(r.workDir, gitmodulesFile)

	_, err := os.Stat(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	cfg, err := git2go.OpenOndisk(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", gitmodulesFile, err)
	}
	defer cfg.Free()

	iter, err := cfg.NewIteratorGlob(submodulePathGlob)
	if err != nil {
		return nil, fmt.Errorf("iterate %s: %w", gitmodulesFile, err)
	}
	defer iter.Free()

	var paths []string

	for {
		entry, nextErr := iter.Next()
		if nextErr != nil {
			if hasCode(nextErr, git2go.ErrorCodeIterOver) {
				break
			}

			return nil, fmt.Errorf("iterate %s: %w", gitmodulesFile, nextErr)
		}

		if !strings.HasPrefix(entry.Name, submoduleKeyPrefix) {
			continue
		}

		path := strings.Trim(filepath.ToSlash(strings.TrimSpace(entry.Value)), "/")
		if path != "" {
			paths = append(paths, path)
		}
	}

	return paths, nil
}
