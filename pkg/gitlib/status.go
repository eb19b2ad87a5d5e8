package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// IgnoredPaths returns the work-tree files matched by ignore rules, as slash
// separated paths relative to the work-tree root. Ignored directories are
// expanded into the files they contain.
func (r *Repository) IgnoredPaths() ([]string, error) {
	list, err := r.repo.StatusList(&git2go.StatusOptions{
		Show:  git2go.StatusShowWorkdirOnly,
		Flags: git2go.StatusOptIncludeIgnored | git2go.StatusOptRecurseIgnoredDirs,
	})
	if err != nil {
		return nil, fmt.Errorf("status list: %w", err)
	}
	defer list.Free()

	count, err := list.EntryCount()
	if err != nil {
		return nil, fmt.Errorf("status count: %w", err)
	}

	var ignored []string

	for i := range count {
		entry, entryErr := list.ByIndex(i)
		if entryErr != nil {
			return nil, fmt.Errorf("status entry %d: %w", i, entryErr)
		}

		if entry.Status&git2go.StatusIgnored == 0 {
			continue
		}

		path := entry.IndexToWorkdir.NewFile.Path
		if path == "" {
			path = entry.IndexToWorkdir.OldFile.Path
		}

		ignored = append(ignored, path)
	}

	return ignored, nil
}
