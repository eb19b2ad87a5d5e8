package gitlib

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// ConfigString returns the value of a configuration key, or "" when unset.
func (r *Repository) ConfigString(key string) (string, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return "", fmt.Errorf("open config: %w", err)
	}
	defer cfg.Free()

	value, err := cfg.LookupString(key)
	if err != nil {
		if IsNotFound(err) {
			return "", nil
		}

		return "", fmt.Errorf("lookup config %s: %w", key, err)
	}

	return value, nil
}

// OverrideConfigBool sets a boolean key for this handle only. The value is
// layered above every on-disk level; the repository's config files are not
// written. libgit2 re-reads the scratch file that backs the override, so
// restore must only run once the handle is no longer used.
func (r *Repository) OverrideConfigBool(key string, value bool) (restore func(), err error) {
	section, name, ok := splitConfigKey(key)
	if !ok {
		return nil, fmt.Errorf("override config %q: key must be section.name", key)
	}

	scratch, err := os.CreateTemp("", "gitscm-config-*")
	if err != nil {
		return nil, fmt.Errorf("override config %s: %w", key, err)
	}

	path := scratch.Name()
	restore = func() { _ = os.Remove(path) } //nolint:errcheck // best-effort cleanup of a temp file.

	_, err = fmt.Fprintf(scratch, "[%s]\n\t%s = %s\n", section, name, strconv.FormatBool(value))
	closeErr := scratch.Close()

	if err == nil {
		err = closeErr
	}

	if err != nil {
		restore()

		return nil, fmt.Errorf("override config %s: %w", key, err)
	}

	cfg, err := r.repo.Config()
	if err != nil {
		restore()

		return nil, fmt.Errorf("open config: %w", err)
	}
	defer cfg.Free()

	err = cfg.AddFile(path, git2go.ConfigLevelApp, true)
	if err != nil {
		restore()

		return nil, fmt.Errorf("override config %s: %w", key, err)
	}

	return restore, nil
}

func splitConfigKey(key string) (section, name string, ok bool) {
	idx := strings.LastIndex(key, ".")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}

	return key[:idx], key[idx+1:], true
}
