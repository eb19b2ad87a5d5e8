// Package refs resolves a target branch name to the first existing ref among
// the local, origin and upstream namespaces.
package refs

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitscm/pkg/warnings"
)

// ErrRefNotFound is returned when no candidate ref exists.
var ErrRefNotFound = errors.New("ref not found")

const (
	originPrefix   = gitlib.RemotePrefix + "origin/"
	upstreamPrefix = gitlib.RemotePrefix + "upstream/"

	notFoundWarning = "Could not find ref '%s' in refs/heads, refs/remotes/upstream or refs/remotes/origin. " +
		"You may see unexpected issues and changes. Please make sure to fetch this ref before pull request analysis."
)

// Options tune candidate ordering.
type Options struct {
	// PromoteRemote tries refs/remotes/origin before refs/heads. Some CI
	// providers delete the local branch after checkout.
	PromoteRemote bool
	Logger        *slog.Logger
}

// Candidates lists the full ref names tried for branch, in order.
func Candidates(branch string, opts Options) []string {
	local := gitlib.LocalPrefix + branch
	origin := originPrefix + branch
	upstream := upstreamPrefix + branch

	if opts.PromoteRemote {
		return []string{origin, local, upstream}
	}

	return []string{local, origin, upstream}
}

// Resolve returns the first candidate ref that exists. When none does it
// reports a deduplicated warning through warn and returns ErrRefNotFound.
func Resolve(repo *gitlib.Repository, branch string, opts Options, warn warnings.Sink) (*gitlib.Reference, error) {
	for _, name := range Candidates(branch, opts) {
		ref, err := repo.ExactRef(name)
		if err != nil {
			return nil, err
		}

		if ref != nil {
			return ref, nil
		}
	}

	msg := fmt.Sprintf(notFoundWarning, branch)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Warn(msg)

	if warn != nil {
		warn.AddUnique(msg)
	}

	return nil, fmt.Errorf("%w: %s", ErrRefNotFound, branch)
}
