// Package scm is the surface a code-analysis host calls to learn about the
// git work tree it analyses: blame, branch changes, fork point and revision.
package scm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/gitscm/pkg/blame"
	"github.com/Sumatoshi-tech/gitscm/pkg/branchdiff"
	"github.com/Sumatoshi-tech/gitscm/pkg/forkpoint"
	"github.com/Sumatoshi-tech/gitscm/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitscm/pkg/ignore"
	"github.com/Sumatoshi-tech/gitscm/pkg/observability"
	"github.com/Sumatoshi-tech/gitscm/pkg/refs"
	"github.com/Sumatoshi-tech/gitscm/pkg/warnings"
)

// Key identifies this provider to the host.
const Key = "git"

// Host API versions that introduced each capability.
const (
	BranchDiffSinceVersion = "7.6"
	ForkPointSinceVersion  = "7.7"
)

// Options configure a Provider.
type Options struct {
	// HostVersion is the host API version; it gates optional operations and
	// warning delivery.
	HostVersion string
	// Warn delivers user-facing warnings to the host. Nil disables them.
	Warn warnings.Callback
	// CircleCI prefers refs/remotes/origin when resolving target branches.
	CircleCI bool
	// Workers bounds blame parallelism; zero or less uses one per CPU.
	Workers int
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.SCMMetrics
}

// Capabilities lists the optional operations the host version supports.
type Capabilities struct {
	BranchChangedFiles bool
	BranchChangedLines bool
	ForkPoint          bool
}

// Provider answers host queries about git work trees. It is safe for
// concurrent use; every call opens and frees its own repository handles.
type Provider struct {
	caps    Capabilities
	warn    warnings.Sink
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.SCMMetrics
	blame   *blame.Engine
	diff    *branchdiff.Engine
	refOpts refs.Options
}

// New builds a provider.
func New(opts Options) *Provider {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(Key)
	}

	warn := warnings.Select(opts.HostVersion, opts.Warn, logger)

	return &Provider{
		caps:    probe(opts.HostVersion, logger),
		warn:    warn,
		logger:  logger,
		tracer:  tracer,
		metrics: opts.Metrics,
		blame:   blame.NewEngine(opts.Workers, warn, logger),
		diff:    branchdiff.New(opts.CircleCI, warn, logger),
		refOpts: refs.Options{PromoteRemote: opts.CircleCI, Logger: logger},
	}
}

func probe(hostVersion string, logger *slog.Logger) Capabilities {
	atLeast := func(minimum string) bool {
		ok, err := warnings.AtLeast(hostVersion, minimum)
		if err != nil {
			logger.Debug("unparseable host version", "version", hostVersion, "error", err)

			return false
		}

		return ok
	}

	forkPoint := atLeast(ForkPointSinceVersion)

	return Capabilities{
		BranchChangedFiles: atLeast(BranchDiffSinceVersion),
		BranchChangedLines: forkPoint,
		ForkPoint:          forkPoint,
	}
}

// Key returns the provider key.
func (p *Provider) Key() string {
	return Key
}

// Capabilities reports the optional operations available to the host.
func (p *Provider) Capabilities() Capabilities {
	return p.caps
}

// Supports reports whether dir lies inside a git work tree.
func (p *Provider) Supports(dir string) bool {
	return gitlib.IsInsideWorkTree(dir)
}

// Blame blames files and delivers results to out. Files left without blame
// information are listed in a single warning log.
func (p *Provider) Blame(ctx context.Context, baseDir string, files []blame.InputFile, out blame.Output) (err error) {
	ctx, op := p.begin(ctx, OpBlame, attribute.Int("scm.files", len(files)))
	defer func() { op.end(ctx, err) }()

	collector := blame.NewCollector()

	err = p.blame.Blame(ctx, baseDir, files, tee{out, collector})
	if err != nil {
		return userError(baseDir, err)
	}

	missing := collector.LogMissing(p.logger, files)
	p.metrics.RecordBlame(ctx, len(files)-missing, missing)

	return nil
}

// BranchChangedFiles returns the sorted absolute paths of files HEAD added or
// modified since its merge base with branch. A nil result without error means
// the information is unavailable; the reason has been logged.
func (p *Provider) BranchChangedFiles(ctx context.Context, branch, baseDir string) (files []string, err error) {
	ctx, op := p.begin(ctx, OpBranchChangedFiles, attribute.String("scm.branch", branch))

	if !p.caps.BranchChangedFiles {
		p.logger.DebugContext(ctx, "branch changed files unsupported by host", "version_min", BranchDiffSinceVersion)
		op.unavailable(ctx)

		return nil, nil
	}

	defer func() { op.end(ctx, err) }()

	changed, err := p.diff.ChangedFiles(ctx, branch, baseDir)
	if err != nil {
		return nil, p.absorb(ctx, op, baseDir, err)
	}

	files = make([]string, 0, len(changed))
	for f := range changed {
		files = append(files, f)
	}

	slices.Sort(files)

	return files, nil
}

// BranchChangedLines returns, for each of files that changed since the merge
// base with branch, the sorted changed line numbers. A nil result without
// error means the information is unavailable.
func (p *Provider) BranchChangedLines(ctx context.Context, branch, baseDir string, files []string) (lines map[string][]int, err error) {
	ctx, op := p.begin(ctx, OpBranchChangedLines,
		attribute.String("scm.branch", branch),
		attribute.Int("scm.files", len(files)),
	)

	if !p.caps.BranchChangedLines {
		p.logger.DebugContext(ctx, "branch changed lines unsupported by host", "version_min", ForkPointSinceVersion)
		op.unavailable(ctx)

		return nil, nil
	}

	defer func() { op.end(ctx, err) }()

	changed, err := p.diff.ChangedLines(ctx, branch, baseDir, files)
	if err != nil {
		return nil, p.absorb(ctx, op, baseDir, err)
	}

	lines = make(map[string][]int, len(changed))

	for file, set := range changed {
		numbers := make([]int, 0, len(set))
		for n := range set {
			numbers = append(numbers, n)
		}

		slices.Sort(numbers)
		lines[file] = numbers
	}

	return lines, nil
}

// ForkPoint returns the fork point of HEAD. An empty branch considers every
// other branch of the repository; otherwise branch is resolved like a
// branch-diff target. A nil result without error means no fork point was found
// or the information is unavailable.
func (p *Provider) ForkPoint(ctx context.Context, baseDir, branch string) (fp *forkpoint.ForkPoint, err error) {
	ctx, op := p.begin(ctx, OpForkPoint, attribute.String("scm.branch", branch))

	if !p.caps.ForkPoint {
		p.logger.DebugContext(ctx, "fork point unsupported by host", "version_min", ForkPointSinceVersion)
		op.unavailable(ctx)

		return nil, nil
	}

	defer func() { op.end(ctx, err) }()

	repo, err := gitlib.Discover(baseDir)
	if err != nil {
		return nil, userError(baseDir, err)
	}
	defer repo.Free()

	if branch == "" {
		fp, err = forkpoint.Find(ctx, repo)
	} else {
		var target *gitlib.Reference

		target, err = refs.Resolve(repo, branch, p.refOpts, p.warn)
		if err == nil {
			fp, err = forkpoint.FindWith(ctx, repo, *target)
		}
	}

	if err != nil {
		return nil, p.absorb(ctx, op, baseDir, err)
	}

	return fp, nil
}

// RelativePathFromScmRoot returns path relative to the root of its work tree.
// The root itself yields "".
func (p *Provider) RelativePathFromScmRoot(path string) (rel string, err error) {
	ctx, op := p.begin(context.Background(), OpRelativePath)
	defer func() { op.end(ctx, err) }()

	repo, err := gitlib.Discover(path)
	if err != nil {
		return "", userError(path, err)
	}
	defer repo.Free()

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	rel, err = filepath.Rel(repo.WorkDir(), abs)
	if err != nil {
		return "", err
	}

	if rel == "." {
		return "", nil
	}

	return rel, nil
}

// RevisionID returns the hex object id HEAD points to, or "" when HEAD has no
// object yet.
func (p *Provider) RevisionID(path string) (id string, err error) {
	ctx, op := p.begin(context.Background(), OpRevisionID)
	defer func() { op.end(ctx, err) }()

	repo, err := gitlib.Discover(path)
	if err != nil {
		return "", userError(path, err)
	}
	defer repo.Free()

	head, ok, err := repo.HeadTarget()
	if err != nil {
		return "", fmt.Errorf("I/O error while getting revision ID for path: %s: %w", path, err)
	}

	if !ok {
		return "", nil
	}

	return head.String(), nil
}

// IgnoreFilter snapshots the files git ignores in the work tree of baseDir.
func (p *Provider) IgnoreFilter(baseDir string) (filter *ignore.Filter, err error) {
	ctx, op := p.begin(context.Background(), OpIgnoreFilter)
	defer func() { op.end(ctx, err) }()

	filter, err = ignore.New(baseDir, p.logger)
	if err != nil {
		return nil, userError(baseDir, err)
	}

	return filter, nil
}

// absorb turns a failed optional query into "no information": a missing
// repository stays an error for the user, anything else is logged.
func (p *Provider) absorb(ctx context.Context, op *operation, baseDir string, err error) error {
	op.failed = err

	if errors.Is(err, gitlib.ErrNotInWorkTree) {
		return notInWorkTree(baseDir, err)
	}

	// Both were already reported to the user.
	if !errors.Is(err, refs.ErrRefNotFound) && !errors.Is(err, branchdiff.ErrUnsupportedDiffAlgorithm) {
		p.logger.WarnContext(ctx, err.Error(), "error", err)
	}

	return nil
}

// tee forwards blame results to the host and to the provider's collector.
type tee struct {
	host      blame.Output
	collector *blame.Collector
}

func (t tee) BlameResult(file blame.InputFile, lines []blame.Line) {
	t.collector.BlameResult(file, lines)

	if t.host != nil {
		t.host.BlameResult(file, lines)
	}
}
