// Package warnings forwards user-facing analysis warnings to the host,
// reporting each distinct message once per process.
package warnings

import (
	"log/slog"

	"github.com/Masterminds/semver"
	"github.com/patrickmn/go-cache"
)

// MinHostVersion is the first host API version that accepts analysis warnings.
const MinHostVersion = "7.4"

// Sink receives user-facing warnings.
type Sink interface {
	AddUnique(msg string)
}

// Callback delivers a warning to the host.
type Callback func(msg string)

// Active forwards each distinct message to the host exactly once.
type Active struct {
	seen     *cache.Cache
	callback Callback
}

// NewActive returns a deduplicating sink around callback.
func NewActive(callback Callback) *Active {
	return &Active{
		seen:     cache.New(cache.NoExpiration, 0),
		callback: callback,
	}
}

// AddUnique forwards msg unless it was already reported.
func (a *Active) AddUnique(msg string) {
	if a.seen.Add(msg, struct{}{}, cache.NoExpiration) != nil {
		return
	}

	a.callback(msg)
}

// Noop discards every warning.
type Noop struct{}

// AddUnique implements Sink.
func (Noop) AddUnique(string) {}

// Select picks the sink matching the host's reported API version: hosts at
// MinHostVersion or later get an Active sink, older or unparseable versions
// and a nil callback get Noop.
func Select(hostVersion string, callback Callback, logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}

	if callback == nil {
		return Noop{}
	}

	ok, err := AtLeast(hostVersion, MinHostVersion)
	if err != nil {
		logger.Debug("unparseable host version, warnings disabled", "version", hostVersion, "error", err)

		return Noop{}
	}

	if !ok {
		return Noop{}
	}

	return NewActive(callback)
}

// AtLeast reports whether version is greater than or equal to minimum.
// Versions may omit minor and patch components.
func AtLeast(version, minimum string) (bool, error) {
	constraint, err := semver.NewConstraint(">= " + minimum)
	if err != nil {
		return false, err
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}

	return constraint.Check(v), nil
}
