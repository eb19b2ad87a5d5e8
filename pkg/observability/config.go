// Package observability provides OpenTelemetry tracing and metrics plus the
// structured slog logger shared by the gitscm CLI and library callers.
package observability

import "log/slog"

// AppMode identifies how the code is being driven.
type AppMode string

const (
	// ModeCLI is the gitscm command line.
	ModeCLI AppMode = "cli"
	// ModeLibrary is an in-process host calling the scm provider.
	ModeLibrary AppMode = "library"
)

const (
	defaultServiceName        = "gitscm"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Mode           AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export; providers become no-op.
	OTLPEndpoint string
	OTLPInsecure bool

	// SampleRatio is the root trace sampling ratio. Zero samples everything.
	SampleRatio float64

	LogLevel slog.Level
	LogJSON  bool

	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
