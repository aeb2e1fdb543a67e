package flags

// Package flags defines canonical CLI flag names shared across commands.
// Keeping these as constants helps avoid drift between Cobra flag wiring and
// other code paths that reference flags in help text or logs.
// IMPORTANT: These are flag *names* without leading dashes.
const (
	// Runtime overrides (environment remains the source of truth; flags win
	// when set explicitly)
	FlagInterval    = "interval"
	FlagConcurrency = "concurrency"
	FlagTimeout     = "source-timeout"
	FlagDryRun      = "dry-run"

	// Dashboard
	FlagAddr = "addr"
)
