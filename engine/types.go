package engine

import (
	"time"

	"github.com/speakeasy-api/symcore"
)

// Options configures an evaluation engine.
type Options struct {
	// Limits
	RecursionLimit int // Max nesting of evaluate calls (default: 256)
	IterationLimit int // Max rewrites of one fixpoint loop (default: 4096)

	// Informational only; echoed in logs and spans. Filled by the host.
	SessionID string

	// Passed through to the AST conversion step; the engine itself ignores it.
	RelaxedSyntax bool

	// Default deadline for RunConstrained when the caller passes Forever.
	// Zero means no limit.
	Timeout time.Duration

	// Logging configuration
	LogLevel        string // "error", "warn", "info", "debug" (default: "warn")
	LogPreviewWidth int    // Max display width of expression previews in logs (default: 60)
	Logger          Logger // Overrides LogLevel when set
}

// Result is the outcome of a successful top-level evaluation.
type Result struct {
	Expr     symcore.Expr // The reduced expression
	Void     bool         // True when Expr is the no-output sentinel
	Warnings []string     // Non-fatal conditions, e.g. iteration limit reached
	Elapsed  time.Duration
}

// DefaultOptions returns the default engine configuration.
func DefaultOptions() Options {
	return Options{
		RecursionLimit:  256,
		IterationLimit:  4096,
		LogLevel:        "warn",
		LogPreviewWidth: 60,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RecursionLimit <= 0 {
		o.RecursionLimit = d.RecursionLimit
	}
	if o.IterationLimit <= 0 {
		o.IterationLimit = d.IterationLimit
	}
	if o.LogPreviewWidth <= 0 {
		o.LogPreviewWidth = d.LogPreviewWidth
	}
	return o
}
