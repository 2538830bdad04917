// Package main hosts the captioner CLI entrypoint and command graph.
//
// Commands resolve configuration once through commandContext, open the model
// ledger when they need it, and hand the real work to internal/pipeline. Keep
// this package thin: behavior belongs in the internal packages and is surfaced
// here as flags and human-readable output.
package main
