// Package services defines shared utilities consumed by the pipeline stages and
// external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, stage names, and the source
//     video for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     as retryable infrastructure faults or fatal usage/data faults.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
