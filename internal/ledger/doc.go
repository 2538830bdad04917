// Package ledger persists verification results for downloaded model artifacts.
//
// Each row records the size, modification time, and sha256 digest of a file
// at the moment it last verified. The acquisition manager consults the ledger
// to avoid rehashing multi-gigabyte checkpoints on every run; any change in
// size or mtime invalidates the cached digest.
package ledger
