// Package models acquires and verifies the checkpoint files the transcription
// engine loads.
//
// A Registry maps model names to a download locator and the expected sha256
// digest. Manager.Acquire makes a named model available under
// <models_dir>/<provider>/<file>: existing files whose digest matches are
// reused without network access, failed transfers are retried once, and a
// digest mismatch after download earns exactly one more download before the
// acquisition fails with services.ErrIntegrity. Verified digests are cached
// in the SQLite ledger keyed by size and mtime so repeated runs do not rehash
// multi-gigabyte files, and an advisory file lock keeps concurrent processes
// from downloading the same artifact at once.
package models
