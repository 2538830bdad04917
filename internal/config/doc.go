// Package config loads, normalizes, and validates captioner configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HF_TOKEN and CAPTIONER_MODELS_DIR. The Config value is built once by the CLI
// and handed to each component's constructor; nothing in the tree reads
// configuration from package-level state.
package config
