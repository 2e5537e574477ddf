package options

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the name of the structured-data file holding a store's resolved
// configuration, written by `ignitedb init` and read by every other subcommand.
const ConfigFileName = "config.json"

// ConfigPath returns the path to config.json under dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// Load reads and validates config.json from dataDir.
func Load(dataDir string) (*Options, error) {
	path := ConfigPath(dataDir)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("options: reading %s: %w", path, err)
	}

	var opts Options
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("options: parsing %s: %w", path, err)
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Save serializes opts to config.json under opts.DataDir, creating the directory if
// necessary. Called by `ignitedb init` so later subcommands load a fully-resolved
// configuration instead of re-deriving defaults silently.
func Save(opts *Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return fmt.Errorf("options: creating data dir %s: %w", opts.DataDir, err)
	}

	raw, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return fmt.Errorf("options: marshaling config: %w", err)
	}

	path := ConfigPath(opts.DataDir)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("options: writing %s: %w", path, err)
	}
	return nil
}
