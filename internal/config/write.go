package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteDefaultConfig writes the commented default configuration to path.
// An existing file is left alone and reported with created == false.
func WriteDefaultConfig(path string) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	if err := writeFileAtomic(path, []byte(defaultConfigTemplate)); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}

// WriteConfig serializes cfg to path, replacing any existing file. Comments
// in the old file are not preserved.
func WriteConfig(path string, cfg *Config) error {
	data, err := MarshalConfig(cfg)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a sibling temp file and renames it over
// path, so a reader never sees a half-written config. The parent directory
// is created with user-only permissions and the file with 0600.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Chmod(0o600); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
