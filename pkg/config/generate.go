package config

import (
	"os"
	"path/filepath"

	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/sysforge/sysforge/pkg/errors"
)

const generatedHeader = `# sysforge configuration.
# Values here override the built-in defaults; SYSFORGE_* environment
# variables override both. See sysforge.toml(5) keys below.

`

// WriteDefault writes a starter configuration file with the built-in
// defaults spelled out, for users to edit. Refuses to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Newf(errors.ErrAlreadyExists, "config file already exists: %s", path)
	}

	cfg, err := Load("")
	if err != nil {
		return err
	}

	data, err := gotoml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode default config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrConfigLoad, "failed to create config directory")
	}
	if err := os.WriteFile(path, append([]byte(generatedHeader), data...), 0644); err != nil {
		return errors.Wrap(err, errors.ErrConfigLoad, "failed to write config file")
	}
	return nil
}
