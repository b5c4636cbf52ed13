package config

import (
	_ "embed"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/logging"
	"github.com/sysforge/sysforge/pkg/paths"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "SYSFORGE_"

// envOverrides is the fixed table of configuration paths that may be
// overridden from the environment. SYSFORGE_DOTFILES_CHECKSUM maps to
// dotfiles.checksum and so on; variables outside this table are ignored.
var envOverrides = map[string]string{
	"PACKAGES_ADDITIONAL_PACKAGES": "packages.additional_packages",
	"SECURITY_PROFILE":             "security.profile",
	"DOTFILES_GDRIVE_ID":           "dotfiles.gdrive_id",
	"DOTFILES_CHECKSUM":            "dotfiles.checksum",
	"DOTFILES_CHECKSUM_REQUIRED":   "dotfiles.checksum_required",
	"STATE_FILE":                   "state.file",
	"SHELL_DEFAULT":                "shell.default",
}

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, stderrors.New("not implemented")
}

// Load builds the effective configuration. explicitPath, when non-empty,
// must exist; otherwise the candidate paths are searched and the first
// existing file is used. No file at all is fine: defaults plus environment.
func Load(explicitPath string) (*Config, error) {
	logger := logging.GetLogger("config")

	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load built-in defaults")
	}

	configPath, err := resolveConfigPath(explicitPath)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse config file %s", configPath)
		}
		logger.Debug().Str("path", configPath).Msg("Loaded config file")
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envOverrides[strings.TrimPrefix(s, EnvPrefix)]
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	return unmarshal(k)
}

// FromMap builds a Config from a plain map layered over the defaults.
// Used by tests and programmatic callers.
func FromMap(values map[string]interface{}) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load built-in defaults")
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load override map")
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Security.Profile {
	case ProfileNormal, ProfileStrict, ProfileReduced:
	default:
		return errors.Newf(errors.ErrConfigParse,
			"invalid security.profile %q (want normal, strict or reduced)", cfg.Security.Profile)
	}
	return nil
}

// resolveConfigPath picks the config file to load. An explicit path that
// does not exist is a hard error; search candidates are optional.
func resolveConfigPath(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", errors.Wrapf(err, errors.ErrConfigLoad, "config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	for _, candidate := range paths.ConfigCandidates() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}
