package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/shaderkit/cmd/embed-strings/lib"
)

// ConfigEnv names the variable holding the config file path
const ConfigEnv = "EMBED_STRINGS_CONFIG"

// Config holds all settings for embed-strings besides the two directories
type Config struct {
	Suffix      string   `env:"EMBED_STRINGS_SUFFIX" json:"suffix" toml:"suffix" yaml:"suffix"`
	Encoding    string   `env:"EMBED_STRINGS_ENCODING" json:"encoding" toml:"encoding" yaml:"encoding"`
	Exclude     []string `env:"EMBED_STRINGS_EXCLUDE" envSeparator:"," json:"exclude" toml:"exclude" yaml:"exclude"`
	OnError     string   `env:"EMBED_STRINGS_ON_ERROR" json:"on_error" toml:"on_error" yaml:"on_error"`
	OnCollision string   `env:"EMBED_STRINGS_ON_COLLISION" json:"on_collision" toml:"on_collision" yaml:"on_collision"`
	Manifest    string   `env:"EMBED_STRINGS_MANIFEST" json:"manifest" toml:"manifest" yaml:"manifest"`
	Quiet       bool     `env:"EMBED_STRINGS_QUIET" json:"quiet" toml:"quiet" yaml:"quiet"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Suffix:      lib.DefaultSuffix,
		Encoding:    "utf-8",
		OnError:     string(lib.AbortOnError),
		OnCollision: string(lib.FailOnCollision),
	}
}

// Load builds the configuration from the defaults, the config file (when
// filename is set) and the environment, in that order of precedence.
func Load(filename string) (Config, error) {
	cfg := Default()
	if filename != "" {
		if err := LoadFile(filename, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := FromEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile overlays the settings of a TOML, YAML or JSON file onto cfg.
// Keys missing from the file leave cfg unchanged.
func LoadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg)
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		err = decoder.Decode(cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(cfg)
	default:
		return fmt.Errorf("unsupported config file type %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

// FromEnv overlays EMBED_STRINGS_* environment variables onto cfg
func FromEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate checks the policies, the encoding and the exclude patterns
func (c Config) Validate() error {
	_, err := c.Options(nil)
	return err
}

// Options converts the configuration into run options
func (c Config) Options(logger *log.Logger) (lib.Options, error) {
	onError, err := lib.ParseErrorPolicy(c.OnError)
	if err != nil {
		return lib.Options{}, err
	}
	onCollision, err := lib.ParseCollisionPolicy(c.OnCollision)
	if err != nil {
		return lib.Options{}, err
	}
	if err := lib.ValidEncoding(c.Encoding); err != nil {
		return lib.Options{}, err
	}
	for _, pattern := range c.Exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			return lib.Options{}, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}
	if c.Suffix == "" {
		return lib.Options{}, errors.New("suffix must not be empty")
	}

	opts := lib.Options{
		Suffix:      c.Suffix,
		Encoding:    c.Encoding,
		Exclude:     c.Exclude,
		OnError:     onError,
		OnCollision: onCollision,
	}
	if !c.Quiet {
		opts.Logger = logger
	}
	return opts, nil
}
