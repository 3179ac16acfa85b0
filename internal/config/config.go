// Package config loads the optional docker-image-cp configuration file.
//
// The file supplies defaults for values that are tedious to repeat on every
// invocation, such as a non-standard engine binary or build flags that a
// project always needs. Command-line flags always win over the file.
//
// Both JSON (with comments, JSONC) and YAML are accepted; the format is
// chosen from the file extension.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no
// --config flag is given.
const EnvConfigPath = "DOCKER_IMAGE_CP_CONFIG"

// File is the on-disk configuration. Pointer fields distinguish "unset"
// from the zero value so that a file can turn cleanup off without the
// absence of the key doing the same.
type File struct {
	// Docker is the engine binary (name or path), e.g. "podman".
	Docker string `json:"docker,omitempty" yaml:"docker,omitempty"`

	// Cleanup controls removal of the container and built image.
	Cleanup *bool `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`

	// BuildArgs are extra "docker build" arguments applied before any
	// given with --build-arg.
	BuildArgs []string `json:"buildArgs,omitempty" yaml:"buildArgs,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	// LogFormat is one of console, json, dev, none.
	LogFormat string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
}

// ResolvePath returns the config file path to load: the explicit flag
// value if set, otherwise $DOCKER_IMAGE_CP_CONFIG. An empty result means
// no config file is used.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfigPath)
}

// Load reads and parses the config file at path. An empty path yields an
// empty File.
func Load(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data, filepath.Ext(path))
}

// Parse decodes config data in the format implied by ext
// (".json", ".jsonc", ".yaml" or ".yml").
func Parse(data []byte, ext string) (*File, error) {
	var f File

	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		// Strip // and /* */ comments and trailing commas first.
		if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (valid: .json, .jsonc, .yaml, .yml)", ext)
	}

	return &f, nil
}

// CleanupOr returns the configured cleanup setting, or def when unset.
func (f *File) CleanupOr(def bool) bool {
	if f.Cleanup == nil {
		return def
	}
	return *f.Cleanup
}
