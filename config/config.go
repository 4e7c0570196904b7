package config

import (
	"os"
	"strings"

	"github.com/wippyai/evemu/errors"
)

// Environment variables consulted by FromEnv.
const (
	EnvLibrary = "EVEMU_LIBRARY"
	EnvUinput  = "EVEMU_UINPUT"
)

// DefaultUinputPath is the uinput node used when EVEMU_UINPUT is unset.
const DefaultUinputPath = "/dev/uinput"

// Config holds the locations the binding needs at runtime.
type Config struct {
	// LibraryPath is the libevemu shared object to load. It must be set
	// explicitly; the library is never searched for.
	LibraryPath string

	// UinputPath is the node opened to create virtual devices.
	UinputPath string
}

// FromEnv reads EVEMU_LIBRARY and EVEMU_UINPUT.
func FromEnv() Config {
	cfg := Config{
		LibraryPath: strings.TrimSpace(os.Getenv(EnvLibrary)),
		UinputPath:  strings.TrimSpace(os.Getenv(EnvUinput)),
	}
	if cfg.UinputPath == "" {
		cfg.UinputPath = DefaultUinputPath
	}
	return cfg
}

// WithLibrary returns a copy of c using path when path is non-empty, so a
// command line flag takes precedence over the environment.
func (c Config) WithLibrary(path string) Config {
	if path = strings.TrimSpace(path); path != "" {
		c.LibraryPath = path
	}
	return c
}

// Validate reports a not_configured error when the library path is missing.
func (c Config) Validate() error {
	if c.LibraryPath == "" {
		return errors.NotConfigured("library path",
			"pass -lib or set "+EnvLibrary+" to the libevemu shared object")
	}
	if c.UinputPath == "" {
		return errors.NotConfigured("uinput path", "set "+EnvUinput)
	}
	return nil
}
