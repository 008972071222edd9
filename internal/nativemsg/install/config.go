package install

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// EnvConfig names a browsers.toml file that replaces the embedded table.
const EnvConfig = "NATIVE_MESSAGING_BROWSERS_CONFIG"

// schemaVersion is the only browsers.toml layout this package understands.
const schemaVersion = 1

//go:embed browsers.toml
var defaultBrowsers []byte

// Config is the browser table: where each browser looks for host manifests
// and how it is registered on Windows.
type Config struct {
	SchemaVersion int                      `toml:"schema_version"`
	Browsers      map[string]BrowserConfig `toml:"browsers"`
}

// BrowserConfig describes one browser.
type BrowserConfig struct {
	Family          Family         `toml:"family"`
	WindowsRegistry bool           `toml:"windows_registry"`
	Paths           PathsByOS      `toml:"paths"`
	Windows         *WindowsConfig `toml:"windows"`
}

type PathsByOS struct {
	MacOS   *Scopes `toml:"macos"`
	Linux   *Scopes `toml:"linux"`
	Windows *Scopes `toml:"windows"`
}

type Scopes struct {
	User   *PathEntry `toml:"user"`
	System *PathEntry `toml:"system"`
}

type PathEntry struct {
	Dir string `toml:"dir"`
}

type WindowsConfig struct {
	Registry *RegistryConfig `toml:"registry"`
}

// RegistryConfig holds registry key templates.  "{name}" is replaced with the
// host name.
type RegistryConfig struct {
	HKCUKeyTemplate string `toml:"hkcu_key_template"`
	HKLMKeyTemplate string `toml:"hklm_key_template"`
}

// ParseConfig decodes and checks a browsers.toml document.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse browsers config: %w", err)
	}
	if cfg.SchemaVersion != schemaVersion {
		return nil, fmt.Errorf("unsupported browsers config schema_version %d (expected %d)", cfg.SchemaVersion, schemaVersion)
	}
	for key, b := range cfg.Browsers {
		if !b.Family.valid() {
			return nil, fmt.Errorf("unknown browser family %q for browser %q", b.Family, key)
		}
	}
	return &cfg, nil
}

// LoadConfig reads a browsers.toml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load browsers config: %w", err)
	}
	return ParseConfig(data)
}

// DefaultConfig returns the embedded browser table, or the file named by
// NATIVE_MESSAGING_BROWSERS_CONFIG if lookupEnv finds it set.  A nil
// lookupEnv means os.LookupEnv.
func DefaultConfig(lookupEnv func(string) (string, bool)) (*Config, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if p, ok := lookupEnv(EnvConfig); ok && p != "" {
		return LoadConfig(p)
	}
	return ParseConfig(defaultBrowsers)
}

// Keys returns the configured browser keys in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.Browsers))
	for k := range c.Browsers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// browser looks up a browser by key.
func (c *Config) browser(key Browser) (BrowserConfig, error) {
	b, ok := c.Browsers[string(key)]
	if !ok {
		return BrowserConfig{}, fmt.Errorf("%w: %s", ErrUnknownBrowser, key)
	}
	return b, nil
}
