// Package install writes, verifies and removes native messaging host
// manifests so that browsers can find a host binary.
//
// Locations come from a browser table (see Config).  On Windows each browser
// also needs a registry pointer to the manifest, which goes through a
// RegistryStore.
package install

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
)

// Installer places manifests according to a browser table.
type Installer struct {
	cfg       *Config
	goos      string
	lookupEnv func(string) (string, bool)
	reg       RegistryStore
	log       zerolog.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithGOOS overrides the target OS ("darwin", "linux" or "windows").
func WithGOOS(goos string) Option {
	return func(in *Installer) { in.goos = goos }
}

// WithLookupEnv overrides how directory template variables are resolved.
func WithLookupEnv(f func(string) (string, bool)) Option {
	return func(in *Installer) { in.lookupEnv = f }
}

// WithRegistry overrides the registry store.
func WithRegistry(r RegistryStore) Option {
	return func(in *Installer) { in.reg = r }
}

// WithLogger sets the logger for install diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(in *Installer) { in.log = log }
}

// NewInstaller returns an Installer for cfg.  By default it targets the
// running OS, reads the process environment and uses SystemRegistry.
func NewInstaller(cfg *Config, opts ...Option) (*Installer, error) {
	if cfg == nil {
		return nil, errors.New("install: nil browsers config")
	}
	in := &Installer{
		cfg:       cfg,
		goos:      runtime.GOOS,
		lookupEnv: os.LookupEnv,
		reg:       SystemRegistry(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in, nil
}

// Config returns the browser table the installer was built with.
func (in *Installer) Config() *Config {
	return in.cfg
}

// Options describes one host install.
type Options struct {
	Manifest Manifest
	Browsers []Browser
	Scope    Scope
}

// Install writes a manifest for each browser, creating directories as
// needed, and registers it where the browser requires a registry pointer.
func (in *Installer) Install(o Options) error {
	m := o.Manifest
	if !ValidateName(m.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, m.Name)
	}
	if (in.goos == "darwin" || in.goos == "linux") && !filepath.IsAbs(m.Path) {
		return fmt.Errorf("%w: %q", ErrRelativePath, m.Path)
	}

	for _, browser := range o.Browsers {
		b, err := in.cfg.browser(browser)
		if err != nil {
			return err
		}
		manifestPath, err := in.ManifestPath(browser, o.Scope, m.Name)
		if err != nil {
			return err
		}
		buf, err := m.Marshal(b.Family)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
			return fmt.Errorf("creating manifest dir: %w", err)
		}
		if err := os.WriteFile(manifestPath, buf, 0o644); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}
		in.log.Debug().Str("browser", string(browser)).Str("path", manifestPath).Msg("wrote manifest")

		key, ok, err := in.RegistryKey(browser, o.Scope, m.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		reg, err := in.registry()
		if err != nil {
			return err
		}
		if err := reg.SetManifestPath(o.Scope, key, manifestPath); err != nil {
			return fmt.Errorf("registering %s: %w", browser, err)
		}
		in.log.Debug().Str("browser", string(browser)).Str("key", key).Msg("wrote registry pointer")
	}
	return nil
}

// Remove deletes the manifest and any registry pointer for each browser.
// Removing a host that is not installed is not an error.
func (in *Installer) Remove(name string, browsers []Browser, scope Scope) error {
	for _, browser := range browsers {
		manifestPath, err := in.ManifestPath(browser, scope, name)
		if err != nil {
			return err
		}
		if err := os.Remove(manifestPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing manifest: %w", err)
		}

		key, ok, err := in.RegistryKey(browser, scope, name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		reg, err := in.registry()
		if err != nil {
			return err
		}
		if err := reg.Delete(scope, key); err != nil {
			return fmt.Errorf("unregistering %s: %w", browser, err)
		}
	}
	return nil
}

// Verify reports whether any of browsers (every configured browser when
// browsers is nil) can discover a well-shaped manifest for name.
func (in *Installer) Verify(name string, browsers []Browser, scope Scope) (bool, error) {
	all := browsers == nil
	if all {
		browsers = in.allBrowsers()
	}
	for _, browser := range browsers {
		st, err := in.check(browser, scope, name)
		if all && errors.Is(err, ErrNotConfigured) {
			continue
		}
		if err != nil {
			return false, err
		}
		if st.Installed {
			return true, nil
		}
	}
	return false, nil
}

// BrowserStatus is one row of an install report.
type BrowserStatus struct {
	Browser   Browser `json:"browser" yaml:"browser"`
	Family    Family  `json:"family" yaml:"family"`
	Path      string  `json:"path,omitempty" yaml:"path,omitempty"`
	Installed bool    `json:"installed" yaml:"installed"`
	Reason    string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Status reports, per browser, whether name is installed and if not, why.
// Browsers not configured for this OS are reported rather than failing.
func (in *Installer) Status(name string, browsers []Browser, scope Scope) ([]BrowserStatus, error) {
	if browsers == nil {
		browsers = in.allBrowsers()
	}
	out := make([]BrowserStatus, 0, len(browsers))
	for _, browser := range browsers {
		st, err := in.check(browser, scope, name)
		switch {
		case errors.Is(err, ErrNotConfigured):
			st.Reason = err.Error()
		case err != nil:
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// check locates and validates one browser's manifest.
func (in *Installer) check(browser Browser, scope Scope, name string) (BrowserStatus, error) {
	st := BrowserStatus{Browser: browser}
	b, err := in.cfg.browser(browser)
	if err != nil {
		return st, err
	}
	st.Family = b.Family

	key, viaRegistry, err := in.RegistryKey(browser, scope, name)
	if err != nil {
		return st, err
	}
	if viaRegistry {
		reg, err := in.registry()
		if err != nil {
			return st, err
		}
		p, ok, err := reg.ManifestPath(scope, key)
		if err != nil {
			return st, fmt.Errorf("reading registry for %s: %w", browser, err)
		}
		if !ok {
			st.Reason = "registry key missing"
			return st, nil
		}
		st.Path = p
	} else {
		if st.Path, err = in.ManifestPath(browser, scope, name); err != nil {
			return st, err
		}
	}

	data, err := os.ReadFile(st.Path)
	if errors.Is(err, fs.ErrNotExist) {
		st.Reason = "manifest missing"
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("reading manifest: %w", err)
	}

	reason, err := checkManifest(data, b.Family, name, in.goos)
	if err != nil {
		return st, fmt.Errorf("%s: %w", st.Path, err)
	}
	st.Reason = reason
	st.Installed = reason == ""
	return st, nil
}

func (in *Installer) allBrowsers() []Browser {
	keys := in.cfg.Keys()
	bs := make([]Browser, len(keys))
	for i, k := range keys {
		bs[i] = Browser(k)
	}
	return bs
}

func (in *Installer) registry() (RegistryStore, error) {
	if in.reg == nil {
		return nil, errors.New("install: no registry store available")
	}
	return in.reg, nil
}
