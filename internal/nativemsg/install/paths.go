package install

import (
	"fmt"
	"path/filepath"
	"strings"
)

// templateVars are the placeholders allowed in directory templates, each
// replaced by the environment variable of the same name.
var templateVars = []string{"HOME", "LOCALAPPDATA", "APPDATA", "PROGRAMDATA"}

// scopes returns the directory entries for goos, or nil.
func (p PathsByOS) scopes(goos string) *Scopes {
	switch goos {
	case "darwin":
		return p.MacOS
	case "linux":
		return p.Linux
	case "windows":
		return p.Windows
	}
	return nil
}

// resolveDir expands the placeholders in a directory template.  Only
// referenced variables are looked up; a referenced but unset variable is an
// error.
func resolveDir(tmpl string, lookupEnv func(string) (string, bool)) (string, error) {
	s := tmpl
	for _, v := range templateVars {
		token := "{" + v + "}"
		if !strings.Contains(s, token) {
			continue
		}
		val, ok := lookupEnv(v)
		if !ok || val == "" {
			return "", fmt.Errorf("env var %s not set (needed for %s)", v, token)
		}
		s = strings.ReplaceAll(s, token, val)
	}
	return s, nil
}

// ManifestDir returns the directory where browser looks for host manifests
// in the given scope.
func (in *Installer) ManifestDir(browser Browser, scope Scope) (string, error) {
	b, err := in.cfg.browser(browser)
	if err != nil {
		return "", err
	}

	scopes := b.Paths.scopes(in.goos)
	if scopes == nil {
		return "", fmt.Errorf("%w: %s on %s", ErrNotConfigured, browser, in.goos)
	}
	entry := scopes.User
	if scope == ScopeSystem {
		entry = scopes.System
	}
	if entry == nil || entry.Dir == "" {
		return "", fmt.Errorf("%w: %s %s scope on %s", ErrNotConfigured, browser, scope, in.goos)
	}
	return resolveDir(entry.Dir, in.lookupEnv)
}

// ManifestPath returns where browser looks for the manifest of host name in
// the given scope.
func (in *Installer) ManifestPath(browser Browser, scope Scope, name string) (string, error) {
	dir, err := in.ManifestDir(browser, scope)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

// RegistryKey returns the registry key, relative to HKCU or HKLM depending on
// scope, that points browser at the manifest.  ok is false when the browser
// is not registered through the registry.
func (in *Installer) RegistryKey(browser Browser, scope Scope, name string) (key string, ok bool, err error) {
	b, err := in.cfg.browser(browser)
	if err != nil {
		return "", false, err
	}
	if in.goos != "windows" || !b.WindowsRegistry {
		return "", false, nil
	}
	if b.Windows == nil || b.Windows.Registry == nil {
		return "", false, fmt.Errorf("browser %s: missing [browsers.%s.windows.registry] config", browser, browser)
	}

	tmpl := b.Windows.Registry.HKCUKeyTemplate
	if scope == ScopeSystem {
		tmpl = b.Windows.Registry.HKLMKeyTemplate
	}
	if tmpl == "" {
		return "", false, fmt.Errorf("browser %s: missing registry template for %s scope", browser, scope)
	}
	return strings.ReplaceAll(tmpl, "{name}", name), true, nil
}
