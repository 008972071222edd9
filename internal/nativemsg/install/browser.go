package install

import "errors"

// Family is the manifest shape a browser expects.  The set is closed.
type Family string

const (
	// FamilyChromium manifests list callers in "allowed_origins" as
	// chrome-extension:// URLs.
	FamilyChromium Family = "chromium"

	// FamilyFirefox manifests list callers in "allowed_extensions" as add-on
	// ids.
	FamilyFirefox Family = "firefox"
)

func (f Family) valid() bool {
	return f == FamilyChromium || f == FamilyFirefox
}

// allowListKey is the manifest field carrying the caller allow-list.
func (f Family) allowListKey() string {
	if f == FamilyFirefox {
		return "allowed_extensions"
	}
	return "allowed_origins"
}

// Browser is a key into the browser table.  The constants cover the browsers
// in the embedded table; any other key configured in browsers.toml works too.
type Browser string

const (
	Chrome    Browser = "chrome"
	Edge      Browser = "edge"
	Chromium  Browser = "chromium"
	Brave     Browser = "brave"
	Vivaldi   Browser = "vivaldi"
	Firefox   Browser = "firefox"
	LibreWolf Browser = "librewolf"
)

// Scope selects a per-user or system-wide install.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeSystem
)

func (s Scope) String() string {
	if s == ScopeSystem {
		return "system"
	}
	return "user"
}

var (
	// ErrUnknownBrowser is returned for a browser key missing from the table.
	ErrUnknownBrowser = errors.New("unknown browser")

	// ErrNotConfigured is returned when a browser has no directory for the
	// current OS and scope.
	ErrNotConfigured = errors.New("browser not configured for this OS and scope")

	// ErrRelativePath is returned when installing a relative executable path
	// on macOS or Linux.
	ErrRelativePath = errors.New("manifest path must be absolute on macOS and Linux")

	// ErrInvalidName is returned for host names outside
	// ^([a-z0-9_]+)(\.[a-z0-9_]+)*$.
	ErrInvalidName = errors.New("invalid host name")
)
