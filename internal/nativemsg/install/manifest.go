package install

import (
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Manifest models a native messaging host manifest.  Which allow-list is
// written depends on the browser family.
//
// See the browser documentation at:
// https://developer.chrome.com/docs/apps/nativeMessaging/#native-messaging-host
// https://developer.mozilla.org/en-US/docs/Mozilla/Add-ons/WebExtensions/Native_manifests
type Manifest struct {
	Name        string
	Description string
	Path        string

	// AllowedOrigins are chrome-extension://ID/ URLs for Chromium browsers.
	AllowedOrigins []string

	// AllowedExtensions are add-on ids for Firefox browsers.
	AllowedExtensions []string
}

// manifestType is the (only supported) value for the "type" field in the
// manifest.
const manifestType = "stdio"

type chromiumManifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Path           string   `json:"path"`
	Typ            string   `json:"type"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type firefoxManifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Typ               string   `json:"type"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// Marshal returns the on-disk encoding of the manifest for a browser family.
func (m Manifest) Marshal(f Family) ([]byte, error) {
	var v any
	switch f {
	case FamilyChromium:
		v = chromiumManifest{m.Name, m.Description, m.Path, manifestType, nonNil(m.AllowedOrigins)}
	case FamilyFirefox:
		v = firefoxManifest{m.Name, m.Description, m.Path, manifestType, nonNil(m.AllowedExtensions)}
	default:
		return nil, fmt.Errorf("unknown browser family %q", f)
	}
	return json.MarshalIndent(v, "", "  ")
}

// Filename is the appropriate name for the manifest file (with no path).
func (m Manifest) Filename() string {
	return m.Name + ".json"
}

// nonNil keeps an empty allow-list as [] rather than null.
func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

var namePattern = regexp.MustCompile(`^([a-z0-9_]+)(\.[a-z0-9_]+)*$`)

// ValidateName reports whether name is a legal host name: dot-separated
// segments of lowercase letters, digits and underscores.
func ValidateName(name string) bool {
	return namePattern.MatchString(name)
}

//go:embed schema/*.json
var schemas embed.FS

// schemaFor returns the JSON schema loader for a family's manifest shape.
func schemaFor(f Family) (gojsonschema.JSONLoader, error) {
	data, err := schemas.ReadFile("schema/" + string(f) + ".json")
	if err != nil {
		return nil, fmt.Errorf("no manifest schema for family %q", f)
	}
	return gojsonschema.NewBytesLoader(data), nil
}

// checkManifest validates manifest bytes read from disk.  A non-empty reason
// means the manifest is present but not usable; err is reserved for bytes
// that are not JSON at all.
func checkManifest(data []byte, f Family, name, goos string) (reason string, err error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("invalid JSON manifest: %w", err)
	}

	schema, err := schemaFor(f)
	if err != nil {
		return "", err
	}
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return "", fmt.Errorf("validate manifest: %w", err)
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return "manifest does not match " + string(f) + " shape: " + strings.Join(details, "; "), nil
	}

	// The schema guarantees an object here.
	doc := v.(map[string]any)
	if doc["name"] != name {
		return fmt.Sprintf("manifest name is %q, want %q", doc["name"], name), nil
	}
	if goos == "darwin" || goos == "linux" {
		if p, _ := doc["path"].(string); !filepath.IsAbs(p) {
			return fmt.Sprintf("manifest path %q is not absolute", p), nil
		}
	}
	return "", nil
}
