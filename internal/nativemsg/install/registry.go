package install

// RegistryStore holds the registry pointers that tell Windows browsers where
// a manifest lives.  Keys are relative to HKEY_CURRENT_USER for ScopeUser and
// HKEY_LOCAL_MACHINE for ScopeSystem; the pointer is the key's default value.
type RegistryStore interface {
	// SetManifestPath creates key if needed and points it at manifestPath.
	SetManifestPath(scope Scope, key, manifestPath string) error

	// ManifestPath reads the pointer; ok is false if the key is absent.
	ManifestPath(scope Scope, key string) (manifestPath string, ok bool, err error)

	// Delete removes key.  Deleting an absent key is not an error.
	Delete(scope Scope, key string) error
}
