package install

import (
	"errors"

	"golang.org/x/sys/windows/registry"
)

// SystemRegistry returns the Windows registry.
func SystemRegistry() RegistryStore {
	return windowsRegistry{}
}

type windowsRegistry struct{}

func root(scope Scope) registry.Key {
	if scope == ScopeSystem {
		return registry.LOCAL_MACHINE
	}
	return registry.CURRENT_USER
}

func (windowsRegistry) SetManifestPath(scope Scope, key, manifestPath string) error {
	k, _, err := registry.CreateKey(root(scope), key, registry.CREATE_SUB_KEY|registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetStringValue("", manifestPath)
}

func (windowsRegistry) ManifestPath(scope Scope, key string) (string, bool, error) {
	k, err := registry.OpenKey(root(scope), key, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer k.Close()

	p, _, err := k.GetStringValue("")
	if errors.Is(err, registry.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}

func (windowsRegistry) Delete(scope Scope, key string) error {
	err := registry.DeleteKey(root(scope), key)
	if errors.Is(err, registry.ErrNotExist) {
		return nil
	}
	return err
}
