//go:build !windows

package hook

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// ResolveSymbol returns the address of an exported function in a shared
// library, loading the library if needed.
func ResolveSymbol(module, symbol string) (uintptr, error) {
	lib, err := purego.Dlopen(module, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", module, err)
	}
	addr, err := purego.Dlsym(lib, symbol)
	if err != nil {
		return 0, fmt.Errorf("resolve %s!%s: %w", module, symbol, err)
	}
	return addr, nil
}

// ResolveSymbolAny tries modules in order and returns the first address
// found. Used for entry points that moved between library versions.
func ResolveSymbolAny(modules []string, symbol string) (uintptr, error) {
	var firstErr error
	for _, m := range modules {
		addr, err := ResolveSymbol(m, symbol)
		if err == nil {
			return addr, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("resolve %s: no modules given", symbol)
	}
	return 0, firstErr
}
