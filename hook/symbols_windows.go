package hook

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// ResolveSymbol returns the address of an exported function in a system
// module, loading the module if needed.
func ResolveSymbol(module, symbol string) (uintptr, error) {
	dll := windows.NewLazySystemDLL(module)
	if err := dll.Load(); err != nil {
		return 0, fmt.Errorf("load %s: %w", module, err)
	}
	proc := dll.NewProc(symbol)
	if err := proc.Find(); err != nil {
		return 0, fmt.Errorf("resolve %s!%s: %w", module, symbol, err)
	}
	return proc.Addr(), nil
}

// ResolveSymbolAny tries modules in order and returns the first address
// found. Used for entry points that moved between library versions, such
// as the gamepad query living in either xinput1_4.dll or xinput1_3.dll.
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
