package hook

import (
	"fmt"
	"sync"
)

// Entry records one installed detour: the host function it replaces, the
// replacement, and the trampoline the attacher filled in for calling the
// original. There is exactly one entry per target for the whole process
// lifetime; entries are created at startup and torn down at shutdown,
// never rebound.
type Entry struct {
	Name        string
	Target      uintptr
	Replacement any

	// Trampoline is set by the attacher on a successful Attach and calls
	// the original function. Its dynamic type matches Replacement's.
	Trampoline any
}

// Attacher performs the actual code patching. It is an external
// collaborator; this package only tracks ownership and ordering around
// it.
type Attacher interface {
	Attach(e *Entry) error
	Detach(e *Entry) error
}

// Registry owns every installed hook entry. Install order is remembered
// so Close can detach in reverse.
type Registry struct {
	att Attacher

	mu      sync.Mutex
	entries []*Entry
	byAddr  map[uintptr]*Entry
}

// NewRegistry creates an empty registry backed by the given attacher.
func NewRegistry(att Attacher) *Registry {
	return &Registry{att: att, byAddr: make(map[uintptr]*Entry)}
}

// Install attaches replacement to the function at target and returns the
// entry, whose Trampoline then calls the original.
//
// A zero target means the locator never found the function; the hook is
// reported disabled via ErrTargetNotFound and the caller carries on
// without it. An attach failure on a found target is returned as is.
func (r *Registry) Install(name string, target uintptr, replacement any) (*Entry, error) {
	if target == 0 {
		logger().Warn("hook target not found, feature disabled", "hook", name)
		return nil, ErrTargetNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byAddr[target]; ok {
		return nil, fmt.Errorf("%w: %#x owned by %q", ErrAlreadyInstalled, target, prev.Name)
	}

	e := &Entry{Name: name, Target: target, Replacement: replacement}
	if err := r.att.Attach(e); err != nil {
		return nil, fmt.Errorf("attach %q at %#x: %w", name, target, err)
	}
	r.entries = append(r.entries, e)
	r.byAddr[target] = e
	logger().Info("hook installed", "hook", name, "target", fmt.Sprintf("%#x", target))
	return e, nil
}

// Uninstall detaches a single entry. Unknown entries are a no-op.
func (r *Registry) Uninstall(e *Entry) error {
	if e == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(e)
}

// Close detaches every entry in reverse install order. Detach failures
// are logged, not returned; teardown keeps going.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if err := r.remove(e); err != nil {
			logger().Warn("hook detach failed", "hook", e.Name, "err", err)
		}
	}
}

func (r *Registry) remove(e *Entry) error {
	if _, ok := r.byAddr[e.Target]; !ok {
		return nil
	}
	delete(r.byAddr, e.Target)
	for i, cur := range r.entries {
		if cur == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	return r.att.Detach(e)
}
