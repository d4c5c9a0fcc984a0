// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rhi

import "sync"

// BackendCtor brings up a Backend. A concrete backend package (rhi/vkb,
// rhi/d3d12b) registers one via RegisterBackend in its init, mirroring
// the teacher's driver.Register(name, newFunc) pattern.
type BackendCtor func(desc BackendDesc) (Backend, error)

var (
	mu       sync.RWMutex
	backends = map[string]BackendCtor{}
)

// RegisterBackend makes a backend available to Create under name. It
// panics if name is already registered, since that can only happen
// from two init functions racing to claim the same name — a build-time
// mistake, not a runtime condition to recover from.
func RegisterBackend(name string, ctor BackendCtor) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := backends[name]; dup {
		panic("rhi: backend already registered: " + name)
	}
	backends[name] = ctor
}

// Backends lists every registered backend name.
func Backends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for name := range backends {
		out = append(out, name)
	}
	return out
}
