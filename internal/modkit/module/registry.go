package module

import (
	"slices"
	"sync"
)

// registry of mounted modules, filled by api.Mount and read by /meta/service
var (
	mu  sync.RWMutex
	reg = map[string]any{}
)

// Register records the port set of a mounted module
func Register(name string, ports any) {
	mu.Lock()
	defer mu.Unlock()
	reg[name] = ports
}

// PortsAs returns the port set registered under name as T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	v, ok := reg[name]
	mu.RUnlock()
	out, ok2 := v.(T)
	return out, ok && ok2
}

// Names lists registered modules in order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Reset clears the registry, tests mount the api more than once
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	reg = map[string]any{}
}
