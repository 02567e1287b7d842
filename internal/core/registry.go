package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]SourceDefinition)
	registryMu sync.RWMutex
)

// Register adds a source definition to the registry.
// Panics if a source with the same tag is already registered.
func Register(def SourceDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Tag]; exists {
		panic(fmt.Sprintf("source already registered: %s", def.Info.Tag))
	}
	if def.Normalize == nil {
		panic(fmt.Sprintf("source %s has no Normalize func", def.Info.Tag))
	}
	if def.Info.Label == "" {
		def.Info.Label = def.Info.Tag
	}
	if def.Info.CountryCode == "" {
		def.Info.CountryCode = CountryISO3
	}

	registry[def.Info.Tag] = def
}

// Get returns a source definition by tag.
// Returns false if not found.
func Get(tag string) (SourceDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[tag]
	return def, ok
}

// All returns all registered source definitions sorted by tag.
func All() []SourceDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SourceDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Tag < result[j].Info.Tag
	})

	return result
}

// SourceCount returns the number of registered sources.
func SourceCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Normalize runs the adapter registered for tag.
// The returned Result is built from scratch on every call.
func Normalize(ctx context.Context, env Env, tag, code string) (Result, error) {
	def, ok := Get(tag)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownSource, tag)
	}
	res, err := def.Normalize(ctx, env, code)
	if err != nil {
		return Result{}, fmt.Errorf("normalize %s %s: %w", tag, code, err)
	}
	return res, nil
}
