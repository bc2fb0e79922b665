package connsdk

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Family is one registered device family: the device-type names it serves
// plus the constructors the host uses to bring a connection up.
type Family struct {
	// Names are the device-type names this family serves. Every configured
	// device type of one connection must belong to a single family.
	Names []string

	// NewConfig decodes raw connection parameters into the family's typed
	// ConnectionConfig.
	NewConfig func(raw JSONConfig) (ConnectionConfig, error)

	// NewTarget converts one raw point definition into the family's typed
	// Target.
	NewTarget func(def PointDef) (Target, error)

	// Init establishes the device connection. The host calls it once per
	// configured connection and waits for every Init to complete before any
	// polling starts or external requests are accepted. Failure is fatal to
	// that connection only.
	Init func(ctx context.Context, deps Dependencies, cfg ConnectionConfig) (*ConnectionArtifact, error)
}

// FamilyRegistry maps device-type names to their families. It is built once
// at startup; hosts register every family before reading configuration.
type FamilyRegistry struct {
	mu     sync.RWMutex
	byName map[string]*Family
}

func NewFamilyRegistry() *FamilyRegistry {
	return &FamilyRegistry{byName: make(map[string]*Family)}
}

// Register adds a family. Every device-type name must be unique across the
// registry; a duplicate is rejected with ErrFamilyConflict rather than
// silently shadowed.
func (r *FamilyRegistry) Register(f Family) error {
	if len(f.Names) == 0 {
		return fmt.Errorf("register family: at least one device-type name is required")
	}
	if f.Init == nil {
		return fmt.Errorf("register family %q: Init is required", f.Names[0])
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range f.Names {
		if _, ok := r.byName[name]; ok {
			return fmt.Errorf("device type %q: %w", name, ErrFamilyConflict)
		}
	}
	fam := f
	for _, name := range f.Names {
		r.byName[name] = &fam
	}
	return nil
}

// Lookup returns the family serving deviceType.
func (r *FamilyRegistry) Lookup(deviceType string) (Family, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byName[deviceType]
	if !ok {
		return Family{}, false
	}
	return *f, true
}

// Names returns every registered device-type name, sorted.
func (r *FamilyRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Match resolves the single family serving every given device type. This is
// the host-side partition check: a physical connection whose device types
// span families (or include an unknown type) is rejected.
func (r *FamilyRegistry) Match(deviceTypes []string) (Family, error) {
	if len(deviceTypes) == 0 {
		return Family{}, fmt.Errorf("match family: no device types given")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	first, ok := r.byName[deviceTypes[0]]
	if !ok {
		return Family{}, fmt.Errorf("device type %q: %w", deviceTypes[0], ErrUnknownFamily)
	}
	for _, dt := range deviceTypes[1:] {
		f, ok := r.byName[dt]
		if !ok {
			return Family{}, fmt.Errorf("device type %q: %w", dt, ErrUnknownFamily)
		}
		if f != first {
			return Family{}, fmt.Errorf("device types %q and %q belong to different families", deviceTypes[0], dt)
		}
	}
	return *first, nil
}

var defaultRegistry = NewFamilyRegistry()

// RegisterFamily adds a family to the default registry.
func RegisterFamily(f Family) error { return defaultRegistry.Register(f) }

// LookupFamily resolves deviceType against the default registry.
func LookupFamily(deviceType string) (Family, bool) { return defaultRegistry.Lookup(deviceType) }

// FamilyNames lists the default registry's device-type names, sorted.
func FamilyNames() []string { return defaultRegistry.Names() }

// MatchFamily runs the partition check against the default registry.
func MatchFamily(deviceTypes []string) (Family, error) { return defaultRegistry.Match(deviceTypes) }
