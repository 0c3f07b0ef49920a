// Package registry tracks the controllers generated into one Go package and detects
// conflicts between them: two controllers with the same name, the same channel key or
// the same generated package-level identifier.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/ctrlgen/core/convention"
)

// ClaimKind is the namespace a claim lives in.
type ClaimKind string

const (
	ClaimChannel ClaimKind = "channel"
	ClaimName    ClaimKind = "name"
)

// Claim records which controller owns a channel key or identifier.
type Claim struct {
	Kind       ClaimKind
	Key        string
	Controller string
	File       string
}

// key returns the unique key for the claim.
func (c Claim) key() string {
	return string(c.Kind) + ":" + c.Key
}

// Conflict is a channel key or identifier claimed by two controllers.
type Conflict struct {
	Kind   ClaimKind
	Key    string
	Claims []Claim
}

func (c Conflict) Error() string {
	owners := make([]string, len(c.Claims))
	for i, cl := range c.Claims {
		owners[i] = fmt.Sprintf("%s (%s)", cl.Controller, cl.File)
	}
	return fmt.Sprintf("%s %q claimed by %s", c.Kind, c.Key, strings.Join(owners, " and "))
}

// Entry is a registered controller.
type Entry struct {
	File    string
	Derived convention.Derived
}

// Registry holds the controllers of one package.
type Registry struct {
	mu sync.RWMutex

	// controllers by name
	controllers map[string]Entry

	claims map[string]Claim
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		controllers: make(map[string]Entry),
		claims:      make(map[string]Claim),
	}
}

// Register adds a derived controller generated from file.
// It returns a *ConflictError if any claim of d is already taken.
func (r *Registry) Register(file string, d convention.Derived) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.controllers[d.Name]; exists {
		return fmt.Errorf("controller %q already registered from %s", d.Name, existing.File)
	}

	claims := claimsOf(file, d)
	if conflicts := r.detectConflicts(claims); len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}

	r.controllers[d.Name] = Entry{File: file, Derived: d}
	for _, c := range claims {
		r.claims[c.key()] = c
	}
	return nil
}

// Unregister removes a controller and releases its claims.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.controllers[name]
	if !exists {
		return fmt.Errorf("controller %q not registered", name)
	}
	for _, c := range claimsOf(entry.File, entry.Derived) {
		delete(r.claims, c.key())
	}
	delete(r.controllers, name)
	return nil
}

// Get returns a registered controller by name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.controllers[name]
	return e, ok
}

// List returns all registered controllers sorted by name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.controllers))
	for _, e := range r.controllers {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Derived.Name < entries[j].Derived.Name
	})
	return entries
}

// Channels returns the channel key claims sorted by key.
func (r *Registry) Channels() []Claim {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Claim
	for _, c := range r.claims {
		if c.Kind == ClaimChannel {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func claimsOf(file string, d convention.Derived) []Claim {
	var claims []Claim
	for _, k := range d.ChannelKeys() {
		claims = append(claims, Claim{Kind: ClaimChannel, Key: k, Controller: d.Name, File: file})
	}
	for _, n := range d.PackageNames() {
		claims = append(claims, Claim{Kind: ClaimName, Key: n, Controller: d.Name, File: file})
	}
	return claims
}

// detectConflicts checks claims against the registry without modifying it.
func (r *Registry) detectConflicts(claims []Claim) []Conflict {
	var conflicts []Conflict
	for _, c := range claims {
		if existing, ok := r.claims[c.key()]; ok {
			conflicts = append(conflicts, Conflict{Kind: c.Kind, Key: c.Key, Claims: []Claim{existing, c}})
		}
	}
	return conflicts
}

// ConflictError represents one or more conflicts between controllers.
type ConflictError struct {
	Conflicts []Conflict
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	var msgs []string
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("controller conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasConflicts returns true if there are any conflicts.
func (e *ConflictError) HasConflicts() bool {
	return len(e.Conflicts) > 0
}
