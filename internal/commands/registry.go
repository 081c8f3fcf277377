package commands

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownCommand is returned by Lookup for a name nothing registered.
var ErrUnknownCommand = errors.New("unknown command")

// Registry resolves command names and aliases. It also records which
// command runs when the user gives none.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Command
	commands []Command
	fallback Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

// Register adds c under its name and aliases. Names must be a single
// non-empty word and may not collide with anything already registered.
func (r *Registry) Register(c Command) error {
	keys := append([]string{c.Name()}, c.Aliases()...)
	for _, k := range keys {
		if k == "" || strings.ContainsAny(k, " \t") || strings.HasPrefix(k, "-") {
			return fmt.Errorf("invalid command name %q", k)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, k := range keys {
		if prev, ok := r.byName[k]; ok {
			return fmt.Errorf("command name %q already taken by %s", k, prev.Name())
		}
		if slices.Contains(keys[:i], k) {
			return fmt.Errorf("command %s lists %q twice", c.Name(), k)
		}
	}
	for _, k := range keys {
		r.byName[k] = c
	}
	r.commands = append(r.commands, c)
	return nil
}

// SetDefault marks the named command as the one run without arguments.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	r.fallback = c
	return nil
}

// Default returns the command run when none is named.
func (r *Registry) Default() (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback, r.fallback != nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Lookup is Find with an error naming the missing command.
func (r *Registry) Lookup(name string) (Command, error) {
	if c, ok := r.Find(name); ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

// All returns each command once, ordered by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	out := slices.Clone(r.commands)
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Command) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// DefaultRegistry holds every built-in command.
var DefaultRegistry = NewRegistry()

// Register adds c to DefaultRegistry and panics on a naming conflict.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
