package factskema

import (
	"regexp"
	"sort"
	"sync"
)

// Reserved names cannot be registered as types nor declared as records.
var reservedNames = map[string]struct{}{
	"Any":     {},
	"Integer": {},
	"Alpha":   {},
	"String":  {},
	"options": {},
}

// IsReserved reports whether name is a built-in type name or a reserved keyword.
func IsReserved(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

var typeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Catalogue maps type names to primitives. The built-ins are always present
// with their unconstrained configuration.
type Catalogue struct {
	mu    sync.RWMutex
	types map[string]Primitive
}

// NewCatalogue returns a catalogue holding the four built-in primitives.
func NewCatalogue() *Catalogue {
	return &Catalogue{types: map[string]Primitive{
		"Any":     Any{},
		"Integer": Integer{},
		"Alpha":   Alpha{},
		"String":  String{},
	}}
}

// Register adds a named primitive. Existing entries are never overwritten.
func (c *Catalogue) Register(name string, p Primitive) error {
	if IsReserved(name) {
		return Issues{NewIssue(CodeReservedName, map[string]any{"name": name})}
	}
	if !typeNamePattern.MatchString(name) {
		return Issues{NewIssue(CodeInvalidName, map[string]any{"name": name})}
	}
	if p == nil {
		return Issues{NewIssue(CodeInvalidDeclaration, map[string]any{"reason": "nil primitive for " + name})}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.types[name]; dup {
		return Issues{NewIssue(CodeDuplicateType, map[string]any{"name": name})}
	}
	c.types[name] = p
	return nil
}

// Lookup returns the primitive registered under name.
func (c *Catalogue) Lookup(name string) (Primitive, error) {
	c.mu.RLock()
	p, ok := c.types[name]
	c.mu.RUnlock()
	if !ok {
		return nil, Issues{NewIssue(CodeUnknownType, map[string]any{"type": name})}
	}
	return p, nil
}

// Has reports whether name is registered.
func (c *Catalogue) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.types[name]
	return ok
}

// Names lists the registered type names in sorted order.
func (c *Catalogue) Names() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.types))
	for n := range c.types {
		out = append(out, n)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}
