// Package vars implements the per-scenario variable scope: storage, template
// substitution and a small expression interpreter for assertions.
package vars

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxPasses bounds iterative template substitution.
const DefaultMaxPasses = 16

// Lookup supplies externally configured values, such as property files.
// config.PropertySource satisfies it.
type Lookup interface {
	Lookup(key string) (string, bool)
}

// Option configures a Store.
type Option func(*Store)

// WithExternal sets the source consulted before scope variables during
// substitution.
func WithExternal(l Lookup) Option {
	return func(s *Store) { s.external = l }
}

// WithMaxPasses overrides the substitution pass cap. Values below 1 keep the
// default.
func WithMaxPasses(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxPasses = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger.Named("vars") }
}

// Store is one scenario's variable scope. Each scenario owns its own Store;
// nothing is shared between stores. Methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	values map[string]any

	external  Lookup
	maxPasses int
	logger    *zap.Logger
}

// NewStore returns an empty scope.
func NewStore(opts ...Option) *Store {
	s := &Store{
		values:    make(map[string]any),
		maxPasses: DefaultMaxPasses,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put sets name to value, replacing any previous value.
func (s *Store) Put(name string, value any) {
	s.mu.Lock()
	s.values[name] = value
	s.mu.Unlock()
	s.logger.Debug("Variable set.", zap.String("name", name))
}

// Get returns the value of name or a *VariableNotFoundError.
func (s *Store) Get(name string) (any, error) {
	v, ok := s.TryGet(name)
	if !ok {
		return nil, &VariableNotFoundError{Name: name}
	}
	return v, nil
}

// TryGet returns the value of name and whether it was set.
func (s *Store) TryGet(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// GetString returns the value of name formatted as text.
func (s *Store) GetString(name string) (string, error) {
	v, err := s.Get(name)
	if err != nil {
		return "", err
	}
	return format(v), nil
}

// Remove deletes name. Removing an unset name is a no-op.
func (s *Store) Remove(name string) {
	s.mu.Lock()
	delete(s.values, name)
	s.mu.Unlock()
}

// Clear empties the scope.
func (s *Store) Clear() {
	s.mu.Lock()
	s.values = make(map[string]any)
	s.mu.Unlock()
	s.logger.Debug("Scope cleared.")
}

// Len returns the number of variables in scope.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Names returns the variable names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the scope.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// ValueOrLiteral resolves name the way substitution does (external value,
// then scope variable) and falls back to name itself. Steps that accept
// either a variable name or a literal use it.
func (s *Store) ValueOrLiteral(name string) string {
	if v, ok := s.resolve(name); ok {
		return v
	}
	return name
}

// resolve applies the substitution lookup order for one identifier.
func (s *Store) resolve(name string) (string, bool) {
	if s.external != nil {
		if v, ok := s.external.Lookup(name); ok {
			return v, true
		}
	}
	if v, ok := s.TryGet(name); ok {
		return format(v), true
	}
	return "", false
}

func format(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
