package tools

import (
	"sync"

	"github.com/pkg/errors"
)

// Registry maps tool names to tools and remembers registration order.
// It is filled once at startup and only read afterwards, so concurrent
// sessions can share a single instance.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// NewRegistryFromTools registers the given tools in order and stops at the first error.
func NewRegistryFromTools(tools ...Tool) (*Registry, error) {
	r := NewRegistry()
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Names are case-sensitive and must be unique.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return errors.New("tool name cannot be empty")
	}
	if t.Func == nil {
		return errors.Errorf("tool %s has no function", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return errors.Wrap(ErrDuplicateToolName, t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return Tool{}, errors.Wrap(ErrUnknownTool, name)
	}
	return t, nil
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ret := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		ret = append(ret, r.tools[name])
	}
	return ret
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ret := make([]string, len(r.order))
	copy(ret, r.order)
	return ret
}

func (r *Registry) Descriptions() []Description {
	tools := r.List()
	ret := make([]Description, 0, len(tools))
	for _, t := range tools {
		ret = append(ret, t.Describe())
	}
	return ret
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
