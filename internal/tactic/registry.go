package tactic

import (
	"fmt"
	"sort"
	"sync"
)

// Registry resolves tactic names to tactics. Extraction rules carry only a
// name; the session looks the tactic up here when it wires the rule, so
// plugins registered later are picked up without touching the rule set.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Tactic
}

// NewRegistry returns a registry preloaded with the built-in tactics.
func NewRegistry() *Registry {
	r := &Registry{byName: map[string]Tactic{}}
	r.byName["assumption"] = Assumption()
	r.byName["refl"] = Refl()
	r.byName["simp"] = Simp()
	r.byName["vc_solve"] = VCSolve()
	r.byName["auto"] = First(Assumption(), Refl(), VCSolve())
	return r
}

// Register adds a named tactic. Built-in names cannot be replaced.
func (r *Registry) Register(name string, t Tactic) error {
	if name == "" {
		return fmt.Errorf("tactic name must not be empty")
	}
	if t == nil {
		return fmt.Errorf("tactic %s is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byName[name]; taken {
		return fmt.Errorf("tactic %s already registered", name)
	}
	r.byName[name] = t
	return nil
}

// Lookup returns the tactic registered under name.
func (r *Registry) Lookup(name string) (Tactic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Names lists the registered tactic names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
