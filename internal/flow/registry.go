package flow

import (
	"fmt"

	"github.com/loopline/trackbot/internal/session"
)

// Registry holds the conversation definitions. It is populated once at
// engine build time and read-only afterwards.
type Registry struct {
	defs map[session.Kind]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[session.Kind]*Definition)}
}

// Register adds a definition, validating its basic shape.
func (r *Registry) Register(def *Definition) error {
	if def == nil || def.Kind == "" {
		return fmt.Errorf("flow: invalid definition")
	}
	if _, exists := r.defs[def.Kind]; exists {
		return fmt.Errorf("flow: duplicate definition: %s", def.Kind)
	}
	if _, ok := def.States[def.Entry]; !ok {
		return fmt.Errorf("flow: %s: entry state %q not declared", def.Kind, def.Entry)
	}
	for id, spec := range def.States {
		if spec.Prompt == nil {
			return fmt.Errorf("flow: %s: state %q has no prompt", def.Kind, id)
		}
		if spec.Next == nil {
			return fmt.Errorf("flow: %s: state %q has no successor", def.Kind, id)
		}
	}
	r.defs[def.Kind] = def
	return nil
}

// Definition resolves a conversation kind.
func (r *Registry) Definition(kind session.Kind) (*Definition, error) {
	def, ok := r.defs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return def, nil
}

// Spec resolves one state of one conversation. ErrUnknownState signals a
// corrupted or stale session and is fatal for it.
func (r *Registry) Spec(kind session.Kind, state session.StateID) (StateSpec, error) {
	def, err := r.Definition(kind)
	if err != nil {
		return StateSpec{}, err
	}
	spec, ok := def.States[state]
	if !ok {
		return StateSpec{}, fmt.Errorf("%w: %s/%s", ErrUnknownState, kind, state)
	}
	return spec, nil
}

// Kinds lists registered conversation kinds (for diagnostics).
func (r *Registry) Kinds() []session.Kind {
	kinds := make([]session.Kind, 0, len(r.defs))
	for k := range r.defs {
		kinds = append(kinds, k)
	}
	return kinds
}
