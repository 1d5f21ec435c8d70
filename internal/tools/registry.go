package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry is a name→tool map plus a cached descriptor array rebuilt on
// every registration (spec.md §4.3).
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	defs    []FunctionDefinition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds t, replacing any prior tool of the same name. The tool's
// parameter schema is compiled once here — schemas are static per tool, so
// this is a legitimate use of a compiled-schema library rather than a
// per-call dynamic validator.
func (r *Registry) Register(t Tool) error {
	d := t.Descriptor()

	compiled, err := compileSchema(d.Name, d.Schema)
	if err != nil {
		return fmt.Errorf("tool %q: compile schema: %w", d.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[d.Name] = t
	r.schemas[d.Name] = compiled
	r.rebuildDefsLocked()
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schemas, name)
	r.rebuildDefsLocked()
}

func (r *Registry) rebuildDefsLocked() {
	defs := make([]FunctionDefinition, 0, len(r.tools))
	for name, t := range r.tools {
		d := t.Descriptor()
		defs = append(defs, FunctionDefinition{
			Type: "function",
			Function: FunctionSpec{
				Name:        name,
				Description: d.Description,
				Parameters:  d.Schema,
			},
		})
	}
	r.defs = defs
}

// Definitions returns the stable descriptor array exposed to providers.
func (r *Registry) Definitions() []FunctionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]FunctionDefinition(nil), r.defs...)
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	if schema == nil {
		schema = map[string]any{"type": "object"}
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	url := "tool://" + name + "/schema.json"
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

// Execute looks up name, validates args against its compiled schema, and
// invokes it — the exact error-string conventions of spec.md §4.3.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) string {
	r.mu.RLock()
	t, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Sprintf("Error: Tool '%s' not found", name)
	}

	if schema != nil {
		if err := schema.Validate(args); err != nil {
			return fmt.Sprintf("Error: Invalid parameters for tool '%s': %s", name, joinValidationErrors(err))
		}
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %s", name, err.Error())
	}
	return result
}

func joinValidationErrors(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	collectCauses(ve, &msgs)
	if len(msgs) == 0 {
		return ve.Error()
	}
	return strings.Join(msgs, "; ")
}

func collectCauses(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		*out = append(*out, ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collectCauses(c, out)
	}
}
