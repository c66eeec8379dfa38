// ABOUTME: Registry mapping stable tool names to descriptors and handlers.
// ABOUTME: Preserves registration order and validates arguments against schemas.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry errors
var (
	// ErrUnknownTool indicates the requested tool name is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrDuplicateTool indicates a tool with the same name is already registered.
	ErrDuplicateTool = errors.New("tool already registered")
)

// Shape classifies a tool's output for the envelope builder.
type Shape int

const (
	// ShapeSingle is a single entity, e.g. one card.
	ShapeSingle Shape = iota
	// ShapeList is a list of hits, e.g. search results.
	ShapeList
	// ShapeStatus is an operation status payload with no entity body.
	ShapeStatus
)

// Hit is one entry of a list-shaped result.
type Hit struct {
	ID     string
	Title  string
	Source string
}

// Result is the raw output of a tool handler before envelope construction.
type Result struct {
	Shape    Shape
	ID       string
	Title    string
	Markdown string // human-readable body, markdown
	Source   string
	Metadata map[string]any

	// List shape only
	Hits  []Hit
	Total int
}

// Handler executes a tool. Domain failures are returned as *ToolError;
// any other error is treated as an internal failure by the dispatcher.
type Handler func(ctx context.Context, args json.RawMessage) (*Result, error)

// Descriptor describes one registered tool.
type Descriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler

	schema *jsonschema.Schema
}

// ValidateArgs checks args against the tool's input schema.
func (d *Descriptor) ValidateArgs(args json.RawMessage) error {
	if d.schema == nil {
		return nil
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	return d.schema.Validate(v)
}

// Registry is the static tool table. It is populated during start-up and
// read-only afterwards, so lookups after Register calls complete need no
// locking.
type Registry struct {
	byName map[string]*Descriptor
	order  []*Descriptor
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byName: make(map[string]*Descriptor),
		logger: logger.With("component", "tool-registry"),
	}
}

// Register adds a tool, compiling its input schema.
// Returns ErrDuplicateTool if the name is taken.
func (r *Registry) Register(d *Descriptor) error {
	if d.Name == "" {
		return errors.New("tool name is required")
	}
	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
	}

	if len(d.InputSchema) > 0 {
		schema, err := jsonschema.CompileString(d.Name+".schema.json", string(d.InputSchema))
		if err != nil {
			return fmt.Errorf("compiling schema for %s: %w", d.Name, err)
		}
		d.schema = schema
	}

	r.byName[d.Name] = d
	r.order = append(r.order, d)

	r.logger.Debug("tool registered", "tool_name", d.Name)
	return nil
}

// RegisterAll registers each descriptor, stopping at the first failure.
func (r *Registry) RegisterAll(descs []*Descriptor) error {
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the descriptor for name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []*Descriptor {
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}
