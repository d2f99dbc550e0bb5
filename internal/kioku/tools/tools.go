// Package tools defines the contract between planned actions and the tool
// layer that executes them. Tool implementations live outside this module;
// this package carries the call/result shapes and validates call arguments
// against each tool's declared JSON Schema before anything runs.
package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Status is the terminal outcome of a tool call.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Call is one requested tool invocation. The idempotency key lets the
// executor dedupe retried calls.
type Call struct {
	Name           string         `json:"name"`
	Args           map[string]any `json:"args,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// Result is the outcome of one tool call.
type Result struct {
	Status   Status         `json:"status"`
	Data     map[string]any `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Success builds a SUCCESS result.
func Success(data map[string]any, d time.Duration) Result {
	return Result{Status: StatusSuccess, Data: data, Duration: d}
}

// Failure builds an ERROR result from an error.
func Failure(err error, d time.Duration) Result {
	return Result{Status: StatusError, Error: err.Error(), Duration: d}
}

// Registry holds the declared tools and their compiled argument schemas.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register declares a tool with a JSON Schema for its arguments. Re-using a
// name replaces the previous schema.
func (r *Registry) Register(name, schemaJSON string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("tools: tool name must not be empty")
	}
	compiler := jsonschema.NewCompiler()
	url := name + ".schema.json"
	if err := compiler.AddResource(url, strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("tools: add schema for %q: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("tools: compile schema for %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[name] = schema
	return nil
}

// Known reports whether a tool name has been registered.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[name]
	return ok
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	return names
}

// ValidateCall checks a call's arguments against the tool's schema. Unknown
// tools and schema violations are both errors.
func (r *Registry) ValidateCall(call Call) error {
	r.mu.RLock()
	schema, ok := r.schemas[call.Name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("tools: unknown tool %q", call.Name)
	}

	// Round-trip through JSON so the validator sees the canonical decoded
	// form (json.Number handling, no Go-specific types).
	raw, err := json.Marshal(call.Args)
	if err != nil {
		return fmt.Errorf("tools: encode args for %q: %w", call.Name, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("tools: decode args for %q: %w", call.Name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("tools: invalid args for %q: %w", call.Name, err)
	}
	return nil
}
