package operations

import (
	"context"
	"fmt"
	"sync"
)

// Operation is the static descriptor of one logical operation: how to
// decode and validate its payload, which provider call it maps to, and how
// the raw provider result becomes the normalized output. Descriptors are
// built once at startup and read-only afterwards.
type Operation struct {
	Name        string
	Description string

	// NewPayload returns a pointer to a fresh payload struct carrying the
	// operation's validation tags.
	NewPayload func() interface{}

	// Invoke extracts the call arguments from the validated payload and
	// performs the provider call.
	Invoke func(ctx context.Context, payload interface{}) (map[string]interface{}, error)

	// Normalize validates and shapes the raw provider result.
	Normalize func(raw map[string]interface{}) (interface{}, error)

	// PayloadSchema and ResponseSchema describe the declared shapes for the
	// introspection endpoint.
	PayloadSchema  map[string]interface{}
	ResponseSchema map[string]interface{}
}

// Registry holds the operation catalog, preserving registration order for
// introspection. It is populated at startup and read-only afterwards.
type Registry struct {
	mu         sync.RWMutex
	operations map[string]*Operation
	order      []string
}

// NewRegistry creates an empty operation registry.
func NewRegistry() *Registry {
	return &Registry{
		operations: make(map[string]*Operation),
		order:      make([]string, 0),
	}
}

// Register adds an operation to the registry.
func (r *Registry) Register(op *Operation) error {
	if op == nil {
		return fmt.Errorf("cannot register nil operation")
	}
	if op.Name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.operations[op.Name]; exists {
		return fmt.Errorf("operation %s already registered", op.Name)
	}

	r.operations[op.Name] = op
	r.order = append(r.order, op.Name)
	return nil
}

// Get retrieves an operation by name.
func (r *Registry) Get(name string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, exists := r.operations[name]
	return op, exists
}

// Names returns all registered operation names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered operations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.operations)
}

// OperationInfo describes one operation's declared shapes for discovery.
type OperationInfo struct {
	Description    string                 `json:"description,omitempty"`
	PayloadSchema  map[string]interface{} `json:"payload_schema"`
	ResponseSchema map[string]interface{} `json:"response_schema"`
}

// Info returns the introspection view: per operation, the declared payload
// and response shapes, keyed by operation name.
func (r *Registry) Info() map[string]OperationInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := make(map[string]OperationInfo, len(r.order))
	for _, name := range r.order {
		op := r.operations[name]
		info[name] = OperationInfo{
			Description:    op.Description,
			PayloadSchema:  op.PayloadSchema,
			ResponseSchema: op.ResponseSchema,
		}
	}
	return info
}
