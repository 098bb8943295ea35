// Package endpoint maps the four backend operations to the addresses they are served
// at. A Registry is built once at startup and never changes afterwards.
package endpoint

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
)

// Operation names a backend operation.
type Operation string

const (
	TextGeneration Operation = "TEXT_GENERATION"
	Loader         Operation = "LOADER"
	SaveWorkspace  Operation = "SAVE_WORKSPACE"
	BlockAction    Operation = "BLOCK_ACTION"
)

// ErrUnknownOperation is returned when resolving a name outside the known operations.
var ErrUnknownOperation = errors.New("unknown operation")

// Operations lists every known operation in a fixed order.
func Operations() []Operation {
	return []Operation{TextGeneration, Loader, SaveWorkspace, BlockAction}
}

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	return slices.Contains(Operations(), op)
}

// Default addresses of the hosted backend.
var defaultAddresses = map[Operation]string{
	TextGeneration: "https://gcznsevp8g.execute-api.us-east-1.amazonaws.com/dev",
	Loader:         "https://42kxfcuxo7.execute-api.us-east-1.amazonaws.com/dev",
	SaveWorkspace:  "https://0pgkogvtxi.execute-api.us-east-1.amazonaws.com/dev",
	BlockAction:    "https://rkg1zsj3hf.execute-api.us-east-1.amazonaws.com/dev",
}

// Registry is a read-only operation to address map.
type Registry struct {
	addrs map[Operation]string
}

// New builds a registry. Every known operation must be present with an absolute
// http or https URL; unknown keys are rejected.
func New(addrs map[Operation]string) (*Registry, error) {
	for op := range addrs {
		if !op.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, string(op))
		}
	}
	out := make(map[Operation]string, len(addrs))
	for _, op := range Operations() {
		addr, ok := addrs[op]
		if !ok || addr == "" {
			return nil, fmt.Errorf("missing address for %s", op)
		}
		if err := validateAddress(addr); err != nil {
			return nil, fmt.Errorf("invalid address for %s: %w", op, err)
		}
		out[op] = addr
	}
	return &Registry{addrs: out}, nil
}

// Default returns the registry of the hosted backend.
func Default() *Registry {
	return &Registry{addrs: maps.Clone(defaultAddresses)}
}

// DefaultAddresses returns a copy of the hosted backend addresses, for use as a base
// that configuration overrides.
func DefaultAddresses() map[Operation]string {
	return maps.Clone(defaultAddresses)
}

func validateAddress(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("address %q has no host", addr)
	}
	return nil
}

// Resolve returns the address of the named operation.
func (r *Registry) Resolve(name string) (string, error) {
	addr, ok := r.addrs[Operation(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return addr, nil
}

// MustResolve is Resolve for operation constants; it panics on unknown names.
func (r *Registry) MustResolve(op Operation) string {
	addr, err := r.Resolve(string(op))
	if err != nil {
		panic(err)
	}
	return addr
}

// All returns a copy of the whole mapping.
func (r *Registry) All() map[Operation]string {
	return maps.Clone(r.addrs)
}
