// Package handlers is a registry of request handlers keyed by channel and
// operation.
package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/scenegrid/internal/msgs"
)

// Handler answers one request payload. The returned value is encoded as the
// response; a nil value sends nothing.
type Handler func(ctx context.Context, payload []byte) (any, error)

// Handlers holds all the registered handlers.
type Handlers struct {
	all map[string]Handler
}

// New creates an empty registry.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]Handler),
	}
}

// Key names the handler of op on ch.
func Key(ch msgs.Channel, op string) string {
	return ch.String() + "/" + op
}

// Register adds fn for op on ch. Registering the same pair twice is a wiring
// bug and panics.
func (r *Handlers) Register(ch msgs.Channel, op fmt.Stringer, fn Handler) {
	name := Key(ch, op.String())
	if _, exists := r.all[name]; exists {
		panic(fmt.Sprintf("handler with name '%s' already registered", name))
	}
	r.all[name] = fn
}

// Lookup returns the handler of op on ch.
func (r *Handlers) Lookup(ch msgs.Channel, op string) (Handler, bool) {
	fn, ok := r.all[Key(ch, op)]
	return fn, ok
}

// Names lists every registered key in sorted order.
func (r *Handlers) Names() []string {
	names := make([]string, 0, len(r.all))
	for name := range r.all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
