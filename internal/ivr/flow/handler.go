package flow

import (
	"context"
	"fmt"

	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

// Handler runs one node's primitive and returns a result token. Handlers are stateless given the CallContext and the node;
// any retry looping they do internally is scoped to this single call.
type Handler func(ctx context.Context, cc *CallContext, node registry.Node) (token string, err error)

// handlers is the closed registration table mapping op code to
// Handler, populated by the ops package's init() functions.
var handlers = make(map[registry.OpCode]Handler)

// RegisterHandler registers the handler for an op code. Called from
// init() in package ops; panics on a duplicate registration since that
// can only be a programming error.
func RegisterHandler(code registry.OpCode, h Handler) {
	if _, exists := handlers[code]; exists {
		panic(fmt.Sprintf("flow: handler for op code %d already registered", code))
	}
	handlers[code] = h
}

// HandlerFor returns the registered handler for code, or false if the
// op code is unknown.
func HandlerFor(code registry.OpCode) (Handler, bool) {
	h, ok := handlers[code]
	return h, ok
}
