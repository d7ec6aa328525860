package flow

import (
	"fmt"

	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/ivr/vars"
)

// ErrDeadEnd is returned when no edge matches the result token.
var ErrDeadEnd = fmt.Errorf("dead end: no edge matched")

// SelectEdge walks node.Edges in declaration order and returns the
// target id of the first matching edge. token is the
// result produced by the node's handler; op 120's branch handler
// passes the empty token since it has no result of its own.
func SelectEdge(node registry.Node, token string, store *vars.Store) (int, error) {
	for _, e := range node.Edges {
		switch {
		case e.ApplyComparison:
			if EvaluateComparison(e, store) {
				return e.TargetID, nil
			}
		case e.IsCatchAll():
			return e.TargetID, nil
		default:
			if e.InputKeys == token {
				return e.TargetID, nil
			}
		}
	}

	return 0, fmt.Errorf("node %d: %w (token %q)", node.ID, ErrDeadEnd, token)
}
