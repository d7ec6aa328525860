package flow

import (
	"errors"
	"testing"

	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/ivr/vars"
)

func TestSelectEdgeTokenMatch(t *testing.T) {
	node := registry.Node{
		ID: 1001,
		Edges: []registry.EdgeSpec{
			{TargetID: 2000, InputKeys: "2"},
			{TargetID: 1999, InputKeys: "X"},
		},
	}

	target, err := SelectEdge(node, "2", vars.New())
	if err != nil {
		t.Fatalf("SelectEdge: %v", err)
	}
	if target != 2000 {
		t.Fatalf("target = %d, want 2000", target)
	}
}

func TestSelectEdgeComparisonThenCatchAll(t *testing.T) {
	node := registry.Node{
		ID: 1,
		Edges: []registry.EdgeSpec{
			{TargetID: 100, ApplyComparison: true, OperandType: registry.OperandTag, CollectionTag: "CustomerType", Operator: registry.OpEQ, Value1: "VIP"},
			{TargetID: 200},
		},
	}

	store := vars.New()
	store.Set("CustomerType", "VIP")
	target, err := SelectEdge(node, "", store)
	if err != nil || target != 100 {
		t.Fatalf("SelectEdge with VIP = %d, %v, want 100, nil", target, err)
	}

	target, err = SelectEdge(node, "", vars.New())
	if err != nil || target != 200 {
		t.Fatalf("SelectEdge with empty store = %d, %v, want 200 (catch-all), nil", target, err)
	}
}

func TestSelectEdgeDeadEnd(t *testing.T) {
	node := registry.Node{
		ID:    5,
		Edges: []registry.EdgeSpec{{TargetID: 6, InputKeys: "1"}, {TargetID: 7, InputKeys: "2"}},
	}

	_, err := SelectEdge(node, "X", vars.New())
	if !errors.Is(err, ErrDeadEnd) {
		t.Fatalf("expected ErrDeadEnd, got %v", err)
	}
}

func TestSelectEdgeDeclarationOrderWins(t *testing.T) {
	// Two edges could both match; the first in declaration order must win.
	node := registry.Node{
		ID: 9,
		Edges: []registry.EdgeSpec{
			{TargetID: 10, InputKeys: "1"},
			{TargetID: 11}, // catch-all, would also match
		},
	}

	target, err := SelectEdge(node, "1", vars.New())
	if err != nil || target != 10 {
		t.Fatalf("SelectEdge = %d, %v, want 10 (declaration order)", target, err)
	}
}
