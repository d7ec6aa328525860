package flow

import (
	"testing"

	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/ivr/vars"
)

func TestEvaluateComparison(t *testing.T) {
	store := vars.New()
	store.Set("CustomerType", "VIP")
	store.Set("Age", "42")
	store.Set("Name", "not-a-number")
	store.Set("Blank", "   ")

	tests := []struct {
		name string
		edge registry.EdgeSpec
		want bool
	}{
		{"EQ tag match", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "CustomerType", Operator: registry.OpEQ, Value1: "VIP"}, true},
		{"EQ tag mismatch", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "CustomerType", Operator: registry.OpEQ, Value1: "Gold"}, false},
		{"NE", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "CustomerType", Operator: registry.OpNE, Value1: "Gold"}, true},
		{"GRT numeric", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "Age", Operator: registry.OpGRT, Value1: "10"}, true},
		{"LST numeric", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "Age", Operator: registry.OpLST, Value1: "10"}, false},
		{"GRT non-numeric is false", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "Name", Operator: registry.OpGRT, Value1: "10"}, false},
		{"IBW within bounds", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "Age", Operator: registry.OpIBW, Value1: "1", Value2: "100"}, true},
		{"IBW missing value2", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "Age", Operator: registry.OpIBW, Value1: "1"}, false},
		{"OBW outside bounds", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "Age", Operator: registry.OpOBW, Value1: "1", Value2: "10"}, true},
		{"CONTAINS", registry.EdgeSpec{OperandType: registry.OperandLiteral, CollectionTag: "hello world", Operator: registry.OpContains, Value1: "world"}, true},
		{"STARTS_WITH", registry.EdgeSpec{OperandType: registry.OperandLiteral, CollectionTag: "hello world", Operator: registry.OpStartsWith, Value1: "hello"}, true},
		{"ENDS_WITH", registry.EdgeSpec{OperandType: registry.OperandLiteral, CollectionTag: "hello world", Operator: registry.OpEndsWith, Value1: "world"}, true},
		{"IS_EMPTY absent", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "Missing", Operator: registry.OpIsEmpty}, true},
		{"IS_EMPTY blank", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "Blank", Operator: registry.OpIsEmpty}, true},
		{"IS_NOT_EMPTY", registry.EdgeSpec{OperandType: registry.OperandTag, CollectionTag: "CustomerType", Operator: registry.OpIsNotEmpty}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateComparison(tt.edge, store); got != tt.want {
				t.Errorf("EvaluateComparison(%+v) = %v, want %v", tt.edge, got, tt.want)
			}
		})
	}
}
