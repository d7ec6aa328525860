package flow

import (
	"strconv"
	"strings"

	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/ivr/vars"
)

// EvaluateComparison evaluates one EdgeSpec's comparison rule against
// the call's variable store. It is used both by the edge
// selector (for apply_comparison edges) and directly by op 120's branch
// handler.
func EvaluateComparison(e registry.EdgeSpec, store *vars.Store) bool {
	left := resolveOperand(e.OperandType, e.CollectionTag, store)

	switch e.Operator {
	case registry.OpEQ:
		return left == e.Value1
	case registry.OpNE:
		return left != e.Value1
	case registry.OpGRT:
		l, r, ok := bothNumeric(left, e.Value1)
		return ok && l > r
	case registry.OpLST:
		l, r, ok := bothNumeric(left, e.Value1)
		return ok && l < r
	case registry.OpGTE:
		l, r, ok := bothNumeric(left, e.Value1)
		return ok && l >= r
	case registry.OpLTE:
		l, r, ok := bothNumeric(left, e.Value1)
		return ok && l <= r
	case registry.OpIBW:
		if e.Value2 == "" {
			return false
		}
		x, lo, ok := bothNumeric(left, e.Value1)
		if !ok {
			return false
		}
		hi, err := strconv.ParseFloat(e.Value2, 64)
		if err != nil {
			return false
		}
		return lo <= x && x <= hi
	case registry.OpOBW:
		if e.Value2 == "" {
			return false
		}
		x, lo, ok := bothNumeric(left, e.Value1)
		if !ok {
			return false
		}
		hi, err := strconv.ParseFloat(e.Value2, 64)
		if err != nil {
			return false
		}
		return x < lo || x > hi
	case registry.OpContains:
		return strings.Contains(left, e.Value1)
	case registry.OpStartsWith:
		return strings.HasPrefix(left, e.Value1)
	case registry.OpEndsWith:
		return strings.HasSuffix(left, e.Value1)
	case registry.OpIsEmpty:
		return strings.TrimSpace(left) == ""
	case registry.OpIsNotEmpty:
		return strings.TrimSpace(left) != ""
	default:
		return false
	}
}

func resolveOperand(kind registry.OperandType, collectionTag string, store *vars.Store) string {
	if kind == registry.OperandTag {
		return store.GetOr(collectionTag, "")
	}
	return collectionTag
}

// bothNumeric parses left and right as float64. A non-numeric value
// against a numeric operator yields ok=false, which every caller treats as "comparison is false".
func bothNumeric(left, right string) (l, r float64, ok bool) {
	l, err1 := strconv.ParseFloat(strings.TrimSpace(left), 64)
	r, err2 := strconv.ParseFloat(strings.TrimSpace(right), 64)
	return l, r, err1 == nil && err2 == nil
}
