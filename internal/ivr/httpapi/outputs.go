package httpapi

import (
	"encoding/json"
	"strings"

	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/ivr/vars"
)

// applyOutputs decodes body as JSON and writes every ApiOutput into
// store. It returns "S" if every success-validator
// output held (or none exist), "F" otherwise.
func (inv *Invoker) applyOutputs(api registry.ApiSpec, body []byte, store *vars.Store) string {
	var decoded any
	_ = json.Unmarshal(body, &decoded) // malformed/empty bodies just yield no fields found below

	allPassed := true
	anyValidator := false

	for _, out := range api.Outputs {
		value, found := extractOutput(decoded, out)

		var stringVal string
		switch {
		case found:
			stringVal = stringifyJSONValue(value)
			store.Set(out.TagName, stringVal)
		case out.DefaultValue != "":
			stringVal = out.DefaultValue
			store.Set(out.TagName, stringVal)
		default:
			continue
		}

		if out.IsSuccessValidator {
			anyValidator = true
			if stringVal != out.SuccessValue {
				allPassed = false
			}
		}
	}

	if !anyValidator || allPassed {
		return "S"
	}
	return "F"
}

// extractOutput resolves one ApiOutput's value from the in-memory
// decoded response. When ParentField is set, the parent subtree is
// looked up first and JSONField is resolved relative to it, against the
// in-memory decoded response directly rather than a previously-stored
// JSON string.
func extractOutput(decoded any, out registry.ApiOutput) (any, bool) {
	root := decoded
	if out.ParentField != "" {
		parent, ok := lookupPath(decoded, out.ParentField)
		if !ok {
			return nil, false
		}
		root = parent
	}

	value, ok := lookupPath(root, out.JSONField)
	if !ok {
		return nil, false
	}

	if out.IsList {
		list, ok := value.([]any)
		if !ok || out.ListIndex < 0 || out.ListIndex >= len(list) {
			return nil, false
		}
		return list[out.ListIndex], true
	}

	return value, true
}

// lookupPath resolves a dotted field path ("data.token") against a
// decoded JSON value, descending through map[string]any levels.
func lookupPath(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}

	cur := v
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// stringifyJSONValue renders a decoded JSON value as the text stored
// in the variable store: strings unquoted, everything else (objects,
// arrays, numbers, booleans, null) as JSON text.
func stringifyJSONValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
