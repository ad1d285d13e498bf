package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// IsEmpty reports whether a value counts as "no value": nil, blank strings and empty collections
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case *string:
		return val == nil || strings.TrimSpace(*val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	case time.Time:
		return val.IsZero()
	case *time.Time:
		return val == nil || val.IsZero()
	default:
		return false
	}
}

// Equivalent compares two values treating every empty representation as equal
func Equivalent(a, b any) bool {
	aEmpty, bEmpty := IsEmpty(a), IsEmpty(b)
	if aEmpty || bEmpty {
		return aEmpty == bEmpty
	}
	return ValueKey(a) == ValueKey(b)
}

// ValueKey is the comparison key used for deduplication and equality
func ValueKey(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Coerce converts a raw property value into the shape used for the attribute kind:
// scalars stay primitives (nil when empty), sets become []any and relations []string.
func Coerce(kind models.AttributeKind, raw any) any {
	switch kind {
	case models.AttributeKindSet:
		return coerceSet(raw)
	case models.AttributeKindRelation:
		return coerceRelation(raw)
	default:
		return coerceScalar(raw)
	}
}

func coerceScalar(raw any) any {
	switch val := raw.(type) {
	case []any:
		for _, item := range val {
			if s := coerceScalar(item); s != nil {
				return s
			}
		}
		return nil
	case map[string]any:
		// select-shaped values carry their label under "name"
		if name, ok := val["name"]; ok {
			return coerceScalar(name)
		}
		if IsEmpty(val) {
			return nil
		}
		return val
	default:
		if IsEmpty(raw) {
			return nil
		}
		return raw
	}
}

func coerceSet(raw any) []any {
	var items []any
	switch val := raw.(type) {
	case nil:
		return []any{}
	case []any:
		items = val
	case []string:
		items = make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
	default:
		items = []any{val}
	}

	out := make([]any, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		value := coerceScalar(item)
		if value == nil {
			continue
		}
		key := ValueKey(value)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, value)
	}
	return out
}

func coerceRelation(raw any) []string {
	var items []any
	switch val := raw.(type) {
	case nil:
		return []string{}
	case []any:
		items = val
	case []string:
		items = make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
	default:
		items = []any{val}
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		var id string
		switch ref := item.(type) {
		case string:
			id = strings.TrimSpace(ref)
		case map[string]any:
			if v, ok := ref["id"].(string); ok {
				id = strings.TrimSpace(v)
			}
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
