package policy

import (
	"fmt"
	"time"
)

// Write formatter names
const (
	FormatterRaw         = "raw"
	FormatterText        = "text"
	FormatterDate        = "date"
	FormatterSelect      = "select"
	FormatterMultiSelect = "multi_select"
	FormatterRelation    = "relation"
	FormatterList        = "list"
)

// WriteFormatter converts a merged value into the representation an update call expects
type WriteFormatter func(value any) any

var formatters = map[string]WriteFormatter{
	FormatterRaw:         func(v any) any { return v },
	FormatterText:        formatText,
	FormatterDate:        formatDate,
	FormatterSelect:      formatSelect,
	FormatterMultiSelect: formatMultiSelect,
	FormatterRelation:    formatRelation,
	FormatterList:        formatList,
}

// RegisterFormatter adds a write formatter to the registry
func RegisterFormatter(name string, fn WriteFormatter) {
	formatters[name] = fn
}

// Format applies the attribute's write formatter to a merged value
func (p *Policy) Format(field string, value any) (any, error) {
	f, ok := p.Field(field)
	if !ok {
		return nil, fmt.Errorf("unknown attribute %q", field)
	}
	fn, ok := formatters[f.Formatter()]
	if !ok {
		return nil, fmt.Errorf("attribute %q: unknown write formatter %q", field, f.Formatter())
	}
	return fn(value), nil
}

func formatText(v any) any {
	if v == nil {
		return nil
	}
	return ValueKey(v)
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func formatDate(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.DateOnly)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(time.DateOnly)
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t.UTC().Format(time.DateOnly)
			}
		}
		return val
	default:
		return v
	}
}

func formatSelect(v any) any {
	if v == nil {
		return nil
	}
	return map[string]any{"name": ValueKey(v)}
}

func formatMultiSelect(v any) any {
	items := toItems(v)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{"name": ValueKey(item)})
	}
	return out
}

func formatRelation(v any) any {
	items := toItems(v)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{"id": ValueKey(item)})
	}
	return out
}

func formatList(v any) any {
	return toItems(v)
}

func toItems(v any) []any {
	switch val := v.(type) {
	case nil:
		return []any{}
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return []any{val}
	}
}
