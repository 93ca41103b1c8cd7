package modelapi

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bjaus/modelapi/internal/jsonutil"
)

// popFieldsets removes the fieldset key from args and parses it. A model
// that declares the key keeps it, and a malformed value is then ignored.
func popFieldsets(args map[string]any, name string, declared bool) (Fieldsets, ValidationErrors) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return Fieldsets{}, nil
	}
	if !declared {
		delete(args, name)
	}

	fields, ok := parseFieldsets(raw)
	if ok {
		return fields, nil
	}
	if declared {
		return Fieldsets{}, nil
	}
	return nil, ValidationErrors{
		{Loc: []string{name}, Msg: "str type expected", Type: "type_error.str"},
		{Loc: []string{name}, Msg: "value is not a valid list", Type: "type_error.list"},
	}
}

func parseFieldsets(raw any) (Fieldsets, bool) {
	switch v := raw.(type) {
	case string:
		return splitFields(v), true
	case []string:
		out := Fieldsets{}
		for _, s := range v {
			out = append(out, splitFields(s)...)
		}
		return out, true
	case []any:
		out := Fieldsets{}
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, splitFields(s)...)
		}
		return out, true
	}
	return nil, false
}

func splitFields(s string) Fieldsets {
	out := Fieldsets{}
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolveFieldsets expands the default fieldset and the requested entries
// into dotted field paths. A nil result means render everything.
func resolveFieldsets(sets map[string][]string, requested Fieldsets, maxDepth int) []string {
	var entries []string
	if def, ok := sets["default"]; ok {
		entries = append(entries, def...)
	} else if len(requested) == 0 {
		return nil
	}
	entries = append(entries, requested...)

	seen := make(map[string]bool)
	paths := []string{}

	var expand func(entry string, level int)
	expand = func(entry string, level int) {
		if fs, ok := sets[entry]; ok && level <= len(sets) {
			for _, e := range fs {
				expand(e, level+1)
			}
			return
		}
		if strings.Count(entry, ".")+1 > maxDepth || seen[entry] {
			return
		}
		seen[entry] = true
		paths = append(paths, entry)
	}
	for _, e := range entries {
		expand(e, 0)
	}
	return paths
}

// renderFieldsets reduces a FieldsetModel to the resolved paths. Other
// values are returned unchanged.
func renderFieldsets(v any, requested Fieldsets, maxDepth int) (any, error) {
	fm, ok := v.(FieldsetModel)
	if !ok {
		return v, nil
	}
	paths := resolveFieldsets(fm.Fieldsets(), requested, maxDepth)
	if paths == nil {
		return v, nil
	}

	data, err := jsonutil.Marshal(v)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(data)
	out := make(map[string]any)
	for _, p := range paths {
		project(out, root, strings.Split(p, "."))
	}
	return out, nil
}

// project copies the value found at segs in src into dst. When a segment
// lands on a list, the remaining segments are applied to every element.
func project(dst map[string]any, src gjson.Result, segs []string) {
	key := segs[0]
	res := src.Get(gjsonKey(key))
	if !res.Exists() {
		return
	}
	if len(segs) == 1 {
		dst[key] = res.Value()
		return
	}

	switch {
	case res.IsObject():
		next, ok := dst[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			dst[key] = next
		}
		project(next, res, segs[1:])

	case res.IsArray():
		elems := res.Array()
		list, ok := dst[key].([]any)
		if !ok || len(list) != len(elems) {
			list = make([]any, len(elems))
			dst[key] = list
		}
		for i, e := range elems {
			if !e.IsObject() {
				continue
			}
			next, ok := list[i].(map[string]any)
			if !ok {
				next = make(map[string]any)
				list[i] = next
			}
			project(next, e, segs[1:])
		}
	}
}

// gjsonKey escapes gjson's special characters in a single key.
func gjsonKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`\.*?|#@!=<>%`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
