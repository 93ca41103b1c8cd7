package modelapi

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var patternCache sync.Map // map[string]*regexp.Regexp

func compilePattern(expr string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(expr); ok {
		return re.(*regexp.Regexp), nil //nolint:forcetypeassert // only *regexp.Regexp is stored
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	patternCache.Store(expr, re)
	return re, nil
}

// paramConstraintErrors checks the constraint tags of parameter fields.
// Errors are located at [in, name], e.g. ["query", "limit"].
func paramConstraintErrors(rv reflect.Value) ValidationErrors {
	var errs ValidationErrors
	t := rv.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || !isParamField(f) {
			continue
		}
		in, name := paramTag(f)
		errs = append(errs, checkFieldConstraints(f, rv.Field(i), []string{in, name})...)
	}
	return errs
}

// checkFieldConstraints validates a bound value against the field's
// constraint tags.
func checkFieldConstraints(f reflect.StructField, fv reflect.Value, loc []string) ValidationErrors {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}

	var errs ValidationErrors
	add := func(msg, typ string) {
		errs = append(errs, ValidationError{Loc: loc, Msg: msg, Type: typ})
	}

	if fv.Kind() == reflect.String {
		val := fv.String()
		n := len([]rune(val))
		if tag := f.Tag.Get("minLength"); tag != "" {
			if lower, err := strconv.Atoi(tag); err == nil && n < lower {
				add(fmt.Sprintf("ensure this value has at least %d characters", lower), "value_error.any_str.min_length")
			}
		}
		if tag := f.Tag.Get("maxLength"); tag != "" {
			if upper, err := strconv.Atoi(tag); err == nil && n > upper {
				add(fmt.Sprintf("ensure this value has at most %d characters", upper), "value_error.any_str.max_length")
			}
		}
		if tag := f.Tag.Get("pattern"); tag != "" {
			if re, err := compilePattern(tag); err == nil && !re.MatchString(val) {
				add(fmt.Sprintf("string does not match regex %q", tag), "value_error.str.regex")
			}
		}
		if tag := f.Tag.Get("enum"); tag != "" {
			allowed := strings.Split(tag, ",")
			found := false
			for _, a := range allowed {
				if a == val {
					found = true
					break
				}
			}
			if !found {
				add("value is not a valid enumeration member; permitted: '"+strings.Join(allowed, "', '")+"'", "type_error.enum")
			}
		}
	}

	if isNumericKind(fv.Kind()) {
		floatVal := toFloat64(fv)
		if tag := f.Tag.Get("minimum"); tag != "" {
			if lower, err := strconv.ParseFloat(tag, 64); err == nil && floatVal < lower {
				add("ensure this value is greater than or equal to "+tag, "value_error.number.not_ge")
			}
		}
		if tag := f.Tag.Get("maximum"); tag != "" {
			if upper, err := strconv.ParseFloat(tag, 64); err == nil && floatVal > upper {
				add("ensure this value is less than or equal to "+tag, "value_error.number.not_le")
			}
		}
	}

	if fv.Kind() == reflect.Slice {
		length := fv.Len()
		if tag := f.Tag.Get("minItems"); tag != "" {
			if n, err := strconv.Atoi(tag); err == nil && length < n {
				add(fmt.Sprintf("ensure this value has at least %d items", n), "value_error.list.min_items")
			}
		}
		if tag := f.Tag.Get("maxItems"); tag != "" {
			if n, err := strconv.Atoi(tag); err == nil && length > n {
				add(fmt.Sprintf("ensure this value has at most %d items", n), "value_error.list.max_items")
			}
		}
	}

	return errs
}

// applyConstraintTags copies constraint tags of a field onto its schema.
func applyConstraintTags(s *JSONSchema, f reflect.StructField) {
	if tag := f.Tag.Get("minLength"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			s.MinLength = &n
		}
	}
	if tag := f.Tag.Get("maxLength"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			s.MaxLength = &n
		}
	}
	if tag := f.Tag.Get("pattern"); tag != "" {
		s.Pattern = tag
	}
	if tag := f.Tag.Get("minimum"); tag != "" {
		if n, err := strconv.ParseFloat(tag, 64); err == nil {
			s.Minimum = &n
		}
	}
	if tag := f.Tag.Get("maximum"); tag != "" {
		if n, err := strconv.ParseFloat(tag, 64); err == nil {
			s.Maximum = &n
		}
	}
	if tag := f.Tag.Get("enum"); tag != "" {
		for v := range strings.SplitSeq(tag, ",") {
			s.Enum = append(s.Enum, v)
		}
	}
	if tag := f.Tag.Get("minItems"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			s.MinItems = &n
		}
	}
	if tag := f.Tag.Get("maxItems"); tag != "" {
		if n, err := strconv.Atoi(tag); err == nil {
			s.MaxItems = &n
		}
	}
	if tag, ok := f.Tag.Lookup("default"); ok {
		s.Default = typedDefault(s.Type, tag)
	}
}

// typedDefault converts a default tag to the schema's type so the
// document validates.
func typedDefault(typ, tag string) any {
	switch typ {
	case "integer":
		if n, err := strconv.ParseInt(tag, 10, 64); err == nil {
			return n
		}
	case "number":
		if n, err := strconv.ParseFloat(tag, 64); err == nil {
			return n
		}
	case "boolean":
		if b, err := strconv.ParseBool(tag); err == nil {
			return b
		}
	case "array":
		if tag == "" {
			return []any{}
		}
		parts := strings.Split(tag, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out
	}
	return tag
}

func isNumericKind(k reflect.Kind) bool {
	//exhaustive:ignore
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func toFloat64(v reflect.Value) float64 {
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default: // float32, float64
		return v.Float()
	}
}
