package modelapi

import (
	"reflect"
	"regexp"
	"strings"
)

// paramTags are the struct tags used for binding request parameters.
var paramTags = []string{"path", "query", "header", "cookie"}

// placeholderRE matches {name} and {name...} segments of a route pattern.
var placeholderRE = regexp.MustCompile(`\{([^}/.$]+)(\.\.\.)?\}`)

// isParamField reports whether a struct field has parameter binding tags.
func isParamField(f reflect.StructField) bool {
	for _, tag := range paramTags {
		if f.Tag.Get(tag) != "" {
			return true
		}
	}
	return false
}

// paramTag returns the binding location and name of a parameter field.
func paramTag(f reflect.StructField) (string, string) {
	for _, tag := range paramTags {
		if name := f.Tag.Get(tag); name != "" {
			return tag, name
		}
	}
	return "", ""
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(f reflect.StructField) string {
	name, _ := tagOptions(f.Tag.Get("json"))
	if name == "" {
		return f.Name
	}
	return name
}

// isRequiredField reports whether a model field must be present in the
// request arguments. Pointers, omitempty fields and fields with a default
// are optional unless required:"true" says otherwise.
func isRequiredField(f reflect.StructField) bool {
	switch f.Tag.Get("required") {
	case "true":
		return true
	case "false":
		return false
	}
	if f.Type.Kind() == reflect.Pointer {
		return false
	}
	if _, ok := f.Tag.Lookup("default"); ok {
		return false
	}
	_, opts := tagOptions(f.Tag.Get("json"))
	return !tagContains(opts, "omitempty")
}

// placeholders returns the placeholder names of a route pattern in order.
func placeholders(pattern string) []string {
	matches := placeholderRE.FindAllStringSubmatch(pattern, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// tagOptions splits a struct tag value on comma and returns
// the name and remaining options.
func tagOptions(tag string) (string, string) {
	name, opts, _ := strings.Cut(tag, ",")
	return name, opts
}

// tagContains reports whether a comma-separated list of options
// contains a particular option.
func tagContains(opts string, name string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == name {
			return true
		}
	}
	return false
}
