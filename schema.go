package modelapi

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"
)

// JSONSchema represents a JSON Schema object (subset for OpenAPI 3.1).
type JSONSchema struct {
	Ref         string                `json:"$ref,omitempty"`
	Type        string                `json:"type,omitempty"`
	Format      string                `json:"format,omitempty"`
	Title       string                `json:"title,omitempty"`
	Description string                `json:"description,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	OneOf       []JSONSchema          `json:"oneOf,omitempty"`
	AnyOf       []JSONSchema          `json:"anyOf,omitempty"`
	Default     any                   `json:"default,omitempty"`

	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	MinItems  *int     `json:"minItems,omitempty"`
	MaxItems  *int     `json:"maxItems,omitempty"`

	// AdditionalProperties can be true (any) or a schema.
	AdditionalProperties *JSONSchema `json:"additionalProperties,omitempty"`
}

const componentPrefix = "#/components/schemas/"

// schemaRegistry collects named struct schemas as components and hands
// out $ref schemas for them.
type schemaRegistry struct {
	defs   map[string]JSONSchema
	names  map[reflect.Type]string
	owners map[string]reflect.Type
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{
		defs:   make(map[string]JSONSchema),
		names:  make(map[reflect.Type]string),
		owners: make(map[string]reflect.Type),
	}
}

// typeToSchema converts a reflect.Type to a JSONSchema. Named structs are
// registered as components and referenced.
func (sr *schemaRegistry) typeToSchema(t reflect.Type) JSONSchema {
	t = derefType(t)

	switch t {
	case timeType:
		return JSONSchema{Type: "string", Format: "date-time"}
	case durationType:
		return JSONSchema{Type: "string", Format: "duration"}
	case uuidType:
		return JSONSchema{Type: "string", Format: "uuid"}
	case voidType:
		return JSONSchema{}
	case streamType, uploadType:
		return JSONSchema{Type: "string", Format: "binary"}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return JSONSchema{Type: "string"}
	case reflect.Bool:
		return JSONSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return JSONSchema{Type: "number"}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return JSONSchema{Type: "string", Format: "byte"}
		}
		items := sr.typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Array:
		items := sr.typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return JSONSchema{Type: "object"}
		}
		valSchema := sr.typeToSchema(t.Elem())
		return JSONSchema{Type: "object", AdditionalProperties: &valSchema}
	case reflect.Struct:
		if t.Name() == "" {
			return sr.structToSchema(t)
		}
		return sr.ref(t)
	default:
		return JSONSchema{}
	}
}

// ref registers t as a component (once) and returns a reference to it.
func (sr *schemaRegistry) ref(t reflect.Type) JSONSchema {
	if name, ok := sr.names[t]; ok {
		return JSONSchema{Ref: componentPrefix + name}
	}

	name, existing := sr.componentName(t)
	sr.names[t] = name
	sr.owners[name] = t
	if !existing {
		// Placeholder breaks recursion for self-referencing types.
		sr.defs[name] = JSONSchema{Type: "object"}
		sr.defs[name] = sr.structToSchema(t)
	}

	return JSONSchema{Ref: componentPrefix + name}
}

// adopt takes over the components of an existing document. Their types
// are unknown, so a model reuses one only when it renders the same schema.
func (sr *schemaRegistry) adopt(defs map[string]JSONSchema) {
	sr.defs = defs
	for name := range defs {
		sr.owners[name] = nil
	}
}

// componentName derives a unique component name from the model title. It
// reports whether the name refers to an adopted component equal to t's.
func (sr *schemaRegistry) componentName(t reflect.Type) (string, bool) {
	base := sanitizeName(modelTitle(t))
	if base == "" {
		base = "Model"
	}
	name := base
	for i := 2; ; i++ {
		owner, taken := sr.owners[name]
		switch {
		case !taken || owner == t:
			return name, false
		case owner == nil && reflect.DeepEqual(newSchemaRegistry().structToSchema(t), sr.defs[name]):
			return name, true
		}
		name = base + strconv.Itoa(i)
	}
}

// structToSchema converts a struct type to a JSONSchema with properties.
func (sr *schemaRegistry) structToSchema(t reflect.Type) JSONSchema {
	schema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
	}
	if t.Name() != "" {
		schema.Title = modelTitle(t)
	}

	for _, f := range modelFields(t) {
		name := jsonFieldName(f)
		schema.Properties[name] = sr.fieldSchema(f)
		if isRequiredField(f) {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}

// fieldSchema builds the schema of one model field with its title,
// description and constraints. References carry no siblings.
func (sr *schemaRegistry) fieldSchema(f reflect.StructField) JSONSchema {
	prop := sr.typeToSchema(f.Type)
	if prop.Ref != "" {
		return prop
	}
	prop.Title = fieldTitle(jsonFieldName(f))
	if doc := f.Tag.Get("doc"); doc != "" {
		prop.Description = doc
	}
	applyConstraintTags(&prop, f)
	return prop
}

// fieldTitle turns a field name into a title: error_code and errorCode
// both become "Error Code".
func fieldTitle(name string) string {
	var words []string
	for part := range strings.FieldsFuncSeq(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' }) {
		words = append(words, splitCamel(part)...)
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func splitCamel(s string) []string {
	var (
		words []string
		start int
	)
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}
