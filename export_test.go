package modelapi

import "reflect"

// Test-only exports for internal functions.
var (
	TagOptions      = tagOptions
	TagContains     = tagContains
	Placeholders    = placeholders
	JSONFieldName   = jsonFieldName
	IsRequiredField = isRequiredField
	FieldTitle      = fieldTitle
	SanitizeName    = sanitizeName

	PopFieldsets     = popFieldsets
	ResolveFieldsets = resolveFieldsets
	RenderFieldsets  = renderFieldsets

	GenerateOperationID = generateOperationID
	ToOpenAPIPath       = toOpenAPIPath
	DeepUpdate          = deepUpdate
)

// ModelSummary is the exported view of modelInfo for tests.
type ModelSummary struct {
	ReqIsModel bool
	BodyType   reflect.Type
	Candidates []reflect.Type
	HasFields  bool
	HasRaw     bool
	Upload     bool
	Responses  []reflect.Type
	Statuses   []int
}

// InferModels runs model inference for the given types and options.
func InferModels(req, resp reflect.Type, opts ...RouteOption) (ModelSummary, error) {
	ri := &routeInfo{}
	for _, opt := range opts {
		opt(ri)
	}
	mi, err := inferModels(req, resp, ri)
	if err != nil {
		return ModelSummary{}, err
	}
	sum := ModelSummary{
		ReqIsModel: mi.reqIsModel,
		BodyType:   mi.bodyType,
		Candidates: mi.candidates,
		HasFields:  mi.fieldsIndex != nil,
		HasRaw:     mi.rawIndex != nil,
		Upload:     mi.upload,
	}
	for _, rm := range mi.responses {
		sum.Responses = append(sum.Responses, rm.typ)
		sum.Statuses = append(sum.Statuses, rm.status)
	}
	return sum, nil
}

// BindModel binds args into a new value of t and returns it with the errors.
func BindModel(t reflect.Type, args map[string]any) (any, ValidationErrors) {
	v := reflect.New(t)
	errs := bindValidated(v.Elem(), args)
	return v.Interface(), errs
}

// SelectUnion runs union selection over candidates for a field of type iface.
func SelectUnion(candidates []reflect.Type, iface reflect.Type, args map[string]any) (any, ValidationErrors) {
	v, errs := selectUnion(candidates, iface, args)
	if len(errs) > 0 {
		return nil, errs
	}
	return v.Interface(), nil
}

// TestSchemaRegistry wraps schemaRegistry for external tests.
type TestSchemaRegistry struct {
	reg  *schemaRegistry
	Defs map[string]JSONSchema
}

// NewSchemaRegistry creates a TestSchemaRegistry for testing.
func NewSchemaRegistry() *TestSchemaRegistry {
	r := newSchemaRegistry()
	return &TestSchemaRegistry{reg: r, Defs: r.defs}
}

// TypeToSchema delegates to the internal registry.
func (t *TestSchemaRegistry) TypeToSchema(typ reflect.Type) JSONSchema {
	return t.reg.typeToSchema(typ)
}
