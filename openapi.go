package modelapi

import (
	"maps"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/bjaus/modelapi/internal/jsonutil"
)

const (
	fieldsParamDescription    = "Comma separated list of fields, fieldset and/or expansions to return in the response"
	fieldsPropertyDescription = "List of fields, fieldset and/or expansions to return in the response"
)

// OpenAPISpec is the top-level OpenAPI 3.1 document.
type OpenAPISpec struct {
	OpenAPI    string              `json:"openapi"`
	Info       OpenAPIInfo         `json:"info"`
	Servers    []Server            `json:"servers"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`

	// Extra is deep-merged into the document when marshaling.
	Extra map[string]any `json:"-"`
}

// OpenAPIInfo holds API metadata.
type OpenAPIInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// Components holds reusable schemas.
type Components struct {
	Schemas map[string]JSONSchema `json:"schemas"`
}

// PathItem maps lower-case HTTP methods to operations.
type PathItem map[string]*Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Tags        []string               `json:"tags"`
	Summary     string                 `json:"summary,omitempty"`
	Description string                 `json:"description,omitempty"`
	OperationID string                 `json:"operationId,omitempty"`
	Parameters  []Parameter            `json:"parameters"`
	RequestBody *RequestBody           `json:"requestBody,omitempty"`
	Responses   map[string]ResponseObj `json:"responses"`
	Deprecated  bool                   `json:"deprecated,omitempty"`

	// Extra is deep-merged into the operation when marshaling.
	Extra map[string]any `json:"-"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name"`
	In          string     `json:"in"`
	Description string     `json:"description,omitempty"`
	Required    bool       `json:"required,omitempty"`
	Schema      JSONSchema `json:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Description string              `json:"description,omitempty"`
	Required    bool                `json:"required"`
	Content     map[string]MediaObj `json:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *JSONSchema `json:"schema,omitempty"`
}

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description"`
	Content     map[string]MediaObj `json:"content,omitempty"`
}

// MarshalJSON renders the document and merges Extra into it.
func (s OpenAPISpec) MarshalJSON() ([]byte, error) {
	type plain OpenAPISpec
	return marshalWithExtra(plain(s), s.Extra)
}

// MarshalYAML renders the document through its JSON form so YAML output
// uses the same keys.
func (s OpenAPISpec) MarshalYAML() (any, error) {
	data, err := jsonutil.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out any
	if err := jsonutil.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarshalJSON renders the operation and merges Extra into it.
func (o Operation) MarshalJSON() ([]byte, error) {
	type plain Operation
	return marshalWithExtra(plain(o), o.Extra)
}

func marshalWithExtra(v any, extra map[string]any) ([]byte, error) {
	data, err := jsonutil.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var base map[string]any
	if err := jsonutil.Unmarshal(data, &base); err != nil {
		return nil, err
	}
	normalized, err := jsonutil.Marshal(extra)
	if err != nil {
		return nil, err
	}
	var update map[string]any
	if err := jsonutil.Unmarshal(normalized, &update); err != nil {
		return nil, err
	}

	deepUpdate(base, update)
	return jsonutil.Marshal(base)
}

// deepUpdate merges src into dst: maps merge recursively, lists append and
// any other value replaces.
func deepUpdate(dst, src map[string]any) {
	for k, v := range src {
		switch sv := v.(type) {
		case map[string]any:
			if dv, ok := dst[k].(map[string]any); ok {
				deepUpdate(dv, sv)
				continue
			}
		case []any:
			if dv, ok := dst[k].([]any); ok {
				dst[k] = append(dv, sv...)
				continue
			}
		}
		dst[k] = v
	}
}

// Spec generates the full OpenAPI 3.1 specification from registered routes.
// Raw routes are not documented.
func (r *Router) Spec() OpenAPISpec {
	r.mu.Lock()
	routes := slices.Clone(r.routes)
	r.mu.Unlock()

	reg := newSchemaRegistry()

	spec := OpenAPISpec{
		OpenAPI: "3.1.0",
		Info: OpenAPIInfo{
			Title:   r.title,
			Version: r.version,
		},
		Servers:    r.servers,
		Paths:      make(map[string]PathItem),
		Components: Components{Schemas: reg.defs},
		Extra:      r.specExtra,
	}
	if spec.Info.Title == "" {
		spec.Info.Title = "API Documentation"
	}
	if spec.Info.Version == "" {
		spec.Info.Version = "0.1"
	}
	if len(spec.Servers) == 0 {
		spec.Servers = []Server{{URL: "/"}}
	}

	for _, ri := range routes {
		if ri.hidden {
			continue
		}
		path := toOpenAPIPath(ri.pattern)
		if spec.Paths[path] == nil {
			spec.Paths[path] = make(PathItem)
		}
		spec.Paths[path][strings.ToLower(ri.method)] = r.buildOperation(ri, reg)
	}

	return spec
}

// buildOperation creates an Operation from a routeInfo.
func (r *Router) buildOperation(ri *routeInfo, reg *schemaRegistry) *Operation {
	op := &Operation{
		Tags:        append([]string{}, ri.tags...),
		Summary:     ri.summary,
		Description: ri.desc,
		OperationID: ri.operationID,
		Parameters:  []Parameter{},
		Responses:   make(map[string]ResponseObj),
		Deprecated:  ri.deprecated,
		Extra:       ri.extra,
	}
	if op.OperationID == "" {
		op.OperationID = generateOperationID(ri.method, ri.pattern)
	}

	mi := &ri.models
	bodyInQuery := mi.hasBody() && !mi.upload && !bodyMethod(ri.method)

	op.Parameters = append(op.Parameters, pathParameters(ri, reg)...)
	op.Parameters = append(op.Parameters, taggedParameters(ri.reqType, reg)...)

	if mi.hasBody() {
		if bodyInQuery {
			op.Parameters = append(op.Parameters, modelQueryParameters(ri, reg)...)
		} else {
			op.RequestBody = requestBody(mi, reg)
		}
	}

	if mi.wantsFieldsets() && !mi.declaresField(ri.fieldsName) {
		switch {
		case mi.hasBody() && !bodyInQuery:
			addFieldsProperty(mi, reg, ri.fieldsName)
		case ri.method == http.MethodGet:
			op.Parameters = append(op.Parameters, Parameter{
				Name:        ri.fieldsName,
				In:          "query",
				Description: fieldsParamDescription,
				Schema:      JSONSchema{Type: "string"},
			})
		}
	}

	buildResponses(op, ri, reg)

	if r.renderErrors && (mi.hasBody() || len(op.Parameters) > 0) {
		addProblemResponse(op, reg, r.errorStatus, "Validation Failed")
	}
	for _, code := range ri.errors {
		addProblemResponse(op, reg, code, http.StatusText(code))
	}
	if ri.rateLimit != nil {
		addProblemResponse(op, reg, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		extra := maps.Clone(ri.extra)
		if extra == nil {
			extra = make(map[string]any)
		}
		extra["x-rate-limit"] = map[string]any{"rate": ri.rateLimit.Rate, "burst": ri.rateLimit.Burst}
		op.Extra = extra
	}

	return op
}

// pathParameters documents every placeholder of the pattern, typed from a
// path-tagged field or a merged model field when one exists.
func pathParameters(ri *routeInfo, reg *schemaRegistry) []Parameter {
	typed := make(map[string]reflect.StructField)
	if req := derefType(ri.reqType); req.Kind() == reflect.Struct {
		for i := range req.NumField() {
			f := req.Field(i)
			if name := f.Tag.Get("path"); name != "" {
				typed[name] = f
			}
		}
	}
	if ri.mergePath {
		for _, t := range ri.models.models() {
			for _, f := range modelFields(t) {
				if _, ok := typed[jsonFieldName(f)]; !ok {
					typed[jsonFieldName(f)] = f
				}
			}
		}
	}

	names := placeholders(ri.pattern)
	params := make([]Parameter, 0, len(names))
	for _, name := range names {
		p := Parameter{Name: name, In: "path", Required: true, Schema: JSONSchema{Type: "string"}}
		if f, ok := typed[name]; ok {
			p.Schema = reg.typeToSchema(f.Type)
			p.Description = f.Tag.Get("doc")
		}
		params = append(params, p)
	}
	return params
}

// taggedParameters builds query, header and cookie parameters from the
// tagged fields of a request type.
func taggedParameters(t reflect.Type, reg *schemaRegistry) []Parameter {
	t = derefType(t)
	if t.Kind() != reflect.Struct {
		return nil
	}

	var params []Parameter
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		in, name := paramTag(f)
		if in == "" || in == "path" {
			continue
		}

		p := Parameter{
			Name:        name,
			In:          in,
			Description: f.Tag.Get("doc"),
			Required:    f.Tag.Get("required") == "true",
			Schema:      reg.typeToSchema(f.Type),
		}
		applyConstraintTags(&p.Schema, f)
		params = append(params, p)
	}
	return params
}

// modelQueryParameters documents the body models of a GET or DELETE route
// as query parameters. Union candidates are merged by name and none of
// their fields is required. Merged path placeholders are left to the path.
func modelQueryParameters(ri *routeInfo, reg *schemaRegistry) []Parameter {
	skip := make(map[string]bool)
	if ri.mergePath {
		for _, name := range placeholders(ri.pattern) {
			skip[name] = true
		}
	}

	models := ri.models.models()
	var params []Parameter
	for _, t := range models {
		for _, f := range modelFields(t) {
			name := jsonFieldName(f)
			if skip[name] {
				continue
			}
			skip[name] = true
			schema := reg.fieldSchema(f)
			params = append(params, Parameter{
				Name:        name,
				In:          "query",
				Description: schema.Description,
				Required:    len(models) == 1 && isRequiredField(f),
				Schema:      schema,
			})
		}
	}
	return params
}

func requestBody(mi *modelInfo, reg *schemaRegistry) *RequestBody {
	models := mi.models()
	schema, title := unionSchema(models, reg)
	// The first candidate that binds wins, so a payload may match several.
	schema.AnyOf, schema.OneOf = schema.OneOf, nil

	contentType := "application/json"
	if mi.upload {
		contentType = "multipart/form-data"
	}

	return &RequestBody{
		Description: "A " + title,
		Required:    true,
		Content: map[string]MediaObj{
			contentType: {Schema: &schema},
		},
	}
}

// unionSchema references one model, or several as oneOf.
func unionSchema(models []reflect.Type, reg *schemaRegistry) (JSONSchema, string) {
	titles := make([]string, len(models))
	refs := make([]JSONSchema, len(models))
	for i, t := range models {
		refs[i] = reg.typeToSchema(t)
		titles[i] = modelTitle(t)
	}
	if len(refs) == 1 {
		return refs[0], titles[0]
	}
	return JSONSchema{OneOf: refs}, strings.Join(titles, " or ")
}

// addFieldsProperty adds the fieldset key as a list property of every body
// model component.
func addFieldsProperty(mi *modelInfo, reg *schemaRegistry, name string) {
	for _, t := range mi.models() {
		ref := reg.typeToSchema(t)
		component := strings.TrimPrefix(ref.Ref, componentPrefix)
		schema, ok := reg.defs[component]
		if !ok {
			continue
		}
		if schema.Properties == nil {
			schema.Properties = make(map[string]JSONSchema)
		}
		if _, ok := schema.Properties[name]; ok {
			continue
		}
		schema.Properties[name] = JSONSchema{
			Type:        "array",
			Title:       name,
			Description: fieldsPropertyDescription,
			Items:       &JSONSchema{Type: "string"},
		}
		reg.defs[component] = schema
	}
}

func buildResponses(op *Operation, ri *routeInfo, reg *schemaRegistry) {
	mi := &ri.models

	if len(mi.responses) > 0 {
		var statuses []int
		byStatus := make(map[int][]reflect.Type)
		for _, rm := range mi.responses {
			status := ri.statusFor(rm)
			if _, ok := byStatus[status]; !ok {
				statuses = append(statuses, status)
			}
			byStatus[status] = append(byStatus[status], rm.typ)
		}
		for _, status := range statuses {
			schema, title := unionSchema(byStatus[status], reg)
			op.Responses[strconv.Itoa(status)] = ResponseObj{
				Description: "A " + title,
				Content: map[string]MediaObj{
					"application/json": {Schema: &schema},
				},
			}
		}
		return
	}

	status := strconv.Itoa(ri.status)
	resp := derefType(ri.respType)

	switch {
	case resp == voidType || resp.Kind() == reflect.Interface:
		op.Responses[status] = ResponseObj{Description: "Empty Response"}

	case resp == streamType || (resp.Kind() == reflect.Slice && resp.Elem().Kind() == reflect.Uint8):
		op.Responses[status] = ResponseObj{
			Description: "Successful response",
			Content: map[string]MediaObj{
				"application/octet-stream": {Schema: &JSONSchema{Type: "string", Format: "binary"}},
			},
		}

	case resp.Kind() == reflect.String:
		op.Responses[status] = ResponseObj{
			Description: "Successful response",
			Content: map[string]MediaObj{
				"text/plain": {Schema: &JSONSchema{Type: "string"}},
			},
		}

	default:
		schema := reg.typeToSchema(resp)
		op.Responses[status] = ResponseObj{
			Description: "Successful response",
			Content: map[string]MediaObj{
				"application/json": {Schema: &schema},
			},
		}
	}
}

// addProblemResponse documents a problem-detail response unless the
// status is already described.
func addProblemResponse(op *Operation, reg *schemaRegistry, status int, desc string) {
	key := strconv.Itoa(status)
	if _, ok := op.Responses[key]; ok {
		return
	}
	if desc == "" {
		desc = "Error"
	}
	schema := reg.typeToSchema(reflect.TypeFor[ProblemDetail]())
	op.Responses[key] = ResponseObj{
		Description: desc,
		Content: map[string]MediaObj{
			"application/problem+json": {Schema: &schema},
		},
	}
}

// AddResponseSchema registers T as a component and documents it under
// status on every operation that does not describe that status yet. It
// does nothing on a document without paths.
func AddResponseSchema[T any](spec *OpenAPISpec, status int) {
	if len(spec.Paths) == 0 {
		return
	}
	if spec.Components.Schemas == nil {
		spec.Components.Schemas = make(map[string]JSONSchema)
	}

	reg := newSchemaRegistry()
	reg.adopt(spec.Components.Schemas)

	t := reflect.TypeFor[T]()
	schema := reg.typeToSchema(t)
	title := modelTitle(t)
	key := strconv.Itoa(status)

	for _, item := range spec.Paths {
		for _, op := range item {
			if _, ok := op.Responses[key]; ok {
				continue
			}
			op.Responses[key] = ResponseObj{
				Description: "A " + title,
				Content: map[string]MediaObj{
					"application/json": {Schema: &schema},
				},
			}
		}
	}
}

// generateOperationID derives an operationId such as getNotesById from
// the method and pattern.
func generateOperationID(method, pattern string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))

	wrote := false
	for seg := range strings.SplitSeq(pattern, "/") {
		if seg == "" || seg == "{$}" {
			continue
		}
		if m := placeholderRE.FindStringSubmatch(seg); m != nil {
			b.WriteString("By")
			b.WriteString(camelWord(m[1]))
			wrote = true
			continue
		}
		b.WriteString(camelWord(seg))
		wrote = true
	}
	if !wrote {
		b.WriteString("Root")
	}
	return b.String()
}

// camelWord capitalizes each alphanumeric run of s and drops the rest.
func camelWord(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// toOpenAPIPath converts a mux pattern like "/files/{path...}" to an
// OpenAPI path.
func toOpenAPIPath(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "{$}", "")
	return strings.ReplaceAll(pattern, "...}", "}")
}
