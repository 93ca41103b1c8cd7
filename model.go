package modelapi

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Model marks a struct as a request or response model. Embed it:
//
//	type Note struct {
//	    modelapi.Model
//	    Title string `json:"title"`
//	}
type Model struct{}

func (Model) apiModel() {}

type modeler interface{ apiModel() }

// SchemaTitler is optionally implemented by models to override the title
// (and component name) used in the OpenAPI document.
type SchemaTitler interface {
	SchemaTitle() string
}

// FieldsetModel is optionally implemented by response models that support
// sparse rendering. The "default" fieldset is always rendered.
type FieldsetModel interface {
	Fieldsets() map[string][]string
}

// Fieldsets receives the fieldset selection of the request (the "fields"
// key by default). Declare a field of this type on the request struct.
type Fieldsets []string

var (
	modelerType   = reflect.TypeFor[modeler]()
	modelType     = reflect.TypeFor[Model]()
	voidType      = reflect.TypeFor[Void]()
	fieldsetsType = reflect.TypeFor[Fieldsets]()
	rawType       = reflect.TypeFor[RawRequest]()
	uploadType    = reflect.TypeFor[FileUpload]()
	uploadsType   = reflect.TypeFor[[]FileUpload]()
	streamType    = reflect.TypeFor[Stream]()
	timeType      = reflect.TypeFor[time.Time]()
	durationType  = reflect.TypeFor[time.Duration]()
	uuidType      = reflect.TypeFor[uuid.UUID]()
	titlerType    = reflect.TypeFor[SchemaTitler]()
	fieldsetMType = reflect.TypeFor[FieldsetModel]()
)

// IsModel reports whether t (or the type t points to) embeds Model.
func IsModel(t reflect.Type) bool {
	if t == nil {
		return false
	}
	t = derefType(t)
	if t.Kind() != reflect.Struct || t == modelType {
		return false
	}
	return t.Implements(modelerType)
}

// responseModel is one member of a route's response union.
type responseModel struct {
	typ    reflect.Type
	status int // 0 means the route's success status
}

// modelInfo is the result of inferring models from a handler's types. It is
// computed once at registration and shared by dispatch and spec generation.
type modelInfo struct {
	void bool

	// reqIsModel means Req itself is the body model.
	reqIsModel bool

	// bodyIndex locates the body model field inside Req.
	bodyIndex []int
	bodyName  string

	// bodyType is the model type, or the interface type of a union body.
	bodyType   reflect.Type
	candidates []reflect.Type

	fieldsIndex []int
	rawIndex    []int

	upload bool

	// multi lists body keys that collect every value of a repeated
	// query or form key.
	multi map[string]bool

	respType  reflect.Type
	responses []responseModel
}

// hasBody reports whether the route binds a body model.
func (mi *modelInfo) hasBody() bool {
	return mi.bodyType != nil
}

// models returns the concrete body model types (one, or the union candidates).
func (mi *modelInfo) models() []reflect.Type {
	if len(mi.candidates) > 0 {
		return mi.candidates
	}
	if mi.bodyType != nil {
		return []reflect.Type{derefType(mi.bodyType)}
	}
	return nil
}

// declaresField reports whether any body model declares the given key.
func (mi *modelInfo) declaresField(name string) bool {
	for _, t := range mi.models() {
		for _, f := range modelFields(t) {
			if jsonFieldName(f) == name {
				return true
			}
		}
	}
	return false
}

// responseFor finds the response model matching a dynamic result type.
func (mi *modelInfo) responseFor(t reflect.Type) (responseModel, bool) {
	if t == nil {
		return responseModel{}, false
	}
	t = derefType(t)
	for _, rm := range mi.responses {
		if rm.typ == t {
			return rm, true
		}
	}
	return responseModel{}, false
}

// wantsFieldsets reports whether the primary response model renders fieldsets.
func (mi *modelInfo) wantsFieldsets() bool {
	return len(mi.responses) > 0 && hasFieldsets(mi.responses[0].typ)
}

// inferModels determines the request body model and the response models
// from the handler's Req and Resp types.
func inferModels(req, resp reflect.Type, ri *routeInfo) (modelInfo, error) {
	mi := modelInfo{respType: resp}

	switch {
	case req == voidType:
		mi.void = true
	case IsModel(req):
		mi.reqIsModel = true
		mi.bodyType = req
	case req.Kind() == reflect.Struct:
		if err := inferContainer(req, ri, &mi); err != nil {
			return mi, err
		}
	}

	if len(ri.accepts) > 0 && len(mi.candidates) == 0 {
		return mi, fmt.Errorf("%w: %s declares Accepts but has no interface body field", ErrInvalidModel, req)
	}

	for _, t := range mi.models() {
		if containsUpload(t) {
			mi.upload = true
		}
	}
	mi.multi = multiValueKeys(mi.models())

	responses, err := inferResponses(resp, ri)
	if err != nil {
		return mi, err
	}
	mi.responses = responses

	return mi, nil
}

func inferContainer(req reflect.Type, ri *routeInfo, mi *modelInfo) error {
	var found []string

	for i := range req.NumField() {
		f := req.Field(i)
		if !f.IsExported() {
			continue
		}

		switch {
		case f.Type == fieldsetsType:
			mi.fieldsIndex = f.Index
			continue
		case f.Type == rawType:
			mi.rawIndex = f.Index
			continue
		case isParamField(f):
			continue
		}

		switch {
		case IsModel(f.Type):
			mi.bodyIndex = f.Index
			mi.bodyType = f.Type
		case f.Type.Kind() == reflect.Interface && len(ri.accepts) > 0:
			candidates, err := unionCandidates(f.Type, ri.accepts)
			if err != nil {
				return err
			}
			mi.bodyIndex = f.Index
			mi.bodyType = f.Type
			mi.candidates = candidates
		default:
			continue
		}

		mi.bodyName = f.Name
		found = append(found, f.Name)
	}

	if len(found) > 1 {
		return fmt.Errorf("%w: %s has model fields %s; could not determine which to map to request body",
			ErrAmbiguousModel, req, strings.Join(found, ", "))
	}
	return nil
}

// unionCandidates checks that every declared candidate is a model that can
// be stored in the interface field.
func unionCandidates(iface reflect.Type, accepts []reflect.Type) ([]reflect.Type, error) {
	candidates := make([]reflect.Type, 0, len(accepts))
	for _, t := range accepts {
		if !IsModel(t) {
			return nil, fmt.Errorf("%w: union candidate %s is not a model", ErrInvalidModel, t)
		}
		base := derefType(t)
		if !base.Implements(iface) && !reflect.PointerTo(base).Implements(iface) {
			return nil, fmt.Errorf("%w: union candidate %s does not implement %s", ErrInvalidModel, base, iface)
		}
		candidates = append(candidates, base)
	}
	return candidates, nil
}

func inferResponses(resp reflect.Type, ri *routeInfo) ([]responseModel, error) {
	base := derefType(resp)

	if IsModel(base) {
		rm := responseModel{typ: base}
		for _, d := range ri.returns {
			if derefType(d.typ) != base {
				return nil, fmt.Errorf("%w: %s is not the response type %s", ErrResponseModel, d.typ, base)
			}
			rm.status = d.status
		}
		return []responseModel{rm}, nil
	}

	if resp.Kind() != reflect.Interface {
		if len(ri.returns) > 0 {
			return nil, fmt.Errorf("%w: Returns requires an interface response type, got %s", ErrResponseModel, resp)
		}
		return nil, nil
	}

	out := make([]responseModel, 0, len(ri.returns))
	for _, d := range ri.returns {
		t := derefType(d.typ)
		if !IsModel(t) {
			return nil, fmt.Errorf("%w: %s is not a model", ErrResponseModel, t)
		}
		if !t.AssignableTo(resp) && !reflect.PointerTo(t).AssignableTo(resp) {
			return nil, fmt.Errorf("%w: %s cannot be returned as %s", ErrResponseModel, t, resp)
		}
		out = append(out, responseModel{typ: t, status: d.status})
	}
	return out, nil
}

// modelFields returns the bindable fields of a model, flattening embedded
// structs and skipping the Model marker and parameter-tagged fields.
func modelFields(t reflect.Type) []reflect.StructField {
	t = derefType(t)
	if t.Kind() != reflect.Struct {
		return nil
	}

	var fields []reflect.StructField
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Type == modelType {
			continue
		}
		if f.Anonymous && f.Tag.Get("json") == "" && f.Type.Kind() == reflect.Struct {
			for _, inner := range modelFields(f.Type) {
				inner.Index = append(append([]int(nil), f.Index...), inner.Index...)
				fields = append(fields, inner)
			}
			continue
		}
		if !f.IsExported() || isParamField(f) || f.Type == rawType || f.Type == fieldsetsType {
			continue
		}
		if jsonFieldName(f) == "-" {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// containsUpload reports whether a model has a file upload field.
func containsUpload(t reflect.Type) bool {
	for _, f := range modelFields(t) {
		if isUploadType(f.Type) {
			return true
		}
	}
	return false
}

func isUploadType(t reflect.Type) bool {
	return t == uploadType || t == uploadsType || t == reflect.PointerTo(uploadType)
}

// multiValueKeys collects keys of slice, array and map typed model fields.
func multiValueKeys(models []reflect.Type) map[string]bool {
	keys := make(map[string]bool)
	for _, t := range models {
		for _, f := range modelFields(t) {
			//exhaustive:ignore
			switch derefType(f.Type).Kind() {
			case reflect.Slice, reflect.Array, reflect.Map:
				if derefType(f.Type) == uuidType {
					continue
				}
				keys[jsonFieldName(f)] = true
			}
		}
	}
	return keys
}

func hasFieldsets(t reflect.Type) bool {
	if t == nil {
		return false
	}
	t = derefType(t)
	return t.Implements(fieldsetMType) || reflect.PointerTo(t).Implements(fieldsetMType)
}

// modelTitle returns the schema title of a type: SchemaTitle() when
// implemented, otherwise the sanitized type name.
func modelTitle(t reflect.Type) string {
	t = derefType(t)
	if t.Implements(titlerType) || reflect.PointerTo(t).Implements(titlerType) {
		if titler, ok := reflect.New(t).Interface().(SchemaTitler); ok {
			if title := titler.SchemaTitle(); title != "" {
				return title
			}
		}
	}
	return sanitizeName(t.Name())
}

// sanitizeName maps a Go type name (possibly generic) onto the component
// name alphabet [A-Za-z0-9._-].
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == '[' || r == ',':
			b.WriteRune('_')
		}
	}
	return b.String()
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// bodyMethod reports whether the HTTP method carries a request body by
// convention. Models on other methods are documented as query parameters.
func bodyMethod(method string) bool {
	return method != http.MethodGet && method != http.MethodDelete && method != http.MethodHead
}
