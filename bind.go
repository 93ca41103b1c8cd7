package modelapi

import (
	"errors"
	"mime/multipart"
	"reflect"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// bindBody binds args into the body slot of the request: a model value,
// a pointer to one, or an interface field holding the first union
// candidate that binds cleanly.
func (d *dispatcher) bindBody(target reflect.Value, args map[string]any) ValidationErrors {
	mi := &d.route.models

	if len(mi.candidates) == 0 {
		if target.Kind() == reflect.Pointer {
			v := reflect.New(target.Type().Elem())
			if errs := bindValidated(v.Elem(), args); len(errs) > 0 {
				return errs
			}
			target.Set(v)
			return nil
		}
		return bindValidated(target, args)
	}

	v, errs := selectUnion(mi.candidates, target.Type(), args)
	if len(errs) > 0 {
		return errs
	}
	target.Set(v)
	return nil
}

// selectUnion tries each candidate in order and returns the first that
// binds without errors, ready to store in a field of type iface. When none
// binds, the errors of every candidate are returned with loc prefixed by
// the candidate's title.
func selectUnion(candidates []reflect.Type, iface reflect.Type, args map[string]any) (reflect.Value, ValidationErrors) {
	var all ValidationErrors
	for _, c := range candidates {
		v := reflect.New(c)
		errs := bindValidated(v.Elem(), args)
		if len(errs) == 0 {
			if c.Implements(iface) {
				return v.Elem(), nil
			}
			return v, nil
		}
		all = append(all, errs.prefixed(modelTitle(c))...)
	}
	return reflect.Value{}, all
}

// bindValidated binds a model and runs its SelfValidator when binding
// produced no errors.
func bindValidated(v reflect.Value, args map[string]any) ValidationErrors {
	return bindNested(v, args, nil)
}

// bindNested binds a model located at loc and runs its SelfValidator when
// binding produced no errors.
func bindNested(v reflect.Value, args map[string]any, loc []string) ValidationErrors {
	if errs := bindModel(v, args, loc); len(errs) > 0 {
		return errs
	}
	sv, ok := v.Addr().Interface().(SelfValidator)
	if !ok {
		return nil
	}
	err := sv.Validate()
	if err == nil {
		return nil
	}
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		errs = ValidationErrors{{Loc: []string{}, Msg: err.Error(), Type: "value_error"}}
	}
	if len(loc) == 0 {
		return errs
	}
	return errs.prefixed(loc...)
}

// bindList binds a list of objects into a slice or array of models element
// by element, locating errors at [..., name, "<i>", ...].
func bindList(fv reflect.Value, items []any, loc []string) ValidationErrors {
	elem := fv.Type().Elem()

	var out reflect.Value
	if fv.Kind() == reflect.Slice {
		out = reflect.MakeSlice(fv.Type(), len(items), len(items))
	} else {
		out = reflect.New(fv.Type()).Elem()
		if len(items) > out.Len() {
			items = items[:out.Len()]
		}
	}

	var errs ValidationErrors
	for i, item := range items {
		eloc := append(append([]string(nil), loc...), strconv.Itoa(i))
		m, ok := item.(map[string]any)
		switch {
		case !ok && item == nil && elem.Kind() == reflect.Pointer:
			continue
		case !ok:
			errs = append(errs, typeError(elem, eloc))
			continue
		}

		if elem.Kind() != reflect.Pointer {
			errs = append(errs, bindNested(out.Index(i), m, eloc)...)
			continue
		}
		ptr := reflect.New(elem.Elem())
		nested := bindNested(ptr.Elem(), m, eloc)
		if len(nested) > 0 {
			errs = append(errs, nested...)
			continue
		}
		out.Index(i).Set(ptr)
	}

	if len(errs) == 0 {
		fv.Set(out)
	}
	return errs
}

// bindModel converts args into the model value v field by field and
// collects every failure.
func bindModel(v reflect.Value, args map[string]any, loc []string) ValidationErrors {
	var errs ValidationErrors

	for _, f := range modelFields(v.Type()) {
		name := jsonFieldName(f)
		floc := append(append([]string(nil), loc...), name)
		fv := v.FieldByIndex(f.Index)

		raw, present := args[name]
		if present && raw == nil {
			present = false
		}
		if !present {
			def, hasDefault := f.Tag.Lookup("default")
			switch {
			case hasDefault && !isUploadType(f.Type):
				raw = def
			case isRequiredField(f):
				errs = append(errs, ValidationError{Loc: floc, Msg: "Field required", Type: "missing"})
				continue
			default:
				continue
			}
		}

		if isUploadType(f.Type) {
			if e, ok := bindUpload(fv, raw, floc); !ok {
				errs = append(errs, e)
			}
			continue
		}

		if m, ok := raw.(map[string]any); ok && isNestedStruct(f.Type) {
			if fv.Kind() != reflect.Pointer {
				errs = append(errs, bindNested(fv, m, floc)...)
				continue
			}
			ptr := reflect.New(f.Type.Elem())
			nested := bindNested(ptr.Elem(), m, floc)
			if len(nested) > 0 {
				errs = append(errs, nested...)
				continue
			}
			fv.Set(ptr)
			continue
		}

		if items, ok := raw.([]any); ok && isModelList(f.Type) {
			if listErrs := bindList(fv, items, floc); len(listErrs) > 0 {
				errs = append(errs, listErrs...)
				continue
			}
			errs = append(errs, checkFieldConstraints(f, fv, floc)...)
			continue
		}

		if err := decodeValue(raw, fv); err != nil {
			errs = append(errs, typeError(f.Type, floc))
			continue
		}

		errs = append(errs, checkFieldConstraints(f, fv, floc)...)
	}

	return errs
}

// decodeValue coerces raw into the addressable value fv.
func decodeValue(raw any, fv reflect.Value) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           fv.Addr().Interface(),
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// bindUpload stores uploaded files into a FileUpload, *FileUpload or
// []FileUpload field.
func bindUpload(fv reflect.Value, raw any, loc []string) (ValidationError, bool) {
	var headers []*multipart.FileHeader
	switch v := raw.(type) {
	case *multipart.FileHeader:
		headers = []*multipart.FileHeader{v}
	case []*multipart.FileHeader:
		headers = v
	}
	if len(headers) == 0 {
		return ValidationError{Loc: loc, Msg: "file required", Type: "type_error"}, false
	}

	switch fv.Type() {
	case uploadType:
		fv.Set(reflect.ValueOf(newFileUpload(headers[0])))
	case reflect.PointerTo(uploadType):
		u := newFileUpload(headers[0])
		fv.Set(reflect.ValueOf(&u))
	default:
		uploads := make([]FileUpload, len(headers))
		for i, h := range headers {
			uploads[i] = newFileUpload(h)
		}
		fv.Set(reflect.ValueOf(uploads))
	}
	return ValidationError{}, true
}

// isNestedStruct reports whether t is a struct bound field by field rather
// than coerced from a scalar.
func isNestedStruct(t reflect.Type) bool {
	t = derefType(t)
	return t.Kind() == reflect.Struct && t != timeType && t != uploadType
}

// isModelList reports whether t is a slice or array whose elements are
// nested structs.
func isModelList(t reflect.Type) bool {
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return false
	}
	return isNestedStruct(t.Elem())
}

// typeError describes a value that could not be coerced into t.
func typeError(t reflect.Type, loc []string) ValidationError {
	t = derefType(t)
	switch t {
	case timeType:
		return ValidationError{Loc: loc, Msg: "invalid datetime format", Type: "value_error.datetime"}
	case durationType:
		return ValidationError{Loc: loc, Msg: "invalid duration format", Type: "value_error.duration"}
	case uuidType:
		return ValidationError{Loc: loc, Msg: "value is not a valid uuid", Type: "type_error.uuid"}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return ValidationError{Loc: loc, Msg: "str type expected", Type: "type_error.str"}
	case reflect.Bool:
		return ValidationError{Loc: loc, Msg: "value could not be parsed to a boolean", Type: "type_error.bool"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ValidationError{Loc: loc, Msg: "value is not a valid integer", Type: "type_error.integer"}
	case reflect.Float32, reflect.Float64:
		return ValidationError{Loc: loc, Msg: "value is not a valid float", Type: "type_error.float"}
	case reflect.Slice, reflect.Array:
		return ValidationError{Loc: loc, Msg: "value is not a valid list", Type: "type_error.list"}
	case reflect.Map, reflect.Struct:
		return ValidationError{Loc: loc, Msg: "value is not a valid dict", Type: "type_error.dict"}
	default:
		return ValidationError{Loc: loc, Msg: "value is not a valid " + t.Kind().String(), Type: "type_error"}
	}
}
