package modelapi

import (
	"encoding"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// decodeRequest creates a new Req value and populates it from the HTTP
// request. It also returns the requested fieldsets.
func decodeRequest[Req any](d *dispatcher, r *http.Request) (*Req, Fieldsets, error) {
	req := new(Req)
	fields, err := d.decode(r, reflect.ValueOf(req).Elem())
	if err != nil {
		return nil, nil, err
	}
	return req, fields, nil
}

func (d *dispatcher) decode(r *http.Request, rv reflect.Value) (Fieldsets, error) {
	mi := &d.route.models
	if mi.void && !mi.wantsFieldsets() {
		return nil, nil
	}

	if rv.Kind() == reflect.Struct {
		if err := d.bindParams(rv, r); err != nil {
			return nil, err
		}
		if errs := paramConstraintErrors(rv); len(errs) > 0 {
			return nil, errs
		}
	}
	if mi.rawIndex != nil {
		rv.FieldByIndex(mi.rawIndex).Set(reflect.ValueOf(RawRequest{Request: r}))
	}

	if !mi.hasBody() && mi.fieldsIndex == nil && !mi.wantsFieldsets() {
		return nil, nil
	}

	args, err := d.gatherArgs(r)
	if err != nil {
		return nil, err
	}

	name := d.route.fieldsName
	fields, errs := popFieldsets(args, name, mi.declaresField(name))
	if len(errs) > 0 {
		return nil, errs
	}
	if mi.fieldsIndex != nil {
		rv.FieldByIndex(mi.fieldsIndex).Set(reflect.ValueOf(fields))
	}

	if mi.hasBody() {
		target := rv
		if !mi.reqIsModel {
			target = rv.FieldByIndex(mi.bodyIndex)
		}
		if errs := d.bindBody(target, args); len(errs) > 0 {
			return nil, errs
		}
	}

	return fields, nil
}

// gatherArgs collects the arguments for the body model from the request
// body, the form, or the query string, and merges path parameters when the
// route asks for it.
func (d *dispatcher) gatherArgs(r *http.Request) (map[string]any, error) {
	mi := &d.route.models

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}
	isForm := mediaType == "multipart/form-data" || mediaType == "application/x-www-form-urlencoded"

	var args map[string]any

	switch {
	case mi.upload:
		if mediaType != "multipart/form-data" {
			return nil, Error(http.StatusUnsupportedMediaType, "multipart/form-data expected")
		}
		args, err = d.formArgs(r, mediaType)
		if err != nil {
			return nil, err
		}

	case isForm:
		args, err = d.formArgs(r, mediaType)
		if err != nil {
			return nil, err
		}

	case hasBody(r):
		dec, ok := d.router.codecs.decoderFor(mediaType)
		if !ok {
			return nil, Errorf(http.StatusUnsupportedMediaType, "unsupported content type %q", mediaType)
		}
		var body any
		if err := dec.Decode(r.Body, &body); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBindBody, err)
		}
		if body != nil {
			obj, ok := body.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected an object, got %T", ErrBindBody, body)
			}
			if len(obj) > 0 {
				args = obj
			}
		}
	}

	if args == nil {
		args = valuesArgs(r.URL.Query(), mi.multi, d.route.fieldsName)
	}

	if d.route.mergePath {
		for _, name := range placeholders(d.route.pattern) {
			args[name] = d.router.mux.pathValue(r, name)
		}
	}

	return args, nil
}

// formArgs reads urlencoded or multipart values, plus uploaded files for
// multipart bodies.
func (d *dispatcher) formArgs(r *http.Request, mediaType string) (map[string]any, error) {
	mi := &d.route.models

	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBindForm, err)
		}
		return valuesArgs(r.PostForm, mi.multi, d.route.fieldsName), nil
	}

	if err := r.ParseMultipartForm(d.router.maxMultipartMemory); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBindForm, err)
	}
	args := valuesArgs(r.MultipartForm.Value, mi.multi, d.route.fieldsName)
	for name, headers := range r.MultipartForm.File {
		if len(headers) > 0 {
			args[name] = fileValue(headers)
		}
	}
	return args, nil
}

// valuesArgs converts url.Values into arguments: the first value of each
// key, or every value for keys in multi and the fieldset key.
func valuesArgs(values url.Values, multi map[string]bool, fieldsName string) map[string]any {
	args := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		if multi[key] || (key == fieldsName && len(vals) > 1) {
			list := make([]any, len(vals))
			for i, v := range vals {
				list[i] = v
			}
			args[key] = list
			continue
		}
		args[key] = vals[0]
	}
	return args
}

// hasBody reports whether the request carries a body.
func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}

// bindParams binds path, query, header, and cookie values to struct fields.
func (d *dispatcher) bindParams(v reflect.Value, r *http.Request) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		field := v.Field(i)

		if name := f.Tag.Get("path"); name != "" {
			val := d.router.mux.pathValue(r, name)
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindPath, name, err)
				}
			}
		}

		if name := f.Tag.Get("query"); name != "" {
			vals := r.URL.Query()[name]
			if len(vals) == 0 {
				if def := f.Tag.Get("default"); def != "" {
					vals = []string{def}
				}
			}
			if len(vals) > 0 {
				if err := setFieldValues(field, vals); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, err)
				}
			}
		}

		if name := f.Tag.Get("header"); name != "" {
			val := r.Header.Get(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindHeader, name, err)
				}
			}
		}

		if name := f.Tag.Get("cookie"); name != "" {
			var val string
			if c, err := r.Cookie(name); err == nil {
				val = c.Value
			}
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindCookie, name, err)
				}
			}
		}
	}

	return nil
}

// setFieldValues sets a slice field from every value, or a scalar field
// from the first.
func setFieldValues(field reflect.Value, values []string) error {
	if field.Kind() != reflect.Slice || field.Type() == uuidType {
		return setFieldValue(field, values[0])
	}
	var parts []string
	for _, v := range values {
		for p := range strings.SplitSeq(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	}
	out := reflect.MakeSlice(field.Type(), len(parts), len(parts))
	for i, p := range parts {
		if err := setFieldValue(out.Index(i), p); err != nil {
			return err
		}
	}
	field.Set(out)
	return nil
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Kind() == reflect.Pointer {
		ptr := reflect.New(field.Type().Elem())
		if err := setFieldValue(ptr.Elem(), value); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	switch field.Type() {
	case durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	case timeType:
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(ts))
		return nil
	}

	if tu, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
		return tu.UnmarshalText([]byte(value))
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

// isBindError reports whether err came from malformed request input.
func isBindError(err error) bool {
	for _, target := range []error{ErrBindPath, ErrBindQuery, ErrBindHeader, ErrBindCookie, ErrBindBody, ErrBindForm} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
