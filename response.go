package modelapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/bjaus/modelapi/internal/jsonutil"
)

// CookieSetter is optionally implemented by response types to set cookies.
type CookieSetter interface {
	Cookies() []*http.Cookie
}

// HeaderSetter is optionally implemented by response types to set response headers.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// Stream is a response type for binary or streaming responses.
// Return *Stream from a handler to bypass encoding.
type Stream struct {
	ContentType string
	Status      int
	Body        io.Reader
}

// Redirect is returned from a handler to issue an HTTP redirect.
type Redirect struct {
	URL    string
	Status int
}

// writeResult writes the handler's result.
func (d *dispatcher) writeResult(w http.ResponseWriter, r *http.Request, resp any, fields Fieldsets) {
	ri := d.route

	if isNilResult(resp) {
		w.WriteHeader(ri.status)
		return
	}

	switch v := resp.(type) {
	case *Void, Void:
		w.WriteHeader(ri.status)
		return
	case *Stream:
		writeStream(w, v)
		return
	case *Redirect:
		status := v.Status
		if status == 0 {
			status = http.StatusFound
		}
		http.Redirect(w, r, v.URL, status)
		return
	case string:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(ri.status)
		_, _ = io.WriteString(w, v)
		return
	case []byte:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(ri.status)
		_, _ = w.Write(v)
		return
	}

	if m, ok := resp.(map[string]any); ok && len(ri.models.responses) > 0 {
		target := reflect.New(ri.models.responses[0].typ)
		if errs := bindModel(target.Elem(), m, nil); len(errs) > 0 {
			d.logError(r, fmt.Sprintf("model error on api response serialization; endpoint: %s %s; error: %s",
				ri.method, ri.pattern, errs.Error()))
			d.writeError(w, r, Error(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))
			return
		}
		resp = target.Interface()
	}

	status := ri.status
	if rm, ok := ri.models.responseFor(reflect.TypeOf(resp)); ok && rm.status != 0 {
		status = rm.status
	} else if sc, ok := resp.(StatusCoder); ok {
		status = sc.StatusCode()
	}

	if cs, ok := resp.(CookieSetter); ok {
		for _, c := range cs.Cookies() {
			http.SetCookie(w, c)
		}
	}
	if hs, ok := resp.(HeaderSetter); ok {
		hs.SetHeaders(w.Header())
	}

	body, err := renderFieldsets(resp, fields, ri.maxExpansion)
	if err != nil {
		d.logError(r, "fieldset rendering failed", slog.Any("error", err))
		d.writeError(w, r, Error(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))
		return
	}

	enc, ok := d.router.codecs.negotiate(r.Header.Get("Accept"))
	if !ok {
		d.writeError(w, r, Errorf(http.StatusNotAcceptable, "cannot produce %s", r.Header.Get("Accept")))
		return
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, body); err != nil {
		d.logError(r, fmt.Sprintf("model error on api response serialization; endpoint: %s %s; error: %v",
			ri.method, ri.pattern, err))
		d.writeError(w, r, Error(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))
		return
	}

	w.Header().Set("Content-Type", enc.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// isNilResult reports whether resp is nil or a nil pointer or interface.
func isNilResult(resp any) bool {
	if resp == nil {
		return true
	}
	v := reflect.ValueOf(resp)
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// writeStream writes a Stream response.
func writeStream(w http.ResponseWriter, s *Stream) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	status := s.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if s.Body != nil {
		//nolint:errcheck,gosec // best-effort streaming copy
		io.Copy(w, s.Body)
	}
}

// writeError writes err with the router's error handler, or as an
// RFC 9457 problem.
func (d *dispatcher) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if d.router.errorHandler != nil {
		d.router.errorHandler(w, r, err)
		return
	}
	writeErrorResponse(w, r, err)
}

// writeErrorResponse writes an error as an RFC 9457 problem details response.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var pd *ProblemDetail
	if errors.As(err, &pd) {
		writeProblem(w, r, pd)
		return
	}

	status := ErrorStatus(err)
	detail := err.Error()
	if status >= http.StatusInternalServerError {
		var he *HTTPError
		if !errors.As(err, &he) {
			detail = ""
		}
	}

	writeProblem(w, r, &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

// writeProblem writes a problem document, stamping the request id.
func writeProblem(w http.ResponseWriter, r *http.Request, pd *ProblemDetail) {
	if pd.TraceID == "" && r != nil {
		pd.TraceID = GetRequestID(r)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(pd.Status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	jsonutil.Encode(w, pd)
}
