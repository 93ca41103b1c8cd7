// Package modelapi binds typed Go handlers to HTTP routes. Request and
// response models are inferred from the handler's type parameters; the same
// inference drives request dispatch (body/query/path merging, multipart
// uploads, union selection, per-model status codes) and OpenAPI 3.1
// generation.
//
// The handler signature hides http.ResponseWriter and *http.Request:
//
//	type Handler[Req, Resp any] func(ctx context.Context, req *Req) (Resp, error)
//
// A model is any struct that embeds Model:
//
//	type Note struct {
//	    modelapi.Model
//	    Title string   `json:"title" minLength:"1"`
//	    Tags  []string `json:"tags,omitempty"`
//	}
//
//	r := modelapi.New(modelapi.WithTitle("Notes"), modelapi.WithRenderErrors(true))
//	modelapi.Post(r, "/notes", createNote, modelapi.WithStatus(http.StatusCreated))
//
// When Req is itself a model it is the request body. Otherwise Req is a
// struct of handler inputs: `path`, `query`, `header` and `cookie` tagged
// fields, an optional Fieldsets field, an optional RawRequest field, and at
// most one model field which receives the body:
//
//	type UpdateNoteReq struct {
//	    ID     string `path:"id"`
//	    Fields modelapi.Fieldsets
//	    Body   NotePatch
//	}
//
// A model body is read from multipart form data (required when the model has
// FileUpload fields), from a JSON or YAML body, or from the query string, in
// that order of preference. WithMergePathParams copies path placeholders into
// the model data.
//
// Unions are expressed with interfaces. A body field of interface type lists
// its candidates with Accepts; a handler returning an interface lists its
// response models with Returns, optionally with a status code per model:
//
//	modelapi.Get(r, "/jobs/{id}", jobStatus,
//	    modelapi.Returns[Done](http.StatusOK),
//	    modelapi.Returns[Pending](http.StatusAccepted),
//	)
//
// The OpenAPI document is generated from registered routes:
//
//	r.ServeDocs("/apidocs/")
package modelapi
