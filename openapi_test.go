package modelapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/modelapi"
)

type titledNote struct {
	modelapi.Model
	Text string `json:"text" doc:"Note text"`
}

func (titledNote) SchemaTitle() string { return "NoteV2" }

type clashingNote struct {
	modelapi.Model
	Other int `json:"other"`
}

func (clashingNote) SchemaTitle() string { return "Note" }

func voidHandler(_ context.Context, _ *modelapi.Void) (*modelapi.Void, error) {
	return &modelapi.Void{}, nil
}

func noteHandler(_ context.Context, _ *modelapi.Void) (*Note, error) {
	return &Note{}, nil
}

func TestSpec_defaults(t *testing.T) {
	t.Parallel()

	spec := modelapi.New().Spec()

	assert.Equal(t, "3.1.0", spec.OpenAPI)
	assert.Equal(t, "API Documentation", spec.Info.Title)
	assert.Equal(t, "0.1", spec.Info.Version)
	assert.Equal(t, []modelapi.Server{{URL: "/"}}, spec.Servers)
	assert.Empty(t, spec.Paths)
}

func TestSpec_info_and_servers(t *testing.T) {
	t.Parallel()

	r := modelapi.New(
		modelapi.WithTitle("Notes API"),
		modelapi.WithVersion("2.0.0"),
		modelapi.WithServers(modelapi.Server{URL: "https://api.example.com", Description: "production"}),
	)
	spec := r.Spec()

	assert.Equal(t, "Notes API", spec.Info.Title)
	assert.Equal(t, "2.0.0", spec.Info.Version)
	assert.Equal(t, []modelapi.Server{{URL: "https://api.example.com", Description: "production"}}, spec.Servers)
}

func TestSpec_body_model(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Post(r, "/notes", echoNote,
		modelapi.WithStatus(http.StatusCreated),
		modelapi.WithSummary("Create note"),
		modelapi.WithDescription("Stores a note."),
		modelapi.WithTags("notes"),
		modelapi.WithDeprecated(),
	)

	spec := r.Spec()
	op := spec.Paths["/notes"]["post"]
	require.NotNil(t, op)

	assert.Equal(t, "Create note", op.Summary)
	assert.Equal(t, "Stores a note.", op.Description)
	assert.Equal(t, []string{"notes"}, op.Tags)
	assert.True(t, op.Deprecated)
	assert.Equal(t, "postNotes", op.OperationID)

	require.NotNil(t, op.RequestBody)
	assert.True(t, op.RequestBody.Required)
	assert.Equal(t, "A Note", op.RequestBody.Description)
	assert.Equal(t, "#/components/schemas/Note", op.RequestBody.Content["application/json"].Schema.Ref)

	resp, ok := op.Responses["201"]
	require.True(t, ok)
	assert.Equal(t, "A Note", resp.Description)
	assert.Equal(t, "#/components/schemas/Note", resp.Content["application/json"].Schema.Ref)

	note := spec.Components.Schemas["Note"]
	assert.Equal(t, "object", note.Type)
	assert.Equal(t, "Note", note.Title)
	assert.Equal(t, []string{"title"}, note.Required)
	assert.ElementsMatch(t, []string{"id", "title", "body", "tags"}, keys(note.Properties))

	title := note.Properties["title"]
	assert.Equal(t, "Title", title.Title)
	require.NotNil(t, title.MinLength)
	assert.Equal(t, 1, *title.MinLength)
	require.NotNil(t, title.MaxLength)
	assert.Equal(t, 50, *title.MaxLength)

	tags := note.Properties["tags"]
	assert.Equal(t, "array", tags.Type)
	require.NotNil(t, tags.Items)
	assert.Equal(t, "string", tags.Items.Type)
}

func TestSpec_schema_title(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Post(r, "/v2/notes", func(_ context.Context, n *titledNote) (*titledNote, error) { return n, nil })

	spec := r.Spec()
	require.Contains(t, spec.Components.Schemas, "NoteV2")
	assert.Equal(t, "NoteV2", spec.Components.Schemas["NoteV2"].Title)
	assert.Equal(t, "Note text", spec.Components.Schemas["NoteV2"].Properties["text"].Description)
	assert.Equal(t, "A NoteV2", spec.Paths["/v2/notes"]["post"].RequestBody.Description)
}

func TestSpec_parameters(t *testing.T) {
	t.Parallel()

	type Req struct {
		ID     uuid.UUID `path:"id" doc:"Note id"`
		Limit  int       `query:"limit" default:"20" maximum:"100"`
		Token  string    `header:"X-Token" required:"true"`
		Theme  string    `cookie:"theme"`
		hidden string    `query:"hidden"` //nolint:unused // unexported fields are skipped
	}

	r := modelapi.New()
	modelapi.Get(r, "/notes/{id}/{rest...}", func(_ context.Context, _ *Req) (*Note, error) {
		return &Note{}, nil
	})

	op := r.Spec().Paths["/notes/{id}/{rest}"]["get"]
	require.NotNil(t, op)

	byName := make(map[string]modelapi.Parameter)
	for _, p := range op.Parameters {
		byName[p.Name] = p
	}
	require.Len(t, byName, 5)

	assert.Equal(t, "path", byName["id"].In)
	assert.True(t, byName["id"].Required)
	assert.Equal(t, "uuid", byName["id"].Schema.Format)
	assert.Equal(t, "Note id", byName["id"].Description)

	assert.Equal(t, "path", byName["rest"].In)
	assert.Equal(t, "string", byName["rest"].Schema.Type)

	assert.Equal(t, "query", byName["limit"].In)
	assert.False(t, byName["limit"].Required)
	assert.Equal(t, int64(20), byName["limit"].Schema.Default)
	require.NotNil(t, byName["limit"].Schema.Maximum)
	assert.InDelta(t, 100.0, *byName["limit"].Schema.Maximum, 0.001)

	assert.Equal(t, "header", byName["X-Token"].In)
	assert.True(t, byName["X-Token"].Required)
	assert.Equal(t, "cookie", byName["theme"].In)
}

func TestSpec_query_model(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Get(r, "/notes", func(_ context.Context, q *NoteQuery) (*NoteQuery, error) { return q, nil })
	modelapi.Delete(r, "/notes", func(_ context.Context, _ *NoteQuery) (*modelapi.Void, error) {
		return &modelapi.Void{}, nil
	})

	spec := r.Spec()
	for _, method := range []string{"get", "delete"} {
		op := spec.Paths["/notes"][method]
		require.NotNil(t, op, method)
		assert.Nil(t, op.RequestBody, method)

		names := make([]string, len(op.Parameters))
		for i, p := range op.Parameters {
			names[i] = p.Name
			assert.Equal(t, "query", p.In)
		}
		assert.Equal(t, []string{"search", "tags", "limit"}, names, method)
	}

	limit := spec.Paths["/notes"]["get"].Parameters[2]
	assert.Equal(t, "integer", limit.Schema.Type)
	assert.Equal(t, int64(10), limit.Schema.Default)
	assert.Equal(t, "204", keys(spec.Paths["/notes"]["delete"].Responses)[0])
}

func TestSpec_merged_path_params(t *testing.T) {
	t.Parallel()

	type Numbered struct {
		modelapi.Model
		Num   int    `json:"num"`
		Title string `json:"title"`
	}

	r := modelapi.New()
	modelapi.Put(r, "/numbered/{num}", func(_ context.Context, n *Numbered) (*Numbered, error) { return n, nil },
		modelapi.WithMergePathParams())

	op := r.Spec().Paths["/numbered/{num}"]["put"]
	require.Len(t, op.Parameters, 1)
	assert.Equal(t, "integer", op.Parameters[0].Schema.Type)
	require.NotNil(t, op.RequestBody)
}

func TestSpec_union_request(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Post(r, "/search", func(_ context.Context, _ *searchRequest) (*Note, error) {
		return &Note{}, nil
	}, modelapi.Accepts[TextSearch](), modelapi.Accepts[TagSearch]())

	spec := r.Spec()
	body := spec.Paths["/search"]["post"].RequestBody
	require.NotNil(t, body)
	assert.Equal(t, "A TextSearch or TagSearch", body.Description)

	schema := body.Content["application/json"].Schema
	assert.Empty(t, schema.OneOf)
	require.Len(t, schema.AnyOf, 2)
	assert.Equal(t, "#/components/schemas/TextSearch", schema.AnyOf[0].Ref)
	assert.Equal(t, "#/components/schemas/TagSearch", schema.AnyOf[1].Ref)
	assert.Contains(t, spec.Components.Schemas, "TextSearch")
	assert.Contains(t, spec.Components.Schemas, "TagSearch")
}

func TestSpec_union_query(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Get(r, "/search", func(_ context.Context, _ *searchRequest) (*Note, error) {
		return &Note{}, nil
	}, modelapi.Accepts[TextSearch](), modelapi.Accepts[TagSearch]())

	op := r.Spec().Paths["/search"]["get"]
	assert.Nil(t, op.RequestBody)

	byName := make(map[string]modelapi.Parameter)
	for _, p := range op.Parameters {
		byName[p.Name] = p
	}
	require.Contains(t, byName, "text")
	require.Contains(t, byName, "tag")
	for _, name := range []string{"text", "tag"} {
		assert.Equal(t, "query", byName[name].In, name)
		assert.False(t, byName[name].Required, name)
	}
	require.NotNil(t, byName["tag"].Schema.MinLength)
	assert.Equal(t, 2, *byName["tag"].Schema.MinLength)
}

func TestSpec_union_responses(t *testing.T) {
	t.Parallel()

	jobs := func(_ context.Context, _ *modelapi.Void) (Job, error) { return Ready{}, nil }

	r := modelapi.New()
	modelapi.Get(r, "/same", jobs, modelapi.Returns[Ready](), modelapi.Returns[Pending]())
	modelapi.Get(r, "/split", jobs, modelapi.Returns[Ready](), modelapi.Returns[Pending](http.StatusAccepted))

	spec := r.Spec()

	same := spec.Paths["/same"]["get"].Responses
	require.Len(t, same, 1)
	assert.Equal(t, "A Ready or Pending", same["200"].Description)
	assert.Len(t, same["200"].Content["application/json"].Schema.OneOf, 2)

	split := spec.Paths["/split"]["get"].Responses
	require.Len(t, split, 2)
	assert.Equal(t, "#/components/schemas/Ready", split["200"].Content["application/json"].Schema.Ref)
	assert.Equal(t, "#/components/schemas/Pending", split["202"].Content["application/json"].Schema.Ref)
	assert.Equal(t, "A Pending", split["202"].Description)
}

func TestSpec_fields(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Get(r, "/articles", func(_ context.Context, _ *modelapi.Void) (*Article, error) {
		return sampleArticle(), nil
	})
	modelapi.Post(r, "/articles", func(_ context.Context, _ *Note) (*Article, error) {
		return sampleArticle(), nil
	})
	modelapi.Delete(r, "/articles", func(_ context.Context, _ *modelapi.Void) (*Article, error) {
		return sampleArticle(), nil
	})

	spec := r.Spec()

	get := spec.Paths["/articles"]["get"]
	require.Len(t, get.Parameters, 1)
	assert.Equal(t, "fields", get.Parameters[0].Name)
	assert.Equal(t, "query", get.Parameters[0].In)
	assert.Contains(t, get.Parameters[0].Description, "Comma separated list of fields")

	post := spec.Paths["/articles"]["post"]
	assert.Empty(t, post.Parameters)
	fields, ok := spec.Components.Schemas["Note"].Properties["fields"]
	require.True(t, ok)
	assert.Equal(t, "array", fields.Type)
	assert.Equal(t, "fields", fields.Title)
	assert.Equal(t, "List of fields, fieldset and/or expansions to return in the response", fields.Description)

	assert.Empty(t, spec.Paths["/articles"]["delete"].Parameters)
}

func TestSpec_response_kinds(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Get(r, "/text", func(_ context.Context, _ *modelapi.Void) (string, error) { return "", nil })
	modelapi.Get(r, "/blob", func(_ context.Context, _ *modelapi.Void) ([]byte, error) { return nil, nil })
	modelapi.Get(r, "/stream", func(_ context.Context, _ *modelapi.Void) (*modelapi.Stream, error) { return nil, nil })
	modelapi.Delete(r, "/void", voidHandler)

	spec := r.Spec()
	assert.Contains(t, spec.Paths["/text"]["get"].Responses["200"].Content, "text/plain")
	assert.Contains(t, spec.Paths["/blob"]["get"].Responses["200"].Content, "application/octet-stream")
	assert.Contains(t, spec.Paths["/stream"]["get"].Responses["200"].Content, "application/octet-stream")
	assert.Equal(t, "Empty Response", spec.Paths["/void"]["delete"].Responses["204"].Description)
}

func TestSpec_error_responses(t *testing.T) {
	t.Parallel()

	r := modelapi.New(modelapi.WithRenderErrors(true), modelapi.WithErrorStatus(http.StatusUnprocessableEntity))
	modelapi.Post(r, "/notes", echoNote, modelapi.WithErrors(http.StatusConflict, http.StatusUnprocessableEntity))
	modelapi.Get(r, "/ping", voidHandler)

	spec := r.Spec()

	post := spec.Paths["/notes"]["post"].Responses
	assert.Equal(t, "Validation Failed", post["422"].Description)
	assert.Equal(t, "Conflict", post["409"].Description)
	assert.Equal(t, "#/components/schemas/ProblemDetail", post["409"].Content["application/problem+json"].Schema.Ref)
	assert.Contains(t, spec.Components.Schemas, "ValidationError")

	ping := spec.Paths["/ping"]["get"].Responses
	assert.NotContains(t, ping, "422")
}

func TestSpec_rate_limit(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Get(r, "/limited", noteHandler, modelapi.WithRateLimit(2, 5))

	spec := r.Spec()
	op := spec.Paths["/limited"]["get"]
	assert.Contains(t, op.Responses, "429")

	data, err := json.Marshal(op)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, map[string]any{"rate": 2.0, "burst": 5.0}, out["x-rate-limit"])
}

func TestSpec_extras(t *testing.T) {
	t.Parallel()

	r := modelapi.New(modelapi.WithSpecExtra("x-logo", map[string]any{"url": "/logo.png"}))
	modelapi.Get(r, "/notes/{id}", noteHandler,
		modelapi.WithTags("notes"),
		modelapi.WithOpenAPIExtra(map[string]any{
			"tags":       []string{"extra"},
			"x-internal": true,
			"responses":  map[string]any{"200": map[string]any{"description": "The note"}},
		}),
	)

	var doc map[string]any
	data, err := json.Marshal(r.Spec())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, map[string]any{"url": "/logo.png"}, doc["x-logo"])

	op := doc["paths"].(map[string]any)["/notes/{id}"].(map[string]any)["get"].(map[string]any)
	assert.Equal(t, []any{"notes", "extra"}, op["tags"])
	assert.Equal(t, true, op["x-internal"])

	ok := op["responses"].(map[string]any)["200"].(map[string]any)
	assert.Equal(t, "The note", ok["description"])
	assert.Contains(t, ok, "content")
}

func TestDeepUpdate(t *testing.T) {
	t.Parallel()

	dst := map[string]any{
		"a": map[string]any{"x": 1, "y": 2},
		"l": []any{1},
		"s": "old",
	}
	modelapi.DeepUpdate(dst, map[string]any{
		"a": map[string]any{"y": 3, "z": 4},
		"l": []any{2},
		"s": "new",
		"n": true,
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{"x": 1, "y": 3, "z": 4},
		"l": []any{1, 2},
		"s": "new",
		"n": true,
	}, dst)
}

func TestAddResponseSchema(t *testing.T) {
	t.Parallel()

	t.Run("documents every operation", func(t *testing.T) {
		t.Parallel()

		r := modelapi.New()
		modelapi.Get(r, "/a", noteHandler)
		modelapi.Get(r, "/b", noteHandler, modelapi.WithErrors(http.StatusInternalServerError))

		spec := r.Spec()
		modelapi.AddResponseSchema[ErrorModel](&spec, http.StatusInternalServerError)

		a := spec.Paths["/a"]["get"].Responses["500"]
		assert.Equal(t, "A ErrorModel", a.Description)
		assert.Equal(t, "#/components/schemas/ErrorModel", a.Content["application/json"].Schema.Ref)
		assert.Contains(t, spec.Components.Schemas, "ErrorModel")

		b := spec.Paths["/b"]["get"].Responses["500"]
		assert.Contains(t, b.Content, "application/problem+json")
	})

	t.Run("title clash keeps the existing component", func(t *testing.T) {
		t.Parallel()

		r := modelapi.New()
		modelapi.Get(r, "/notes", noteHandler)

		spec := r.Spec()
		before := spec.Components.Schemas["Note"]
		modelapi.AddResponseSchema[clashingNote](&spec, http.StatusConflict)
		modelapi.AddResponseSchema[Note](&spec, http.StatusGone)

		assert.Equal(t, before, spec.Components.Schemas["Note"])
		assert.Contains(t, spec.Components.Schemas["Note2"].Properties, "other")

		op := spec.Paths["/notes"]["get"]
		assert.Equal(t, "#/components/schemas/Note2", op.Responses["409"].Content["application/json"].Schema.Ref)
		assert.Equal(t, "#/components/schemas/Note", op.Responses["410"].Content["application/json"].Schema.Ref)
		assert.NotContains(t, spec.Components.Schemas, "Note3")
	})

	t.Run("no paths is a no-op", func(t *testing.T) {
		t.Parallel()

		spec := modelapi.New().Spec()
		modelapi.AddResponseSchema[ErrorModel](&spec, http.StatusInternalServerError)
		assert.Empty(t, spec.Components.Schemas)
	})
}

func TestSpec_raw_routes_hidden(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Raw(r, http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	modelapi.Get(r, "/visible", voidHandler)

	spec := r.Spec()
	assert.NotContains(t, spec.Paths, "/healthz")
	assert.Contains(t, spec.Paths, "/visible")
}

func TestSpec_multipart_body(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Post(r, "/attachments", func(_ context.Context, _ *attachment) (string, error) { return "", nil })

	spec := r.Spec()
	body := spec.Paths["/attachments"]["post"].RequestBody
	require.NotNil(t, body)
	require.Contains(t, body.Content, "multipart/form-data")

	file := spec.Components.Schemas["attachment"].Properties["file"]
	assert.Equal(t, "string", file.Type)
	assert.Equal(t, "binary", file.Format)
}

func TestSpec_operation_ids(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		method  string
		pattern string
		want    string
	}{
		"simple":        {method: "GET", pattern: "/users", want: "getUsers"},
		"path param":    {method: "GET", pattern: "/users/{id}", want: "getUsersById"},
		"nested":        {method: "POST", pattern: "/v1/users", want: "postV1Users"},
		"dashes":        {method: "DELETE", pattern: "/user-groups/{group_id}", want: "deleteUserGroupsByGroupId"},
		"wildcard":      {method: "GET", pattern: "/files/{path...}", want: "getFilesByPath"},
		"root":          {method: "GET", pattern: "/", want: "getRoot"},
		"exact root":    {method: "GET", pattern: "/{$}", want: "getRoot"},
		"trailing path": {method: "PUT", pattern: "/notes/", want: "putNotes"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, modelapi.GenerateOperationID(tc.method, tc.pattern))
		})
	}

	t.Run("explicit", func(t *testing.T) {
		t.Parallel()
		r := modelapi.New()
		modelapi.Get(r, "/users/{id}", voidHandler, modelapi.WithOperationID("fetchUser"))
		assert.Equal(t, "fetchUser", r.Spec().Paths["/users/{id}"]["get"].OperationID)
	})
}

func TestToOpenAPIPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/files/{path}", modelapi.ToOpenAPIPath("/files/{path...}"))
	assert.Equal(t, "/", modelapi.ToOpenAPIPath("/{$}"))
	assert.Equal(t, "/notes/{id}", modelapi.ToOpenAPIPath("/notes/{id}"))
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
