package main

import (
	"log/slog"
	"net/http"

	"github.com/bjaus/modelapi"
)

func newRouter(cfg *modelapi.Config, st *store) *modelapi.Router {
	r := modelapi.New(
		modelapi.WithConfig(*cfg),
		modelapi.WithSpecExtra("x-sample", map[string]any{"store": "memory"}),
	)

	r.Use(modelapi.RequestID(), modelapi.Recovery(), modelapi.Logger(slog.Default()))
	r.ServeDocs("/apidocs/", modelapi.WithDocsTitle(cfg.Title))
	r.ServeSpecYAML("/openapi.yaml")

	api := &notesAPI{store: st}
	errs := modelapi.WithErrors(http.StatusNotFound)

	modelapi.Raw(r, http.MethodGet, "/healthz", health)

	v1 := r.Group("/v1")

	notes := v1.Group("/notes", modelapi.WithGroupTags("notes"))
	modelapi.Get(notes, "", api.list,
		modelapi.WithSummary("List notes"),
		modelapi.WithDescription("Filters by search text and any of the given tags."))
	modelapi.Post(notes, "", api.create,
		modelapi.WithSummary("Create a note"),
		modelapi.WithStatus(http.StatusCreated),
		modelapi.WithBodyLimit(64<<10))
	modelapi.Get(notes, "/{id}", api.get,
		modelapi.WithSummary("Get a note"),
		modelapi.WithDescription("Use ?fields=full or ?fields=byline to widen the response."),
		errs)
	modelapi.Put(notes, "/{id}", api.update,
		modelapi.WithSummary("Replace a note"),
		modelapi.WithMergePathParams(),
		errs)
	modelapi.Delete(notes, "/{id}", api.remove,
		modelapi.WithSummary("Delete a note"),
		errs)
	modelapi.Post(notes, "/{id}/attachments", api.attach,
		modelapi.WithSummary("Attach a file"),
		modelapi.WithStatus(http.StatusCreated),
		modelapi.WithBodyLimit(8<<20),
		errs)

	modelapi.Post(v1, "/search", api.search,
		modelapi.Accepts[TextSearch](),
		modelapi.Accepts[TagSearch](),
		modelapi.WithSummary("Search notes by text or tag"),
		modelapi.WithTags("notes"))
	modelapi.Post(v1, "/exports", api.export,
		modelapi.Returns[ExportReady](http.StatusOK),
		modelapi.Returns[ExportPending](http.StatusAccepted),
		modelapi.WithSummary("Export all notes"),
		modelapi.WithTags("exports"),
		modelapi.WithRateLimit(1, 3))
	modelapi.Get(v1, "/stats", api.stats,
		modelapi.Returns[Stats](),
		modelapi.WithSummary("Store statistics"),
		modelapi.WithTags("ops"),
		modelapi.WithOpenAPIExtra(map[string]any{"x-cache-seconds": 30}))

	return r
}
