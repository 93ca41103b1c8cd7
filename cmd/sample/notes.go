package main

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bjaus/modelapi"
)

// Models.

type Author struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Note struct {
	modelapi.Model
	ID        string    `json:"id,omitempty" doc:"Assigned by the server"`
	Title     string    `json:"title" minLength:"1" maxLength:"120"`
	Body      string    `json:"body,omitempty"`
	Tags      []string  `json:"tags,omitempty" maxItems:"10"`
	Author    Author    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func (Note) Fieldsets() map[string][]string {
	return map[string][]string{
		"default": {"id", "title"},
		"full":    {"body", "tags", "author", "created_at"},
		"byline":  {"author.name"},
	}
}

type NoteQuery struct {
	modelapi.Model
	Search string   `json:"search,omitempty" doc:"Substring of the title or body"`
	Tags   []string `json:"tags,omitempty"`
	Limit  int      `json:"limit" default:"20" minimum:"1" maximum:"100"`
	Offset int      `json:"offset" default:"0" minimum:"0"`
}

type NoteList struct {
	modelapi.Model
	Notes []Note `json:"notes"`
	Total int    `json:"total"`
}

type Attachment struct {
	modelapi.Model
	Caption string              `json:"caption,omitempty" maxLength:"200"`
	File    modelapi.FileUpload `json:"file"`
}

type AttachmentInfo struct {
	modelapi.Model
	NoteID      string `json:"note_id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
	Caption     string `json:"caption,omitempty"`
}

// Search is a note search, either free text or by tag.
type Search interface{ search(*store) []Note }

type TextSearch struct {
	modelapi.Model
	Text string `json:"text" minLength:"2"`
}

func (s TextSearch) search(st *store) []Note { return st.list("", s.Text) }

type TagSearch struct {
	modelapi.Model
	Tag string `json:"tag" pattern:"^[a-z0-9-]+$"`
}

func (s TagSearch) search(st *store) []Note { return st.list(s.Tag, "") }

// Export is the outcome of an export request.
type Export interface{ export() }

type ExportReady struct {
	modelapi.Model
	URL string `json:"url"`
}

func (ExportReady) export() {}

type ExportPending struct {
	modelapi.Model
	JobID    string `json:"job_id"`
	Progress int    `json:"progress" minimum:"0" maximum:"100"`
}

func (ExportPending) export() {}

type ExportRequest struct {
	modelapi.Model
	Format string `json:"format" enum:"json,yaml" default:"json"`
}

type Stats struct {
	modelapi.Model
	Notes       int            `json:"notes"`
	Attachments int            `json:"attachments"`
	Tags        map[string]int `json:"tags"`
}

// Request containers.

type noteByID struct {
	ID     string `path:"id"`
	Fields modelapi.Fieldsets
}

type attachRequest struct {
	ID     string `path:"id"`
	Upload Attachment
}

type searchRequest struct {
	Query Search
}

// store is an in-memory note store.
type store struct {
	mu          sync.RWMutex
	notes       map[string]Note
	order       []string
	attachments map[string][]AttachmentInfo
	exports     int
	nextID      int
}

func newStore() *store {
	s := &store{
		notes:       make(map[string]Note),
		attachments: make(map[string][]AttachmentInfo),
	}
	s.create(Note{Title: "Welcome", Body: "Notes are models.", Tags: []string{"intro"}, Author: Author{Name: "Ada"}})
	s.create(Note{Title: "Fieldsets", Body: "Ask for ?fields=full.", Tags: []string{"intro", "docs"}, Author: Author{Name: "Grace"}})
	return s
}

func (s *store) create(n Note) Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	n.ID = "n" + strconv.Itoa(s.nextID)
	n.CreatedAt = time.Now().UTC().Truncate(time.Second)
	s.notes[n.ID] = n
	s.order = append(s.order, n.ID)
	return n
}

func (s *store) get(id string) (Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	return n, ok
}

func (s *store) update(n Note) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.notes[n.ID]
	if !ok {
		return false
	}
	n.CreatedAt = old.CreatedAt
	s.notes[n.ID] = n
	return true
}

func (s *store) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return false
	}
	delete(s.notes, id)
	delete(s.attachments, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return true
}

// list returns notes carrying tag (when set) whose title or body contains text.
func (s *store) list(tag, text string) []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Note{}
	for _, id := range s.order {
		n := s.notes[id]
		if tag != "" && !slices.Contains(n.Tags, tag) {
			continue
		}
		if text != "" && !strings.Contains(n.Title, text) && !strings.Contains(n.Body, text) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (s *store) attach(info AttachmentInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[info.NoteID] = append(s.attachments[info.NoteID], info)
}

// nextExport reports whether the export is ready; every other request is
// still being built.
func (s *store) nextExport() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports++
	return s.exports, s.exports%2 == 0
}

func (s *store) stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := map[string]any{}
	attachments := 0
	for _, n := range s.notes {
		for _, t := range n.Tags {
			c, _ := tags[t].(int)
			tags[t] = c + 1
		}
		attachments += len(s.attachments[n.ID])
	}
	return map[string]any{"notes": len(s.notes), "attachments": attachments, "tags": tags}
}

// Handlers.

type notesAPI struct {
	store *store
}

func (a *notesAPI) list(_ context.Context, q *NoteQuery) (*NoteList, error) {
	var notes []Note
	if len(q.Tags) == 0 {
		notes = a.store.list("", q.Search)
	} else {
		for _, tag := range q.Tags {
			notes = append(notes, a.store.list(tag, q.Search)...)
		}
	}
	total := len(notes)
	notes = notes[min(q.Offset, total):min(q.Offset+q.Limit, total)]
	return &NoteList{Notes: notes, Total: total}, nil
}

func (a *notesAPI) create(_ context.Context, n *Note) (*Note, error) {
	created := a.store.create(*n)
	return &created, nil
}

func (a *notesAPI) get(_ context.Context, req *noteByID) (*Note, error) {
	n, ok := a.store.get(req.ID)
	if !ok {
		return nil, modelapi.Errorf(http.StatusNotFound, "note %s not found", req.ID)
	}
	return &n, nil
}

func (a *notesAPI) update(_ context.Context, n *Note) (*Note, error) {
	if !a.store.update(*n) {
		return nil, modelapi.Errorf(http.StatusNotFound, "note %s not found", n.ID)
	}
	updated, _ := a.store.get(n.ID)
	return &updated, nil
}

func (a *notesAPI) remove(_ context.Context, req *noteByID) (*modelapi.Void, error) {
	if !a.store.delete(req.ID) {
		return nil, modelapi.Errorf(http.StatusNotFound, "note %s not found", req.ID)
	}
	return nil, nil
}

func (a *notesAPI) attach(_ context.Context, req *attachRequest) (*AttachmentInfo, error) {
	if _, ok := a.store.get(req.ID); !ok {
		return nil, modelapi.Errorf(http.StatusNotFound, "note %s not found", req.ID)
	}
	info := AttachmentInfo{
		NoteID:      req.ID,
		Name:        req.Upload.File.Filename,
		ContentType: req.Upload.File.ContentType,
		Size:        req.Upload.File.Size,
		Caption:     req.Upload.Caption,
	}
	a.store.attach(info)
	return &info, nil
}

func (a *notesAPI) search(_ context.Context, req *searchRequest) (*NoteList, error) {
	notes := req.Query.search(a.store)
	return &NoteList{Notes: notes, Total: len(notes)}, nil
}

func (a *notesAPI) export(_ context.Context, req *ExportRequest) (Export, error) {
	n, ready := a.store.nextExport()
	if !ready {
		return &ExportPending{JobID: fmt.Sprintf("export-%d", n), Progress: 50}, nil
	}
	return &ExportReady{URL: fmt.Sprintf("/exports/export-%d.%s", n, req.Format)}, nil
}

func (a *notesAPI) stats(_ context.Context, _ *modelapi.Void) (any, error) {
	return a.store.stats(), nil
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}
