package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/repairops/internal/application"
)

// CaseHandler serves the support case endpoints.
type CaseHandler struct {
	cases     *application.CaseService
	notes     *application.NoteService
	publisher Publisher
	responder responder
	logger    *slog.Logger
}

// NewCaseHandler constructs a CaseHandler.
func NewCaseHandler(cases *application.CaseService, notes *application.NoteService, publisher Publisher, logger *slog.Logger) *CaseHandler {
	logger = defaultLogger(logger)
	return &CaseHandler{
		cases:     cases,
		notes:     notes,
		publisher: publisher,
		responder: newResponder(logger),
		logger:    logger,
	}
}

type caseRequest struct {
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	CustomerID *string `json:"customerId"`
}

// Create stores a new case.
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req caseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	c, err := h.cases.Create(ctx, principal, application.CaseInput{
		Title:      req.Title,
		Status:     req.Status,
		Priority:   req.Priority,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("case", c.ID, "created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, newCaseView(c))
}

// List returns all cases.
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cases, err := h.cases.List(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]caseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, newCaseView(c))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}

// Get returns a case by id.
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.cases.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, newCaseView(c))
}

type casePatchRequest struct {
	Title      *string `json:"title"`
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	CustomerID *string `json:"customerId"`
}

// Update patches a case.
func (h *CaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req casePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	c, err := h.cases.Update(ctx, principal, mux.Vars(r)["id"], application.CasePatch{
		Title:      req.Title,
		Status:     req.Status,
		Priority:   req.Priority,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("case", c.ID, "updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, newCaseView(c))
}

// Delete removes a case. Admin only.
func (h *CaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.cases.Delete(ctx, principal, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("case", id, "deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

type caseLinkRequest struct {
	EntityKind string `json:"entityKind"`
	EntityID   string `json:"entityId"`
}

// AddLink attaches the case to another entity.
func (h *CaseHandler) AddLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req caseLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	id := mux.Vars(r)["id"]
	link, err := h.cases.AddLink(ctx, principal, id, application.CaseLinkInput{
		EntityKind: req.EntityKind,
		EntityID:   req.EntityID,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("case", id, "updated")
	h.responder.writeJSON(ctx, w, http.StatusCreated, newCaseLinkView(link))
}

// ListLinks returns the links of a case.
func (h *CaseHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	links, err := h.cases.ListLinks(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]caseLinkView, 0, len(links))
	for _, link := range links {
		views = append(views, newCaseLinkView(link))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}

// AddNote attaches a note to a case.
func (h *CaseHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	note, err := h.notes.Add(ctx, principal, application.EntityCase, mux.Vars(r)["id"], req.Body)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("case", note.EntityID, "updated")
	h.responder.writeJSON(ctx, w, http.StatusCreated, newNoteView(note))
}

// ListNotes returns the notes of a case.
func (h *CaseHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	notes, err := h.notes.List(ctx, application.EntityCase, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]noteView, 0, len(notes))
	for _, note := range notes {
		views = append(views, newNoteView(note))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}
