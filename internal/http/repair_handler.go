package http

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/repairops/internal/application"
	"github.com/example/repairops/internal/persistence"
)

// RepairHandler serves the repair ticket endpoints, including photo and
// attachment uploads.
type RepairHandler struct {
	repairs   *application.RepairService
	files     *application.FileService
	notes     *application.NoteService
	publisher Publisher
	responder responder
	logger    *slog.Logger
}

// NewRepairHandler constructs a RepairHandler.
func NewRepairHandler(
	repairs *application.RepairService,
	files *application.FileService,
	notes *application.NoteService,
	publisher Publisher,
	logger *slog.Logger,
) *RepairHandler {
	logger = defaultLogger(logger)
	return &RepairHandler{
		repairs:   repairs,
		files:     files,
		notes:     notes,
		publisher: publisher,
		responder: newResponder(logger),
		logger:    logger,
	}
}

type repairPartRequest struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
}

type repairRequest struct {
	Title         string              `json:"title"`
	Priority      string              `json:"priority"`
	IssueCategory string              `json:"issueCategory"`
	SLADeadline   *string             `json:"slaDeadline"`
	CustomerID    *string             `json:"customerId"`
	OrderID       *string             `json:"orderId"`
	CaseID        *string             `json:"caseId"`
	AssigneeID    *string             `json:"assigneeId"`
	Parts         []repairPartRequest `json:"parts"`
}

// Create stores a new repair ticket.
func (h *RepairHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req repairRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	deadline, err := parseOptionalTime(req.SLADeadline, nil)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	repair, err := h.repairs.Create(ctx, principal, application.RepairInput{
		Title:         req.Title,
		Priority:      req.Priority,
		IssueCategory: req.IssueCategory,
		SLADeadline:   deadline,
		CustomerID:    req.CustomerID,
		OrderID:       req.OrderID,
		CaseID:        req.CaseID,
		AssigneeID:    req.AssigneeID,
		Parts:         toApplicationParts(req.Parts),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("repair", repair.ID, "created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, newRepairView(repair))
}

// List returns repair tickets, filtered by ?status= and ?assigneeId=.
func (h *RepairHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	repairs, err := h.repairs.List(ctx, persistence.RepairFilter{
		Status:     query.Get("status"),
		AssigneeID: query.Get("assigneeId"),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]repairView, 0, len(repairs))
	for _, repair := range repairs {
		views = append(views, newRepairView(repair))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}

// Get returns a repair ticket by id.
func (h *RepairHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	repair, err := h.repairs.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, newRepairView(repair))
}

type repairPatchRequest struct {
	Title         *string              `json:"title"`
	Status        *string              `json:"status"`
	Priority      *string              `json:"priority"`
	IssueCategory *string              `json:"issueCategory"`
	SLADeadline   *string              `json:"slaDeadline"`
	CustomerID    *string              `json:"customerId"`
	OrderID       *string              `json:"orderId"`
	CaseID        *string              `json:"caseId"`
	AssigneeID    *string              `json:"assigneeId"`
	Parts         *[]repairPartRequest `json:"parts"`
}

// Update patches a repair ticket.
func (h *RepairHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req repairPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	deadline, err := parseOptionalTime(req.SLADeadline, nil)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	patch := application.RepairPatch{
		Title:         req.Title,
		Status:        req.Status,
		Priority:      req.Priority,
		IssueCategory: req.IssueCategory,
		SLADeadline:   deadline,
		CustomerID:    req.CustomerID,
		OrderID:       req.OrderID,
		CaseID:        req.CaseID,
		AssigneeID:    req.AssigneeID,
	}
	if req.Parts != nil {
		parts := toApplicationParts(*req.Parts)
		patch.Parts = &parts
	}

	repair, err := h.repairs.Update(ctx, principal, mux.Vars(r)["id"], patch)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("repair", repair.ID, "updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, newRepairView(repair))
}

// Delete removes a repair ticket. Admin only.
func (h *RepairHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.repairs.Delete(ctx, principal, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("repair", id, "deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// Upload accepts a multipart batch of photos or attachments for a repair.
// The form field name decides which list the URLs land on.
func (h *RepairHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	defer r.MultipartForm.RemoveAll()

	id := mux.Vars(r)["id"]
	photos := r.MultipartForm.File["photos"]
	attachments := r.MultipartForm.File["attachments"]
	if len(photos) == 0 && len(attachments) == 0 {
		h.responder.handleServiceError(ctx, w, &application.ValidationError{
			FieldErrors: map[string]string{"files": "at least one file is required"},
		})
		return
	}
	if len(photos)+len(attachments) > application.MaxFilesPerUpload {
		h.responder.handleServiceError(ctx, w, &application.ValidationError{
			FieldErrors: map[string]string{"files": fmt.Sprintf("at most %d files per upload", application.MaxFilesPerUpload)},
		})
		return
	}

	// Both kinds go through one store batch so a failure anywhere in the
	// request leaves no files behind.
	combined := make([]*multipart.FileHeader, 0, len(photos)+len(attachments))
	combined = append(combined, photos...)
	combined = append(combined, attachments...)
	urls, err := h.storeBatch(r, principal, id, combined)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	photoURLs := urls[:len(photos)]
	attachmentURLs := urls[len(photos):]

	var repair persistence.Repair
	if len(photoURLs) > 0 {
		if repair, err = h.repairs.AttachPhotos(ctx, principal, id, photoURLs); err != nil {
			h.responder.handleServiceError(ctx, w, err)
			return
		}
	}
	if len(attachmentURLs) > 0 {
		if repair, err = h.repairs.AttachFiles(ctx, principal, id, attachmentURLs); err != nil {
			h.responder.handleServiceError(ctx, w, err)
			return
		}
	}

	h.publisher.Publish("repair", id, "updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, newRepairView(repair))
}

func (h *RepairHandler) storeBatch(r *http.Request, principal application.Principal, repairID string, headers []*multipart.FileHeader) ([]string, error) {
	if len(headers) == 0 {
		return nil, nil
	}

	uploads := make([]application.Upload, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, errBadRequestBody
		}
		opened = append(opened, f)
		uploads = append(uploads, application.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	stored, err := h.files.Store(r.Context(), principal, application.EntityRepair, repairID, uploads)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(stored))
	for _, file := range stored {
		urls = append(urls, "/api/files/"+file.ID)
	}
	return urls, nil
}

type noteRequest struct {
	Body string `json:"body"`
}

// AddNote attaches a note to a repair ticket.
func (h *RepairHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	h.addNote(w, r, application.EntityRepair)
}

// ListNotes returns the notes of a repair ticket.
func (h *RepairHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	h.listNotes(w, r, application.EntityRepair)
}

func (h *RepairHandler) addNote(w http.ResponseWriter, r *http.Request, entityKind string) {
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

	note, err := h.notes.Add(ctx, principal, entityKind, mux.Vars(r)["id"], req.Body)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish(entityKind, note.EntityID, "updated")
	h.responder.writeJSON(ctx, w, http.StatusCreated, newNoteView(note))
}

func (h *RepairHandler) listNotes(w http.ResponseWriter, r *http.Request, entityKind string) {
	ctx := r.Context()

	notes, err := h.notes.List(ctx, entityKind, mux.Vars(r)["id"])
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

func toApplicationParts(parts []repairPartRequest) []application.RepairPart {
	if len(parts) == 0 {
		return nil
	}
	out := make([]application.RepairPart, len(parts))
	for i, part := range parts {
		out[i] = application.RepairPart(part)
	}
	return out
}
