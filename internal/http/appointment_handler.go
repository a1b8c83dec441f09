package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/repairops/internal/agenda"
	"github.com/example/repairops/internal/application"
	"github.com/example/repairops/internal/ical"
)

// Publisher pushes invalidation events to connected clients.
type Publisher interface {
	Publish(entity, id, action string)
}

// AppointmentHandler serves the calendar endpoints: appointment CRUD, the
// agenda layout and the iCalendar export.
type AppointmentHandler struct {
	appointments *application.AppointmentService
	grid         agenda.Grid
	publisher    Publisher
	now          func() time.Time
	responder    responder
	logger       *slog.Logger
}

// NewAppointmentHandler constructs an AppointmentHandler.
func NewAppointmentHandler(
	appointments *application.AppointmentService,
	grid agenda.Grid,
	publisher Publisher,
	now func() time.Time,
	logger *slog.Logger,
) *AppointmentHandler {
	logger = defaultLogger(logger)
	return &AppointmentHandler{
		appointments: appointments,
		grid:         grid,
		publisher:    publisher,
		now:          now,
		responder:    newResponder(logger),
		logger:       logger,
	}
}

type appointmentRequest struct {
	Title          string  `json:"title"`
	Type           string  `json:"type"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	Location       *string `json:"location"`
	Description    *string `json:"description"`
	MeetingLink    *string `json:"meetingLink"`
	RecurrenceRule *string `json:"recurrenceRule"`
	OrderID        *string `json:"orderId"`
	CustomerID     *string `json:"customerId"`
	CaseID         *string `json:"caseId"`
	RepairID       *string `json:"repairId"`
}

// Create stores a new appointment, expanding recurrence server-side.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	var req appointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	rows, err := h.appointments.Create(ctx, principal, application.AppointmentInput{
		Title:          req.Title,
		Type:           req.Type,
		Start:          start,
		End:            end,
		Location:       req.Location,
		Description:    req.Description,
		MeetingLink:    req.MeetingLink,
		RecurrenceRule: req.RecurrenceRule,
		OrderID:        req.OrderID,
		CustomerID:     req.CustomerID,
		CaseID:         req.CaseID,
		RepairID:       req.RepairID,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("appointment", rows[0].SeriesID, "created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, newAppointmentViews(rows))
}

// List returns the appointments overlapping the requested window. The window
// can be given explicitly (timeMin/timeMax) or derived from a view mode and
// reference date.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	window, err := h.windowFromQuery(r)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	rows, err := h.appointments.List(ctx, window)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, newAppointmentViews(rows))
}

// Get returns a single appointment occurrence.
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appointment, err := h.appointments.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, newAppointmentView(appointment))
}

type appointmentPatchRequest struct {
	Title         *string `json:"title"`
	Type          *string `json:"type"`
	Start         *string `json:"start"`
	End           *string `json:"end"`
	Location      *string `json:"location"`
	Description   *string `json:"description"`
	MeetingLink   *string `json:"meetingLink"`
	OriginalStart *string `json:"originalStart"`
}

// Update patches one occurrence or, with ?scope=all, the whole series.
func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	scope, ok := application.ParseScope(r.URL.Query().Get("scope"))
	if !ok {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidScope)
		return
	}

	var req appointmentPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	patch := application.AppointmentPatch{
		Title:       req.Title,
		Type:        req.Type,
		Location:    req.Location,
		Description: req.Description,
		MeetingLink: req.MeetingLink,
	}
	var parseErr error
	patch.Start, parseErr = parseOptionalTime(req.Start, parseErr)
	patch.End, parseErr = parseOptionalTime(req.End, parseErr)
	patch.OriginalStart, parseErr = parseOptionalTime(req.OriginalStart, parseErr)
	if parseErr != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	rows, err := h.appointments.Update(ctx, principal, mux.Vars(r)["id"], scope, patch)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("appointment", rows[0].SeriesID, "updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, newAppointmentViews(rows))
}

// Delete removes one occurrence or, with ?scope=all, the whole series.
func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, nil)
		return
	}

	scope, ok := application.ParseScope(r.URL.Query().Get("scope"))
	if !ok {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidScope)
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.appointments.Delete(ctx, principal, id, scope); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.publisher.Publish("appointment", id, "deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// Export renders the requested window as an iCalendar feed.
func (h *AppointmentHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	window, err := h.windowFromQuery(r)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	rows, err := h.appointments.List(ctx, window)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="agenda.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(ical.Export(rows, h.now()))); err != nil {
		handlerLogger(ctx, h.logger, "appointment", "export").Error("failed to write calendar", "error", err)
	}
}

type layoutDayView struct {
	Day    string         `json:"day"`
	Blocks []agenda.Block `json:"blocks"`
}

type layoutView struct {
	View        string          `json:"view"`
	RangeStart  string          `json:"rangeStart"`
	RangeEnd    string          `json:"rangeEnd"`
	TotalHeight float64         `json:"totalHeight"`
	Days        []layoutDayView `json:"days"`
}

// Layout positions the appointments of a day or week view on the vertical
// grid, one block list per day column.
func (h *AppointmentHandler) Layout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	view, err := agenda.ParseViewMode(query.Get("view"))
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	reference := h.now()
	if raw := query.Get("date"); raw != "" {
		reference, err = time.Parse("2006-01-02", raw)
		if err != nil {
			h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	grid := h.grid
	if query.Get("showAllHours") == "true" {
		grid.ShowAllHours = true
	}

	rangeStart, rangeEnd := agenda.Range(view, reference)
	rows, err := h.appointments.List(ctx, application.AppointmentWindow{
		TimeMin: &rangeStart,
		TimeMax: &rangeEnd,
		UserID:  query.Get("userId"),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	events := make([]agenda.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, agenda.Event{ID: row.ID, Start: row.Start, End: row.End})
	}

	days := make([]layoutDayView, 0)
	for day := rangeStart; day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
		days = append(days, layoutDayView{
			Day:    day.Format("2006-01-02"),
			Blocks: grid.LayoutDay(day, events),
		})
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, layoutView{
		View:        string(view),
		RangeStart:  formatTime(rangeStart),
		RangeEnd:    formatTime(rangeEnd),
		TotalHeight: grid.TotalHeight(),
		Days:        days,
	})
}

func (h *AppointmentHandler) windowFromQuery(r *http.Request) (application.AppointmentWindow, error) {
	query := r.URL.Query()
	window := application.AppointmentWindow{UserID: query.Get("userId")}

	if raw := query.Get("view"); raw != "" {
		view, err := agenda.ParseViewMode(raw)
		if err != nil {
			return application.AppointmentWindow{}, errInvalidTimeWindow
		}
		reference := h.now()
		if date := query.Get("date"); date != "" {
			reference, err = time.Parse("2006-01-02", date)
			if err != nil {
				return application.AppointmentWindow{}, errInvalidTimeWindow
			}
		}
		start, end := agenda.Range(view, reference)
		window.TimeMin = &start
		window.TimeMax = &end
		return window, nil
	}

	var parseErr error
	min := query.Get("timeMin")
	max := query.Get("timeMax")
	window.TimeMin, parseErr = parseOptionalTime(optionalString(min), parseErr)
	window.TimeMax, parseErr = parseOptionalTime(optionalString(max), parseErr)
	if parseErr != nil {
		return application.AppointmentWindow{}, errInvalidTimeWindow
	}
	if window.TimeMin != nil && window.TimeMax != nil && !window.TimeMax.After(*window.TimeMin) {
		return application.AppointmentWindow{}, errInvalidTimeWindow
	}
	return window, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func parseOptionalTime(raw *string, previous error) (*time.Time, error) {
	if previous != nil {
		return nil, previous
	}
	if raw == nil || *raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, errors.New("invalid timestamp")
	}
	return &ts, nil
}
