package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/repairops/internal/persistence"
	"github.com/example/repairops/internal/recurrence"
)

// createGracePeriod tolerates clock skew and slow form submissions when
// checking that a new appointment does not start in the past.
const createGracePeriod = 5 * time.Minute

// recurrenceHorizon bounds open-ended recurrence rules so expansion stays
// finite.
const recurrenceHorizon = 6 * 30 * 24 * time.Hour

// AppointmentService manages calendar appointments, including server-side
// expansion of recurring appointments into occurrence rows.
type AppointmentService struct {
	appointments persistence.AppointmentRepository
	activities   *ActivityService
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewAppointmentService constructs an AppointmentService.
func NewAppointmentService(
	appointments persistence.AppointmentRepository,
	activities *ActivityService,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		activities:   activities,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// Create validates and stores a new appointment. A recurrence rule expands
// into one row per occurrence, all sharing a series id; standalone
// appointments use their own id as the series id.
func (s *AppointmentService) Create(ctx context.Context, actor Principal, input AppointmentInput) ([]persistence.Appointment, error) {
	logger := serviceLogger(ctx, s.logger, "appointment", "create", "actorId", actor.UserID)

	vErr := s.validateInput(input, true)

	var rule recurrence.Rule
	hasRule := input.RecurrenceRule != nil && strings.TrimSpace(*input.RecurrenceRule) != ""
	if hasRule {
		parsed, err := recurrence.ParseRule(*input.RecurrenceRule)
		if err != nil {
			vErr.add("recurrenceRule", "recurrence rule is not valid")
		} else {
			rule = parsed
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	occurrences := []recurrence.Occurrence{{Start: input.Start, End: input.End}}
	if hasRule {
		expanded, err := recurrence.Expand(rule, input.Start, input.End, s.now().UTC().Add(recurrenceHorizon))
		if err != nil {
			vErr.add("recurrenceRule", "recurrence rule cannot be expanded")
			return nil, vErr
		}
		occurrences = expanded
	}

	seriesID := s.idGenerator()
	now := s.now().UTC()
	rows := make([]persistence.Appointment, 0, len(occurrences))
	for i, occ := range occurrences {
		id := seriesID
		if i > 0 {
			id = s.idGenerator()
		}
		row := persistence.Appointment{
			ID:          id,
			SeriesID:    seriesID,
			OwnerID:     actor.UserID,
			Title:       strings.TrimSpace(input.Title),
			Type:        input.Type,
			Start:       occ.Start,
			End:         occ.End,
			Location:    input.Location,
			Description: input.Description,
			MeetingLink: input.MeetingLink,
			OrderID:     input.OrderID,
			CustomerID:  input.CustomerID,
			CaseID:      input.CaseID,
			RepairID:    input.RepairID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if hasRule {
			row.RecurrenceRule = input.RecurrenceRule
		}
		rows = append(rows, row)
	}

	if err := s.appointments.CreateAppointments(ctx, rows); err != nil {
		logger.Error("failed to create appointments", "error", err, "count", len(rows))
		return nil, err
	}

	logger.Info("appointments created", "seriesId", seriesID, "count", len(rows))
	s.activities.Record(ctx, actor.UserID, EntityAppointment, seriesID, "created", rows[0].Title)
	return rows, nil
}

// Get returns a single appointment occurrence.
func (s *AppointmentService) Get(ctx context.Context, id string) (persistence.Appointment, error) {
	appointment, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Appointment{}, ErrNotFound
		}
		serviceLogger(ctx, s.logger, "appointment", "get").Error("failed to load appointment", "error", err, "appointmentId", id)
		return persistence.Appointment{}, err
	}
	return appointment, nil
}

// List returns the occurrences overlapping the given window.
func (s *AppointmentService) List(ctx context.Context, window AppointmentWindow) ([]persistence.Appointment, error) {
	filter := persistence.AppointmentFilter{
		TimeMin: window.TimeMin,
		TimeMax: window.TimeMax,
		OwnerID: window.UserID,
	}
	appointments, err := s.appointments.ListAppointments(ctx, filter)
	if err != nil {
		serviceLogger(ctx, s.logger, "appointment", "list").Error("failed to list appointments", "error", err)
		return nil, err
	}
	return appointments, nil
}

// Update applies a patch to one occurrence or, with ScopeAll, to every
// occurrence of the series. Series-wide updates keep each occurrence's own
// date and shift only the time of day when the patch reschedules.
func (s *AppointmentService) Update(ctx context.Context, actor Principal, id string, scope Scope, patch AppointmentPatch) ([]persistence.Appointment, error) {
	logger := serviceLogger(ctx, s.logger, "appointment", "update", "actorId", actor.UserID, "appointmentId", id, "scope", string(scope))

	current, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		logger.Error("failed to load appointment", "error", err)
		return nil, err
	}
	if current.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}

	if vErr := s.validatePatch(current, patch); vErr.HasErrors() {
		return nil, vErr
	}

	now := s.now().UTC()

	if scope == ScopeAll {
		var startShift, endShift time.Duration
		if patch.Start != nil {
			startShift = patch.Start.Sub(current.Start)
		}
		if patch.End != nil {
			endShift = patch.End.Sub(current.End)
		}
		updated, err := s.appointments.UpdateSeries(ctx, current.SeriesID, func(row persistence.Appointment) persistence.Appointment {
			applyPatchFields(&row, patch)
			row.Start = row.Start.Add(startShift)
			row.End = row.End.Add(endShift)
			row.UpdatedAt = now
			return row
		})
		if err != nil {
			logger.Error("failed to update series", "error", err, "seriesId", current.SeriesID)
			return nil, err
		}
		logger.Info("series updated", "seriesId", current.SeriesID, "count", len(updated))
		s.activities.Record(ctx, actor.UserID, EntityAppointment, current.SeriesID, "updated", "series")
		return updated, nil
	}

	applyPatchFields(&current, patch)
	if patch.Start != nil {
		current.Start = *patch.Start
	}
	if patch.End != nil {
		current.End = *patch.End
	}
	if patch.OriginalStart != nil {
		current.OriginalStart = patch.OriginalStart
	}
	current.UpdatedAt = now

	if err := s.appointments.UpdateAppointment(ctx, current); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		logger.Error("failed to update appointment", "error", err)
		return nil, err
	}
	logger.Info("appointment updated")
	s.activities.Record(ctx, actor.UserID, EntityAppointment, current.ID, "updated", current.Title)
	return []persistence.Appointment{current}, nil
}

// Delete removes one occurrence or, with ScopeAll, the whole series.
func (s *AppointmentService) Delete(ctx context.Context, actor Principal, id string, scope Scope) error {
	logger := serviceLogger(ctx, s.logger, "appointment", "delete", "actorId", actor.UserID, "appointmentId", id, "scope", string(scope))

	current, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("failed to load appointment", "error", err)
		return err
	}
	if current.OwnerID != actor.UserID && !actor.IsAdmin() {
		return ErrUnauthorized
	}

	if scope == ScopeAll {
		removed, err := s.appointments.DeleteSeries(ctx, current.SeriesID)
		if err != nil {
			logger.Error("failed to delete series", "error", err, "seriesId", current.SeriesID)
			return err
		}
		logger.Info("series deleted", "seriesId", current.SeriesID, "count", removed)
		s.activities.Record(ctx, actor.UserID, EntityAppointment, current.SeriesID, "deleted", "series")
		return nil
	}

	if err := s.appointments.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("failed to delete appointment", "error", err)
		return err
	}
	logger.Info("appointment deleted")
	s.activities.Record(ctx, actor.UserID, EntityAppointment, id, "deleted", current.Title)
	return nil
}

func (s *AppointmentService) validateInput(input AppointmentInput, isCreate bool) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if !validAppointmentType(input.Type) {
		vErr.add("type", "type must be one of meeting, internal, task, blocked")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.End.After(input.Start) {
		vErr.add("end", "end must be after start")
	}
	if isCreate && !input.Start.IsZero() && input.Start.Before(s.now().UTC().Add(-createGracePeriod)) {
		vErr.add("start", "start must not be in the past")
	}
	return vErr
}

func (s *AppointmentService) validatePatch(current persistence.Appointment, patch AppointmentPatch) *ValidationError {
	vErr := &ValidationError{}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		vErr.add("title", "title is required")
	}
	if patch.Type != nil && !validAppointmentType(*patch.Type) {
		vErr.add("type", "type must be one of meeting, internal, task, blocked")
	}

	start := current.Start
	end := current.End
	if patch.Start != nil {
		start = *patch.Start
	}
	if patch.End != nil {
		end = *patch.End
	}
	if !end.After(start) {
		vErr.add("end", "end must be after start")
	}
	return vErr
}

// applyPatchFields copies the non-time fields of a patch onto a row.
func applyPatchFields(row *persistence.Appointment, patch AppointmentPatch) {
	if patch.Title != nil {
		row.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Type != nil {
		row.Type = *patch.Type
	}
	if patch.Location != nil {
		row.Location = patch.Location
	}
	if patch.Description != nil {
		row.Description = patch.Description
	}
	if patch.MeetingLink != nil {
		row.MeetingLink = patch.MeetingLink
	}
}
