package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/repairops/internal/persistence"
)

// NoteService manages notes attached to repairs, purchase orders and cases.
type NoteService struct {
	notes       persistence.NoteRepository
	activities  *ActivityService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewNoteService constructs a NoteService.
func NewNoteService(
	notes persistence.NoteRepository,
	activities *ActivityService,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *NoteService {
	return &NoteService{
		notes:       notes,
		activities:  activities,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Add attaches a note to an entity.
func (s *NoteService) Add(ctx context.Context, actor Principal, entityKind, entityID, body string) (persistence.Note, error) {
	logger := serviceLogger(ctx, s.logger, "note", "add", "actorId", actor.UserID, "entityKind", entityKind, "entityId", entityID)

	vErr := &ValidationError{}
	if !validLinkKind(entityKind) && entityKind != EntityCase {
		vErr.add("entityKind", "unknown entity kind")
	}
	if strings.TrimSpace(entityID) == "" {
		vErr.add("entityId", "entity id is required")
	}
	if strings.TrimSpace(body) == "" {
		vErr.add("body", "note body is required")
	}
	if vErr.HasErrors() {
		return persistence.Note{}, vErr
	}

	note := persistence.Note{
		ID:         s.idGenerator(),
		EntityKind: entityKind,
		EntityID:   entityID,
		AuthorID:   actor.UserID,
		Body:       strings.TrimSpace(body),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.notes.CreateNote(ctx, note); err != nil {
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			return persistence.Note{}, ErrNotFound
		}
		logger.Error("failed to create note", "error", err)
		return persistence.Note{}, err
	}

	s.activities.Record(ctx, actor.UserID, entityKind, entityID, "note_added", "")
	return note, nil
}

// List returns the notes of an entity in creation order.
func (s *NoteService) List(ctx context.Context, entityKind, entityID string) ([]persistence.Note, error) {
	notes, err := s.notes.ListNotes(ctx, entityKind, entityID)
	if err != nil {
		serviceLogger(ctx, s.logger, "note", "list").Error("failed to list notes", "error", err, "entityKind", entityKind, "entityId", entityID)
		return nil, err
	}
	return notes, nil
}
