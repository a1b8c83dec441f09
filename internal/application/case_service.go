package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/repairops/internal/persistence"
)

func validCaseStatus(value string) bool {
	switch value {
	case CaseStatusOpen, CaseStatusInProgress, CaseStatusResolved, CaseStatusClosed:
		return true
	}
	return false
}

func validLinkKind(value string) bool {
	switch value {
	case EntityAppointment, EntityRepair, EntityPurchaseOrder, EntityTodo, EntityOrder, EntityCustomer:
		return true
	}
	return false
}

// CaseService manages support cases and their links to other entities.
type CaseService struct {
	cases       persistence.CaseRepository
	activities  *ActivityService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCaseService constructs a CaseService.
func NewCaseService(
	cases persistence.CaseRepository,
	activities *ActivityService,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *CaseService {
	return &CaseService{
		cases:       cases,
		activities:  activities,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Create validates and stores a new case.
func (s *CaseService) Create(ctx context.Context, actor Principal, input CaseInput) (persistence.Case, error) {
	logger := serviceLogger(ctx, s.logger, "case", "create", "actorId", actor.UserID)

	status := input.Status
	if status == "" {
		status = CaseStatusOpen
	}
	priority := input.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if !validCaseStatus(status) {
		vErr.add("status", "status must be one of open, in_progress, resolved, closed")
	}
	if !validPriority(priority) {
		vErr.add("priority", "priority must be one of low, normal, high, urgent")
	}
	if vErr.HasErrors() {
		return persistence.Case{}, vErr
	}

	now := s.now().UTC()
	c := persistence.Case{
		ID:         s.idGenerator(),
		Title:      strings.TrimSpace(input.Title),
		Status:     status,
		Priority:   priority,
		CustomerID: input.CustomerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.cases.CreateCase(ctx, c); err != nil {
		logger.Error("failed to create case", "error", err)
		return persistence.Case{}, err
	}

	logger.Info("case created", "caseId", c.ID)
	s.activities.Record(ctx, actor.UserID, EntityCase, c.ID, "created", c.Title)
	return c, nil
}

// Get returns a case by id.
func (s *CaseService) Get(ctx context.Context, id string) (persistence.Case, error) {
	c, err := s.cases.GetCase(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Case{}, ErrNotFound
		}
		serviceLogger(ctx, s.logger, "case", "get").Error("failed to load case", "error", err, "caseId", id)
		return persistence.Case{}, err
	}
	return c, nil
}

// List returns all cases, newest first.
func (s *CaseService) List(ctx context.Context) ([]persistence.Case, error) {
	cases, err := s.cases.ListCases(ctx)
	if err != nil {
		serviceLogger(ctx, s.logger, "case", "list").Error("failed to list cases", "error", err)
		return nil, err
	}
	return cases, nil
}

// Update applies a patch to a case.
func (s *CaseService) Update(ctx context.Context, actor Principal, id string, patch CasePatch) (persistence.Case, error) {
	logger := serviceLogger(ctx, s.logger, "case", "update", "actorId", actor.UserID, "caseId", id)

	c, err := s.cases.GetCase(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Case{}, ErrNotFound
		}
		logger.Error("failed to load case", "error", err)
		return persistence.Case{}, err
	}

	vErr := &ValidationError{}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		vErr.add("title", "title is required")
	}
	if patch.Status != nil && !validCaseStatus(*patch.Status) {
		vErr.add("status", "status must be one of open, in_progress, resolved, closed")
	}
	if patch.Priority != nil && !validPriority(*patch.Priority) {
		vErr.add("priority", "priority must be one of low, normal, high, urgent")
	}
	if vErr.HasErrors() {
		return persistence.Case{}, vErr
	}

	if patch.Title != nil {
		c.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Status != nil && *patch.Status != c.Status {
		previous := c.Status
		c.Status = *patch.Status
		s.activities.Record(ctx, actor.UserID, EntityCase, c.ID, "status_changed", previous+" -> "+c.Status)
	}
	if patch.Priority != nil {
		c.Priority = *patch.Priority
	}
	if patch.CustomerID != nil {
		c.CustomerID = patch.CustomerID
	}
	c.UpdatedAt = s.now().UTC()

	if err := s.cases.UpdateCase(ctx, c); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Case{}, ErrNotFound
		}
		logger.Error("failed to update case", "error", err)
		return persistence.Case{}, err
	}

	logger.Info("case updated")
	return c, nil
}

// Delete removes a case and its links. Admin only.
func (s *CaseService) Delete(ctx context.Context, actor Principal, id string) error {
	logger := serviceLogger(ctx, s.logger, "case", "delete", "actorId", actor.UserID, "caseId", id)
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	if err := s.cases.DeleteCase(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("failed to delete case", "error", err)
		return err
	}
	logger.Info("case deleted")
	s.activities.Record(ctx, actor.UserID, EntityCase, id, "deleted", "")
	return nil
}

// AddLink attaches a case to another entity. Duplicate links are rejected.
func (s *CaseService) AddLink(ctx context.Context, actor Principal, caseID string, input CaseLinkInput) (persistence.CaseLink, error) {
	logger := serviceLogger(ctx, s.logger, "case", "add_link", "actorId", actor.UserID, "caseId", caseID)

	vErr := &ValidationError{}
	if !validLinkKind(input.EntityKind) {
		vErr.add("entityKind", "unknown entity kind")
	}
	if strings.TrimSpace(input.EntityID) == "" {
		vErr.add("entityId", "entity id is required")
	}
	if vErr.HasErrors() {
		return persistence.CaseLink{}, vErr
	}

	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.CaseLink{}, ErrNotFound
		}
		logger.Error("failed to load case", "error", err)
		return persistence.CaseLink{}, err
	}

	link := persistence.CaseLink{
		ID:         s.idGenerator(),
		CaseID:     caseID,
		EntityKind: input.EntityKind,
		EntityID:   strings.TrimSpace(input.EntityID),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.cases.AddLink(ctx, link); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.CaseLink{}, ErrAlreadyExists
		}
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			return persistence.CaseLink{}, ErrNotFound
		}
		logger.Error("failed to add link", "error", err)
		return persistence.CaseLink{}, err
	}

	s.activities.Record(ctx, actor.UserID, EntityCase, caseID, "linked", input.EntityKind+":"+link.EntityID)
	return link, nil
}

// ListLinks returns the links of a case.
func (s *CaseService) ListLinks(ctx context.Context, caseID string) ([]persistence.CaseLink, error) {
	links, err := s.cases.ListLinks(ctx, caseID)
	if err != nil {
		serviceLogger(ctx, s.logger, "case", "list_links").Error("failed to list links", "error", err, "caseId", caseID)
		return nil, err
	}
	return links, nil
}
