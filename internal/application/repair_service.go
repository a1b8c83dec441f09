package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/repairops/internal/persistence"
)

// repairTransitions is the allowed status transition graph. Tickets only move
// forward; completed tickets may still be marked returned when the item goes
// back to the customer.
var repairTransitions = map[string][]string{
	RepairStatusNew:        {RepairStatusDiagnosing, RepairStatusInRepair, RepairStatusCanceled},
	RepairStatusDiagnosing: {RepairStatusInRepair, RepairStatusCompleted, RepairStatusCanceled},
	RepairStatusInRepair:   {RepairStatusCompleted, RepairStatusReturned, RepairStatusCanceled},
	RepairStatusCompleted:  {RepairStatusReturned},
	RepairStatusReturned:   {},
	RepairStatusCanceled:   {},
}

func repairTransitionAllowed(from, to string) bool {
	if from == to {
		return true
	}
	for _, allowed := range repairTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// RepairService manages repair tickets.
type RepairService struct {
	repairs     persistence.RepairRepository
	activities  *ActivityService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRepairService constructs a RepairService.
func NewRepairService(
	repairs persistence.RepairRepository,
	activities *ActivityService,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *RepairService {
	return &RepairService{
		repairs:     repairs,
		activities:  activities,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Create validates and stores a new repair ticket in status new.
func (s *RepairService) Create(ctx context.Context, actor Principal, input RepairInput) (persistence.Repair, error) {
	logger := serviceLogger(ctx, s.logger, "repair", "create", "actorId", actor.UserID)

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !validPriority(priority) {
		vErr.add("priority", "priority must be one of low, normal, high, urgent")
	}
	for _, part := range input.Parts {
		if strings.TrimSpace(part.Name) == "" || part.Quantity <= 0 {
			vErr.add("parts", "each part needs a name and a positive quantity")
			break
		}
	}
	if vErr.HasErrors() {
		return persistence.Repair{}, vErr
	}

	now := s.now().UTC()
	repair := persistence.Repair{
		ID:            s.idGenerator(),
		Title:         strings.TrimSpace(input.Title),
		Status:        RepairStatusNew,
		Priority:      priority,
		IssueCategory: strings.TrimSpace(input.IssueCategory),
		SLADeadline:   input.SLADeadline,
		CustomerID:    input.CustomerID,
		OrderID:       input.OrderID,
		CaseID:        input.CaseID,
		AssigneeID:    input.AssigneeID,
		Parts:         toPersistenceParts(input.Parts),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repairs.CreateRepair(ctx, repair); err != nil {
		logger.Error("failed to create repair", "error", err)
		return persistence.Repair{}, err
	}

	logger.Info("repair created", "repairId", repair.ID)
	s.activities.Record(ctx, actor.UserID, EntityRepair, repair.ID, "created", repair.Title)
	return repair, nil
}

// Get returns a repair ticket by id.
func (s *RepairService) Get(ctx context.Context, id string) (persistence.Repair, error) {
	repair, err := s.repairs.GetRepair(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Repair{}, ErrNotFound
		}
		serviceLogger(ctx, s.logger, "repair", "get").Error("failed to load repair", "error", err, "repairId", id)
		return persistence.Repair{}, err
	}
	return repair, nil
}

// List returns repair tickets, optionally filtered by status and assignee.
func (s *RepairService) List(ctx context.Context, filter persistence.RepairFilter) ([]persistence.Repair, error) {
	repairs, err := s.repairs.ListRepairs(ctx, filter)
	if err != nil {
		serviceLogger(ctx, s.logger, "repair", "list").Error("failed to list repairs", "error", err)
		return nil, err
	}
	return repairs, nil
}

// Update applies a patch to a repair ticket. Status changes must follow the
// transition graph; reaching completed stamps CompletedAt.
func (s *RepairService) Update(ctx context.Context, actor Principal, id string, patch RepairPatch) (persistence.Repair, error) {
	logger := serviceLogger(ctx, s.logger, "repair", "update", "actorId", actor.UserID, "repairId", id)

	repair, err := s.repairs.GetRepair(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Repair{}, ErrNotFound
		}
		logger.Error("failed to load repair", "error", err)
		return persistence.Repair{}, err
	}

	vErr := &ValidationError{}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		vErr.add("title", "title is required")
	}
	if patch.Priority != nil && !validPriority(*patch.Priority) {
		vErr.add("priority", "priority must be one of low, normal, high, urgent")
	}
	if patch.Status != nil {
		if _, known := repairTransitions[*patch.Status]; !known {
			vErr.add("status", "unknown status")
		} else if !repairTransitionAllowed(repair.Status, *patch.Status) {
			vErr.add("status", "status transition is not allowed")
		}
	}
	if vErr.HasErrors() {
		return persistence.Repair{}, vErr
	}

	if patch.Title != nil {
		repair.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Priority != nil {
		repair.Priority = *patch.Priority
	}
	if patch.IssueCategory != nil {
		repair.IssueCategory = strings.TrimSpace(*patch.IssueCategory)
	}
	if patch.SLADeadline != nil {
		repair.SLADeadline = patch.SLADeadline
	}
	if patch.CustomerID != nil {
		repair.CustomerID = patch.CustomerID
	}
	if patch.OrderID != nil {
		repair.OrderID = patch.OrderID
	}
	if patch.CaseID != nil {
		repair.CaseID = patch.CaseID
	}
	if patch.AssigneeID != nil {
		repair.AssigneeID = patch.AssigneeID
	}
	if patch.Parts != nil {
		repair.Parts = toPersistenceParts(*patch.Parts)
	}
	if patch.PhotoURLs != nil {
		repair.PhotoURLs = *patch.PhotoURLs
	}
	if patch.AttachmentURLs != nil {
		repair.AttachmentURLs = *patch.AttachmentURLs
	}

	now := s.now().UTC()
	if patch.Status != nil && *patch.Status != repair.Status {
		previous := repair.Status
		repair.Status = *patch.Status
		if repair.Status == RepairStatusCompleted && repair.CompletedAt == nil {
			completedAt := now
			repair.CompletedAt = &completedAt
		}
		s.activities.Record(ctx, actor.UserID, EntityRepair, repair.ID, "status_changed", previous+" -> "+repair.Status)
	}
	repair.UpdatedAt = now

	if err := s.repairs.UpdateRepair(ctx, repair); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Repair{}, ErrNotFound
		}
		logger.Error("failed to update repair", "error", err)
		return persistence.Repair{}, err
	}

	logger.Info("repair updated")
	s.activities.Record(ctx, actor.UserID, EntityRepair, repair.ID, "updated", repair.Title)
	return repair, nil
}

// AttachPhotos appends uploaded photo URLs to a repair ticket.
func (s *RepairService) AttachPhotos(ctx context.Context, actor Principal, id string, urls []string) (persistence.Repair, error) {
	return s.attachURLs(ctx, actor, id, urls, true)
}

// AttachFiles appends uploaded attachment URLs to a repair ticket.
func (s *RepairService) AttachFiles(ctx context.Context, actor Principal, id string, urls []string) (persistence.Repair, error) {
	return s.attachURLs(ctx, actor, id, urls, false)
}

func (s *RepairService) attachURLs(ctx context.Context, actor Principal, id string, urls []string, photos bool) (persistence.Repair, error) {
	logger := serviceLogger(ctx, s.logger, "repair", "attach", "actorId", actor.UserID, "repairId", id)

	repair, err := s.repairs.GetRepair(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Repair{}, ErrNotFound
		}
		logger.Error("failed to load repair", "error", err)
		return persistence.Repair{}, err
	}

	if photos {
		repair.PhotoURLs = append(repair.PhotoURLs, urls...)
	} else {
		repair.AttachmentURLs = append(repair.AttachmentURLs, urls...)
	}
	repair.UpdatedAt = s.now().UTC()

	if err := s.repairs.UpdateRepair(ctx, repair); err != nil {
		logger.Error("failed to update repair", "error", err)
		return persistence.Repair{}, err
	}
	s.activities.Record(ctx, actor.UserID, EntityRepair, repair.ID, "files_attached", "")
	return repair, nil
}

// Delete removes a repair ticket. Admin only.
func (s *RepairService) Delete(ctx context.Context, actor Principal, id string) error {
	logger := serviceLogger(ctx, s.logger, "repair", "delete", "actorId", actor.UserID, "repairId", id)
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	if err := s.repairs.DeleteRepair(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("failed to delete repair", "error", err)
		return err
	}
	logger.Info("repair deleted")
	s.activities.Record(ctx, actor.UserID, EntityRepair, id, "deleted", "")
	return nil
}

func toPersistenceParts(parts []RepairPart) []persistence.RepairPart {
	if len(parts) == 0 {
		return nil
	}
	out := make([]persistence.RepairPart, len(parts))
	for i, part := range parts {
		out[i] = persistence.RepairPart{
			Name:       strings.TrimSpace(part.Name),
			Quantity:   part.Quantity,
			PriceCents: part.PriceCents,
		}
	}
	return out
}
