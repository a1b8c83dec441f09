package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Roles assignable to back-office accounts.
const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
)

// Appointment types, a fixed enum mirrored by the calendar UI.
const (
	AppointmentTypeMeeting  = "meeting"
	AppointmentTypeInternal = "internal"
	AppointmentTypeTask     = "task"
	AppointmentTypeBlocked  = "blocked"
)

func validAppointmentType(value string) bool {
	switch value {
	case AppointmentTypeMeeting, AppointmentTypeInternal, AppointmentTypeTask, AppointmentTypeBlocked:
		return true
	}
	return false
}

// Scope distinguishes operations on a single occurrence from operations on a
// whole recurring series.
type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeAll    Scope = "all"
)

// ParseScope validates a caller supplied scope, defaulting to single.
func ParseScope(value string) (Scope, bool) {
	switch Scope(value) {
	case ScopeSingle, "":
		return ScopeSingle, true
	case ScopeAll:
		return ScopeAll, true
	}
	return "", false
}

// Repair ticket statuses. The lifecycle runs new -> diagnosing/in_repair ->
// completed/returned, with canceled reachable from any non-terminal state.
const (
	RepairStatusNew        = "new"
	RepairStatusDiagnosing = "diagnosing"
	RepairStatusInRepair   = "in_repair"
	RepairStatusCompleted  = "completed"
	RepairStatusReturned   = "returned"
	RepairStatusCanceled   = "canceled"
)

// Purchase order statuses, forward-only. The Dutch terms are the business's
// own vocabulary and travel on the wire unchanged.
const (
	PurchaseStatusAangekocht = "aangekocht"
	PurchaseStatusOntvangen  = "ontvangen"
	PurchaseStatusVerwerkt   = "verwerkt"
)

// Todo statuses.
const (
	TodoStatusOpen = "open"
	TodoStatusDone = "done"
)

// Case statuses.
const (
	CaseStatusOpen       = "open"
	CaseStatusInProgress = "in_progress"
	CaseStatusResolved   = "resolved"
	CaseStatusClosed     = "closed"
)

// Priorities shared by repairs, cases and todos.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

func validPriority(value string) bool {
	switch value {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Entity kinds used by notes, files, links and the activity log.
const (
	EntityAppointment   = "appointment"
	EntityRepair        = "repair"
	EntityPurchaseOrder = "purchase_order"
	EntityCase          = "case"
	EntityTodo          = "todo"
	EntityOrder         = "order"
	EntityCustomer      = "customer"
)

// AppointmentInput captures caller provided appointment fields.
type AppointmentInput struct {
	Title          string
	Type           string
	Start          time.Time
	End            time.Time
	Location       *string
	Description    *string
	MeetingLink    *string
	RecurrenceRule *string
	OrderID        *string
	CustomerID     *string
	CaseID         *string
	RepairID       *string
}

// AppointmentPatch carries the changed fields of a PATCH request; nil fields
// are left untouched.
type AppointmentPatch struct {
	Title       *string
	Type        *string
	Start       *time.Time
	End         *time.Time
	Location    *string
	Description *string
	MeetingLink *string
	// OriginalStart identifies the occurrence's pre-edit start when a
	// single occurrence of a recurring series is rescheduled.
	OriginalStart *time.Time
}

// AppointmentWindow bounds appointment listings.
type AppointmentWindow struct {
	TimeMin *time.Time
	TimeMax *time.Time
	UserID  string
}

// RepairInput captures caller provided repair ticket fields.
type RepairInput struct {
	Title         string
	Priority      string
	IssueCategory string
	SLADeadline   *time.Time
	CustomerID    *string
	OrderID       *string
	CaseID        *string
	AssigneeID    *string
	Parts         []RepairPart
}

// RepairPart records a part consumed by a repair.
type RepairPart struct {
	Name       string
	Quantity   int
	PriceCents int64
}

// RepairPatch carries the changed fields of a repair PATCH request.
type RepairPatch struct {
	Title          *string
	Status         *string
	Priority       *string
	IssueCategory  *string
	SLADeadline    *time.Time
	CustomerID     *string
	OrderID        *string
	CaseID         *string
	AssigneeID     *string
	Parts          *[]RepairPart
	PhotoURLs      *[]string
	AttachmentURLs *[]string
}

// PurchaseOrderInput captures caller provided purchase order fields.
type PurchaseOrderInput struct {
	SupplierRef string
}

// PurchaseOrderPatch carries the changed fields of a purchase order PATCH.
type PurchaseOrderPatch struct {
	SupplierRef *string
	Status      *string
}

// PurchaseOrderItemInput captures a new line item.
type PurchaseOrderItemInput struct {
	Description    string
	Quantity       int
	UnitPriceCents int64
}

// CaseInput captures caller provided case fields.
type CaseInput struct {
	Title      string
	Status     string
	Priority   string
	CustomerID *string
}

// CasePatch carries the changed fields of a case PATCH request.
type CasePatch struct {
	Title      *string
	Status     *string
	Priority   *string
	CustomerID *string
}

// CaseLinkInput attaches a case to another entity.
type CaseLinkInput struct {
	EntityKind string
	EntityID   string
}

// TodoInput captures caller provided todo fields.
type TodoInput struct {
	Title      string
	Priority   string
	DueAt      *time.Time
	CustomerID *string
	OrderID    *string
	CaseID     *string
	RepairID   *string
}

// TodoPatch carries the changed fields of a todo PATCH request.
type TodoPatch struct {
	Title    *string
	Status   *string
	Priority *string
	DueAt    *time.Time
}

// UserInput captures a new account.
type UserInput struct {
	Email       string
	DisplayName string
	Role        string
	Password    string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// SessionInfo is the authenticated session state returned to clients.
type SessionInfo struct {
	UserID      string
	Email       string
	DisplayName string
	Role        string
	ExpiresAt   time.Time
}

// AuthenticateResult captures the outcome of a successful login.
type AuthenticateResult struct {
	Session     SessionInfo
	Token       string
	BearerToken string
}

// RepairAnalytics aggregates the repair workload for dashboard cards.
type RepairAnalytics struct {
	Total              int
	CountsByStatus     map[string]int
	Overdue            int
	AverageTurnaround  time.Duration
	CompletedCount     int
	TopTechnicians     []TechnicianCount
	TopIssueCategories []CategoryCount
}

// TechnicianCount pairs a technician with their repair volume.
type TechnicianCount struct {
	AssigneeID string
	Count      int
}

// CategoryCount pairs an issue category with its frequency.
type CategoryCount struct {
	Category string
	Count    int
}
