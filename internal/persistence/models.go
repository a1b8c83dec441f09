package persistence

import "time"

// User represents a back-office account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// Appointment is a single calendar occurrence. Occurrences generated from a
// recurrence rule share a SeriesID; standalone appointments have SeriesID
// equal to their own ID.
type Appointment struct {
	ID             string
	SeriesID       string
	OwnerID        string
	Title          string
	Type           string
	Start          time.Time
	End            time.Time
	Location       *string
	Description    *string
	MeetingLink    *string
	RecurrenceRule *string
	OriginalStart  *time.Time
	OrderID        *string
	CustomerID     *string
	CaseID         *string
	RepairID       *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AppointmentFilter narrows appointment queries to a time window and owner.
type AppointmentFilter struct {
	TimeMin *time.Time
	TimeMax *time.Time
	OwnerID string
}

// RepairPart records a part consumed by a repair.
type RepairPart struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
}

// Repair represents a repair ticket.
type Repair struct {
	ID             string
	Title          string
	Status         string
	Priority       string
	IssueCategory  string
	SLADeadline    *time.Time
	CustomerID     *string
	OrderID        *string
	CaseID         *string
	AssigneeID     *string
	PhotoURLs      []string
	AttachmentURLs []string
	Parts          []RepairPart
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// PurchaseOrder represents a supplier purchase order.
type PurchaseOrder struct {
	ID          string
	SupplierRef string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PurchaseOrderItem is a line item belonging to a purchase order.
type PurchaseOrderItem struct {
	ID              string
	PurchaseOrderID string
	Description     string
	Quantity        int
	UnitPriceCents  int64
	CreatedAt       time.Time
}

// Case represents a support case.
type Case struct {
	ID         string
	Title      string
	Status     string
	Priority   string
	CustomerID *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CaseLink attaches a case to another entity.
type CaseLink struct {
	ID         string
	CaseID     string
	EntityKind string
	EntityID   string
	CreatedAt  time.Time
}

// Todo is a simple status and priority record.
type Todo struct {
	ID         string
	Title      string
	Status     string
	Priority   string
	DueAt      *time.Time
	CustomerID *string
	OrderID    *string
	CaseID     *string
	RepairID   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Note is a timestamped remark attached to an entity.
type Note struct {
	ID         string
	EntityKind string
	EntityID   string
	AuthorID   string
	Body       string
	CreatedAt  time.Time
}

// File records the metadata of an uploaded attachment. The bytes live on
// disk under the configured upload directory.
type File struct {
	ID          string
	EntityKind  string
	EntityID    string
	Filename    string
	ContentType string
	SizeBytes   int64
	Path        string
	CreatedAt   time.Time
}

// Activity is an append-only log entry describing a mutation.
type Activity struct {
	ID         string
	ActorID    string
	EntityKind string
	EntityID   string
	Action     string
	Detail     string
	CreatedAt  time.Time
}
