package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// AppointmentRepository stores calendar occurrences. Series-wide operations
// address every occurrence sharing a series id.
type AppointmentRepository interface {
	CreateAppointments(ctx context.Context, appointments []Appointment) error
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	UpdateAppointment(ctx context.Context, appointment Appointment) error
	UpdateSeries(ctx context.Context, seriesID string, apply func(Appointment) Appointment) ([]Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
	DeleteSeries(ctx context.Context, seriesID string) (int64, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
}

// RepairFilter narrows repair queries.
type RepairFilter struct {
	Status     string
	AssigneeID string
}

// RepairRepository exposes CRUD operations for repair tickets.
type RepairRepository interface {
	CreateRepair(ctx context.Context, repair Repair) error
	GetRepair(ctx context.Context, id string) (Repair, error)
	UpdateRepair(ctx context.Context, repair Repair) error
	DeleteRepair(ctx context.Context, id string) error
	ListRepairs(ctx context.Context, filter RepairFilter) ([]Repair, error)
}

// PurchaseOrderRepository exposes CRUD operations for purchase orders and
// their line items.
type PurchaseOrderRepository interface {
	CreatePurchaseOrder(ctx context.Context, po PurchaseOrder) error
	GetPurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error)
	UpdatePurchaseOrder(ctx context.Context, po PurchaseOrder) error
	DeletePurchaseOrder(ctx context.Context, id string) error
	ListPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error)
	CreateItem(ctx context.Context, item PurchaseOrderItem) error
	ListItems(ctx context.Context, purchaseOrderID string) ([]PurchaseOrderItem, error)
	DeleteItem(ctx context.Context, id string) error
}

// CaseRepository exposes CRUD operations for support cases and their links.
type CaseRepository interface {
	CreateCase(ctx context.Context, c Case) error
	GetCase(ctx context.Context, id string) (Case, error)
	UpdateCase(ctx context.Context, c Case) error
	DeleteCase(ctx context.Context, id string) error
	ListCases(ctx context.Context) ([]Case, error)
	AddLink(ctx context.Context, link CaseLink) error
	ListLinks(ctx context.Context, caseID string) ([]CaseLink, error)
}

// TodoRepository exposes CRUD operations for todos.
type TodoRepository interface {
	CreateTodo(ctx context.Context, todo Todo) error
	GetTodo(ctx context.Context, id string) (Todo, error)
	UpdateTodo(ctx context.Context, todo Todo) error
	DeleteTodo(ctx context.Context, id string) error
	ListTodos(ctx context.Context) ([]Todo, error)
}

// NoteRepository stores notes attached to arbitrary entities.
type NoteRepository interface {
	CreateNote(ctx context.Context, note Note) error
	ListNotes(ctx context.Context, entityKind, entityID string) ([]Note, error)
}

// FileRepository stores upload metadata.
type FileRepository interface {
	CreateFile(ctx context.Context, file File) error
	GetFile(ctx context.Context, id string) (File, error)
	DeleteFile(ctx context.Context, id string) error
	ListFiles(ctx context.Context, entityKind, entityID string) ([]File, error)
}

// ActivityRepository appends and lists activity log entries.
type ActivityRepository interface {
	AppendActivity(ctx context.Context, activity Activity) error
	ListActivities(ctx context.Context, limit int) ([]Activity, error)
}
