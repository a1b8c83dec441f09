package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/example/repairops/internal/application"
	"github.com/example/repairops/internal/persistence"
)

const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer io.Copy(io.Discard, body)

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errBadRequestBody
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

type appointmentView struct {
	ID             string  `json:"id"`
	SeriesID       string  `json:"seriesId"`
	OwnerID        string  `json:"ownerId"`
	Title          string  `json:"title"`
	Type           string  `json:"type"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	Location       *string `json:"location,omitempty"`
	Description    *string `json:"description,omitempty"`
	MeetingLink    *string `json:"meetingLink,omitempty"`
	RecurrenceRule *string `json:"recurrenceRule,omitempty"`
	OriginalStart  *string `json:"originalStart,omitempty"`
	OrderID        *string `json:"orderId,omitempty"`
	CustomerID     *string `json:"customerId,omitempty"`
	CaseID         *string `json:"caseId,omitempty"`
	RepairID       *string `json:"repairId,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

func newAppointmentView(a persistence.Appointment) appointmentView {
	return appointmentView{
		ID:             a.ID,
		SeriesID:       a.SeriesID,
		OwnerID:        a.OwnerID,
		Title:          a.Title,
		Type:           a.Type,
		Start:          formatTime(a.Start),
		End:            formatTime(a.End),
		Location:       a.Location,
		Description:    a.Description,
		MeetingLink:    a.MeetingLink,
		RecurrenceRule: a.RecurrenceRule,
		OriginalStart:  formatTimePtr(a.OriginalStart),
		OrderID:        a.OrderID,
		CustomerID:     a.CustomerID,
		CaseID:         a.CaseID,
		RepairID:       a.RepairID,
		CreatedAt:      formatTime(a.CreatedAt),
		UpdatedAt:      formatTime(a.UpdatedAt),
	}
}

func newAppointmentViews(appointments []persistence.Appointment) []appointmentView {
	views := make([]appointmentView, 0, len(appointments))
	for _, a := range appointments {
		views = append(views, newAppointmentView(a))
	}
	return views
}

type repairPartView struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
}

type repairView struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Status         string           `json:"status"`
	Priority       string           `json:"priority"`
	IssueCategory  string           `json:"issueCategory,omitempty"`
	SLADeadline    *string          `json:"slaDeadline,omitempty"`
	CustomerID     *string          `json:"customerId,omitempty"`
	OrderID        *string          `json:"orderId,omitempty"`
	CaseID         *string          `json:"caseId,omitempty"`
	AssigneeID     *string          `json:"assigneeId,omitempty"`
	PhotoURLs      []string         `json:"photoUrls,omitempty"`
	AttachmentURLs []string         `json:"attachmentUrls,omitempty"`
	Parts          []repairPartView `json:"parts,omitempty"`
	CreatedAt      string           `json:"createdAt"`
	UpdatedAt      string           `json:"updatedAt"`
	CompletedAt    *string          `json:"completedAt,omitempty"`
}

func newRepairView(r persistence.Repair) repairView {
	parts := make([]repairPartView, 0, len(r.Parts))
	for _, part := range r.Parts {
		parts = append(parts, repairPartView(part))
	}
	return repairView{
		ID:             r.ID,
		Title:          r.Title,
		Status:         r.Status,
		Priority:       r.Priority,
		IssueCategory:  r.IssueCategory,
		SLADeadline:    formatTimePtr(r.SLADeadline),
		CustomerID:     r.CustomerID,
		OrderID:        r.OrderID,
		CaseID:         r.CaseID,
		AssigneeID:     r.AssigneeID,
		PhotoURLs:      r.PhotoURLs,
		AttachmentURLs: r.AttachmentURLs,
		Parts:          parts,
		CreatedAt:      formatTime(r.CreatedAt),
		UpdatedAt:      formatTime(r.UpdatedAt),
		CompletedAt:    formatTimePtr(r.CompletedAt),
	}
}

type purchaseOrderView struct {
	ID          string `json:"id"`
	SupplierRef string `json:"supplierRef"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func newPurchaseOrderView(po persistence.PurchaseOrder) purchaseOrderView {
	return purchaseOrderView{
		ID:          po.ID,
		SupplierRef: po.SupplierRef,
		Status:      po.Status,
		CreatedAt:   formatTime(po.CreatedAt),
		UpdatedAt:   formatTime(po.UpdatedAt),
	}
}

type purchaseOrderItemView struct {
	ID              string `json:"id"`
	PurchaseOrderID string `json:"purchaseOrderId"`
	Description     string `json:"description"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"unitPriceCents"`
	CreatedAt       string `json:"createdAt"`
}

func newPurchaseOrderItemView(item persistence.PurchaseOrderItem) purchaseOrderItemView {
	return purchaseOrderItemView{
		ID:              item.ID,
		PurchaseOrderID: item.PurchaseOrderID,
		Description:     item.Description,
		Quantity:        item.Quantity,
		UnitPriceCents:  item.UnitPriceCents,
		CreatedAt:       formatTime(item.CreatedAt),
	}
}

type caseView struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	CustomerID *string `json:"customerId,omitempty"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

func newCaseView(c persistence.Case) caseView {
	return caseView{
		ID:         c.ID,
		Title:      c.Title,
		Status:     c.Status,
		Priority:   c.Priority,
		CustomerID: c.CustomerID,
		CreatedAt:  formatTime(c.CreatedAt),
		UpdatedAt:  formatTime(c.UpdatedAt),
	}
}

type caseLinkView struct {
	ID         string `json:"id"`
	CaseID     string `json:"caseId"`
	EntityKind string `json:"entityKind"`
	EntityID   string `json:"entityId"`
	CreatedAt  string `json:"createdAt"`
}

func newCaseLinkView(link persistence.CaseLink) caseLinkView {
	return caseLinkView{
		ID:         link.ID,
		CaseID:     link.CaseID,
		EntityKind: link.EntityKind,
		EntityID:   link.EntityID,
		CreatedAt:  formatTime(link.CreatedAt),
	}
}

type todoView struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	DueAt      *string `json:"dueAt,omitempty"`
	CustomerID *string `json:"customerId,omitempty"`
	OrderID    *string `json:"orderId,omitempty"`
	CaseID     *string `json:"caseId,omitempty"`
	RepairID   *string `json:"repairId,omitempty"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

func newTodoView(todo persistence.Todo) todoView {
	return todoView{
		ID:         todo.ID,
		Title:      todo.Title,
		Status:     todo.Status,
		Priority:   todo.Priority,
		DueAt:      formatTimePtr(todo.DueAt),
		CustomerID: todo.CustomerID,
		OrderID:    todo.OrderID,
		CaseID:     todo.CaseID,
		RepairID:   todo.RepairID,
		CreatedAt:  formatTime(todo.CreatedAt),
		UpdatedAt:  formatTime(todo.UpdatedAt),
	}
}

type noteView struct {
	ID         string `json:"id"`
	EntityKind string `json:"entityKind"`
	EntityID   string `json:"entityId"`
	AuthorID   string `json:"authorId"`
	Body       string `json:"body"`
	CreatedAt  string `json:"createdAt"`
}

func newNoteView(note persistence.Note) noteView {
	return noteView{
		ID:         note.ID,
		EntityKind: note.EntityKind,
		EntityID:   note.EntityID,
		AuthorID:   note.AuthorID,
		Body:       note.Body,
		CreatedAt:  formatTime(note.CreatedAt),
	}
}

type fileView struct {
	ID          string `json:"id"`
	EntityKind  string `json:"entityKind"`
	EntityID    string `json:"entityId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	URL         string `json:"url"`
	CreatedAt   string `json:"createdAt"`
}

func newFileView(file persistence.File) fileView {
	return fileView{
		ID:          file.ID,
		EntityKind:  file.EntityKind,
		EntityID:    file.EntityID,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		SizeBytes:   file.SizeBytes,
		URL:         "/api/files/" + file.ID,
		CreatedAt:   formatTime(file.CreatedAt),
	}
}

type activityView struct {
	ID         string `json:"id"`
	ActorID    string `json:"actorId"`
	EntityKind string `json:"entityKind"`
	EntityID   string `json:"entityId"`
	Action     string `json:"action"`
	Detail     string `json:"detail,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func newActivityView(activity persistence.Activity) activityView {
	return activityView{
		ID:         activity.ID,
		ActorID:    activity.ActorID,
		EntityKind: activity.EntityKind,
		EntityID:   activity.EntityID,
		Action:     activity.Action,
		Detail:     activity.Detail,
		CreatedAt:  formatTime(activity.CreatedAt),
	}
}

type userView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func newUserView(user persistence.User) userView {
	return userView{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}
}

type sessionView struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
	BearerToken string `json:"bearerToken,omitempty"`
}

func newSessionView(info application.SessionInfo, bearer string) sessionView {
	return sessionView{
		UserID:      info.UserID,
		Email:       info.Email,
		DisplayName: info.DisplayName,
		Role:        info.Role,
		ExpiresAt:   formatTime(info.ExpiresAt),
		BearerToken: bearer,
	}
}
