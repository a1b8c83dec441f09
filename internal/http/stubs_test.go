package http

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/repairops/internal/persistence"
)

func fixedNow() time.Time {
	return time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	counter := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

type publisherRecorder struct {
	mu     sync.Mutex
	events []string
}

func (p *publisherRecorder) Publish(entity, id, action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, entity+"/"+id+"/"+action)
}

func (p *publisherRecorder) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// memoryStore backs every repository interface with maps, mirroring the
// SQLite store's semantics closely enough for handler tests.
type memoryStore struct {
	mu           sync.Mutex
	users        map[string]persistence.User
	sessions     map[string]persistence.Session
	appointments map[string]persistence.Appointment
	repairs      map[string]persistence.Repair
	orders       map[string]persistence.PurchaseOrder
	items        map[string]persistence.PurchaseOrderItem
	cases        map[string]persistence.Case
	links        map[string]persistence.CaseLink
	todos        map[string]persistence.Todo
	notes        []persistence.Note
	files        map[string]persistence.File
	activities   []persistence.Activity
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:        make(map[string]persistence.User),
		sessions:     make(map[string]persistence.Session),
		appointments: make(map[string]persistence.Appointment),
		repairs:      make(map[string]persistence.Repair),
		orders:       make(map[string]persistence.PurchaseOrder),
		items:        make(map[string]persistence.PurchaseOrderItem),
		cases:        make(map[string]persistence.Case),
		links:        make(map[string]persistence.CaseLink),
		todos:        make(map[string]persistence.Todo),
		files:        make(map[string]persistence.File),
	}
}

func (m *memoryStore) CreateUser(ctx context.Context, user persistence.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return persistence.ErrDuplicate
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryStore) GetUser(ctx context.Context, id string) (persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (m *memoryStore) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (m *memoryStore) ListUsers(ctx context.Context) ([]persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]persistence.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *memoryStore) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	return session, nil
}

func (m *memoryStore) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (m *memoryStore) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if session.RevokedAt == nil {
		session.RevokedAt = &revokedAt
		m.sessions[token] = session
	}
	return session, nil
}

func (m *memoryStore) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for token, session := range m.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(m.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memoryStore) CreateAppointments(ctx context.Context, appointments []persistence.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, apt := range appointments {
		m.appointments[apt.ID] = apt
	}
	return nil
}

func (m *memoryStore) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apt, ok := m.appointments[id]
	if !ok {
		return persistence.Appointment{}, persistence.ErrNotFound
	}
	return apt, nil
}

func (m *memoryStore) UpdateAppointment(ctx context.Context, apt persistence.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[apt.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.appointments[apt.ID] = apt
	return nil
}

func (m *memoryStore) UpdateSeries(ctx context.Context, seriesID string, apply func(persistence.Appointment) persistence.Appointment) ([]persistence.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updated := make([]persistence.Appointment, 0)
	for id, apt := range m.appointments {
		if apt.SeriesID != seriesID {
			continue
		}
		next := apply(apt)
		m.appointments[id] = next
		updated = append(updated, next)
	}
	if len(updated) == 0 {
		return nil, persistence.ErrNotFound
	}
	sort.Slice(updated, func(i, j int) bool { return updated[i].Start.Before(updated[j].Start) })
	return updated, nil
}

func (m *memoryStore) DeleteAppointment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.appointments, id)
	return nil
}

func (m *memoryStore) DeleteSeries(ctx context.Context, seriesID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, apt := range m.appointments {
		if apt.SeriesID == seriesID {
			delete(m.appointments, id)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, persistence.ErrNotFound
	}
	return deleted, nil
}

func (m *memoryStore) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]persistence.Appointment, 0)
	for _, apt := range m.appointments {
		if filter.OwnerID != "" && apt.OwnerID != filter.OwnerID {
			continue
		}
		if filter.TimeMin != nil && !apt.End.After(*filter.TimeMin) {
			continue
		}
		if filter.TimeMax != nil && !apt.Start.Before(*filter.TimeMax) {
			continue
		}
		rows = append(rows, apt)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Start.Before(rows[j].Start) })
	return rows, nil
}

func (m *memoryStore) CreateRepair(ctx context.Context, repair persistence.Repair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repairs[repair.ID] = repair
	return nil
}

func (m *memoryStore) GetRepair(ctx context.Context, id string) (persistence.Repair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	repair, ok := m.repairs[id]
	if !ok {
		return persistence.Repair{}, persistence.ErrNotFound
	}
	return repair, nil
}

func (m *memoryStore) UpdateRepair(ctx context.Context, repair persistence.Repair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repairs[repair.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.repairs[repair.ID] = repair
	return nil
}

func (m *memoryStore) DeleteRepair(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repairs[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.repairs, id)
	return nil
}

func (m *memoryStore) ListRepairs(ctx context.Context, filter persistence.RepairFilter) ([]persistence.Repair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]persistence.Repair, 0)
	for _, repair := range m.repairs {
		if filter.Status != "" && repair.Status != filter.Status {
			continue
		}
		if filter.AssigneeID != "" && (repair.AssigneeID == nil || *repair.AssigneeID != filter.AssigneeID) {
			continue
		}
		rows = append(rows, repair)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *memoryStore) CreatePurchaseOrder(ctx context.Context, po persistence.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[po.ID] = po
	return nil
}

func (m *memoryStore) GetPurchaseOrder(ctx context.Context, id string) (persistence.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	po, ok := m.orders[id]
	if !ok {
		return persistence.PurchaseOrder{}, persistence.ErrNotFound
	}
	return po, nil
}

func (m *memoryStore) UpdatePurchaseOrder(ctx context.Context, po persistence.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[po.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.orders[po.ID] = po
	return nil
}

func (m *memoryStore) DeletePurchaseOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memoryStore) ListPurchaseOrders(ctx context.Context) ([]persistence.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]persistence.PurchaseOrder, 0, len(m.orders))
	for _, po := range m.orders {
		rows = append(rows, po)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *memoryStore) CreateItem(ctx context.Context, item persistence.PurchaseOrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[item.PurchaseOrderID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	m.items[item.ID] = item
	return nil
}

func (m *memoryStore) ListItems(ctx context.Context, purchaseOrderID string) ([]persistence.PurchaseOrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]persistence.PurchaseOrderItem, 0)
	for _, item := range m.items {
		if item.PurchaseOrderID == purchaseOrderID {
			rows = append(rows, item)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *memoryStore) DeleteItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryStore) CreateCase(ctx context.Context, c persistence.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases[c.ID] = c
	return nil
}

func (m *memoryStore) GetCase(ctx context.Context, id string) (persistence.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return persistence.Case{}, persistence.ErrNotFound
	}
	return c, nil
}

func (m *memoryStore) UpdateCase(ctx context.Context, c persistence.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.cases[c.ID] = c
	return nil
}

func (m *memoryStore) DeleteCase(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.cases, id)
	return nil
}

func (m *memoryStore) ListCases(ctx context.Context) ([]persistence.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]persistence.Case, 0, len(m.cases))
	for _, c := range m.cases {
		rows = append(rows, c)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *memoryStore) AddLink(ctx context.Context, link persistence.CaseLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[link.CaseID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	for _, existing := range m.links {
		if existing.CaseID == link.CaseID && existing.EntityKind == link.EntityKind && existing.EntityID == link.EntityID {
			return persistence.ErrDuplicate
		}
	}
	m.links[link.ID] = link
	return nil
}

func (m *memoryStore) ListLinks(ctx context.Context, caseID string) ([]persistence.CaseLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]persistence.CaseLink, 0)
	for _, link := range m.links {
		if link.CaseID == caseID {
			rows = append(rows, link)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *memoryStore) CreateTodo(ctx context.Context, todo persistence.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.todos[todo.ID] = todo
	return nil
}

func (m *memoryStore) GetTodo(ctx context.Context, id string) (persistence.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	todo, ok := m.todos[id]
	if !ok {
		return persistence.Todo{}, persistence.ErrNotFound
	}
	return todo, nil
}

func (m *memoryStore) UpdateTodo(ctx context.Context, todo persistence.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.todos[todo.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.todos[todo.ID] = todo
	return nil
}

func (m *memoryStore) DeleteTodo(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.todos[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.todos, id)
	return nil
}

func (m *memoryStore) ListTodos(ctx context.Context) ([]persistence.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]persistence.Todo, 0, len(m.todos))
	for _, todo := range m.todos {
		rows = append(rows, todo)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *memoryStore) CreateNote(ctx context.Context, note persistence.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, note)
	return nil
}

func (m *memoryStore) ListNotes(ctx context.Context, entityKind, entityID string) ([]persistence.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]persistence.Note, 0)
	for _, note := range m.notes {
		if note.EntityKind == entityKind && note.EntityID == entityID {
			rows = append(rows, note)
		}
	}
	return rows, nil
}

func (m *memoryStore) CreateFile(ctx context.Context, file persistence.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[file.ID] = file
	return nil
}

func (m *memoryStore) GetFile(ctx context.Context, id string) (persistence.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[id]
	if !ok {
		return persistence.File{}, persistence.ErrNotFound
	}
	return file, nil
}

func (m *memoryStore) DeleteFile(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *memoryStore) ListFiles(ctx context.Context, entityKind, entityID string) ([]persistence.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]persistence.File, 0)
	for _, file := range m.files {
		if file.EntityKind == entityKind && file.EntityID == entityID {
			rows = append(rows, file)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *memoryStore) AppendActivity(ctx context.Context, activity persistence.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, activity)
	return nil
}

func (m *memoryStore) ListActivities(ctx context.Context, limit int) ([]persistence.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]persistence.Activity, len(m.activities))
	copy(rows, m.activities)
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}
