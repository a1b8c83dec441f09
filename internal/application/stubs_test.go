package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/repairops/internal/persistence"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func sequentialIDs(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

func noopActivities() *ActivityService {
	return NewActivityService(&activityRepoStub{}, sequentialIDs("activity"), fixedNow, nil)
}

type activityRepoStub struct {
	entries []persistence.Activity
	err     error
}

func (s *activityRepoStub) AppendActivity(ctx context.Context, activity persistence.Activity) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, activity)
	return nil
}

func (s *activityRepoStub) ListActivities(ctx context.Context, limit int) ([]persistence.Activity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

type appointmentRepoStub struct {
	appointments map[string]persistence.Appointment
	created      []persistence.Appointment
	err          error
}

func newAppointmentRepoStub() *appointmentRepoStub {
	return &appointmentRepoStub{appointments: make(map[string]persistence.Appointment)}
}

func (s *appointmentRepoStub) CreateAppointments(ctx context.Context, appointments []persistence.Appointment) error {
	if s.err != nil {
		return s.err
	}
	for _, appointment := range appointments {
		s.appointments[appointment.ID] = appointment
	}
	s.created = append(s.created, appointments...)
	return nil
}

func (s *appointmentRepoStub) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	if s.err != nil {
		return persistence.Appointment{}, s.err
	}
	appointment, ok := s.appointments[id]
	if !ok {
		return persistence.Appointment{}, persistence.ErrNotFound
	}
	return appointment, nil
}

func (s *appointmentRepoStub) UpdateAppointment(ctx context.Context, appointment persistence.Appointment) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.appointments[appointment.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.appointments[appointment.ID] = appointment
	return nil
}

func (s *appointmentRepoStub) UpdateSeries(ctx context.Context, seriesID string, apply func(persistence.Appointment) persistence.Appointment) ([]persistence.Appointment, error) {
	if s.err != nil {
		return nil, s.err
	}
	var updated []persistence.Appointment
	for id, appointment := range s.appointments {
		if appointment.SeriesID != seriesID {
			continue
		}
		next := apply(appointment)
		s.appointments[id] = next
		updated = append(updated, next)
	}
	return updated, nil
}

func (s *appointmentRepoStub) DeleteAppointment(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.appointments[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

func (s *appointmentRepoStub) DeleteSeries(ctx context.Context, seriesID string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	var removed int64
	for id, appointment := range s.appointments {
		if appointment.SeriesID == seriesID {
			delete(s.appointments, id)
			removed++
		}
	}
	return removed, nil
}

func (s *appointmentRepoStub) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []persistence.Appointment
	for _, appointment := range s.appointments {
		if filter.TimeMin != nil && !appointment.End.After(*filter.TimeMin) {
			continue
		}
		if filter.TimeMax != nil && !appointment.Start.Before(*filter.TimeMax) {
			continue
		}
		if filter.OwnerID != "" && appointment.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, appointment)
	}
	return out, nil
}

type repairRepoStub struct {
	repairs map[string]persistence.Repair
	err     error
}

func newRepairRepoStub() *repairRepoStub {
	return &repairRepoStub{repairs: make(map[string]persistence.Repair)}
}

func (s *repairRepoStub) CreateRepair(ctx context.Context, repair persistence.Repair) error {
	if s.err != nil {
		return s.err
	}
	s.repairs[repair.ID] = repair
	return nil
}

func (s *repairRepoStub) GetRepair(ctx context.Context, id string) (persistence.Repair, error) {
	if s.err != nil {
		return persistence.Repair{}, s.err
	}
	repair, ok := s.repairs[id]
	if !ok {
		return persistence.Repair{}, persistence.ErrNotFound
	}
	return repair, nil
}

func (s *repairRepoStub) UpdateRepair(ctx context.Context, repair persistence.Repair) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.repairs[repair.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.repairs[repair.ID] = repair
	return nil
}

func (s *repairRepoStub) DeleteRepair(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.repairs[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.repairs, id)
	return nil
}

func (s *repairRepoStub) ListRepairs(ctx context.Context, filter persistence.RepairFilter) ([]persistence.Repair, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []persistence.Repair
	for _, repair := range s.repairs {
		if filter.Status != "" && repair.Status != filter.Status {
			continue
		}
		if filter.AssigneeID != "" && (repair.AssigneeID == nil || *repair.AssigneeID != filter.AssigneeID) {
			continue
		}
		out = append(out, repair)
	}
	return out, nil
}

type purchaseRepoStub struct {
	orders map[string]persistence.PurchaseOrder
	items  map[string]persistence.PurchaseOrderItem
	err    error
}

func newPurchaseRepoStub() *purchaseRepoStub {
	return &purchaseRepoStub{
		orders: make(map[string]persistence.PurchaseOrder),
		items:  make(map[string]persistence.PurchaseOrderItem),
	}
}

func (s *purchaseRepoStub) CreatePurchaseOrder(ctx context.Context, po persistence.PurchaseOrder) error {
	if s.err != nil {
		return s.err
	}
	s.orders[po.ID] = po
	return nil
}

func (s *purchaseRepoStub) GetPurchaseOrder(ctx context.Context, id string) (persistence.PurchaseOrder, error) {
	if s.err != nil {
		return persistence.PurchaseOrder{}, s.err
	}
	po, ok := s.orders[id]
	if !ok {
		return persistence.PurchaseOrder{}, persistence.ErrNotFound
	}
	return po, nil
}

func (s *purchaseRepoStub) UpdatePurchaseOrder(ctx context.Context, po persistence.PurchaseOrder) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.orders[po.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.orders[po.ID] = po
	return nil
}

func (s *purchaseRepoStub) DeletePurchaseOrder(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.orders[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *purchaseRepoStub) ListPurchaseOrders(ctx context.Context) ([]persistence.PurchaseOrder, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []persistence.PurchaseOrder
	for _, po := range s.orders {
		out = append(out, po)
	}
	return out, nil
}

func (s *purchaseRepoStub) CreateItem(ctx context.Context, item persistence.PurchaseOrderItem) error {
	if s.err != nil {
		return s.err
	}
	s.items[item.ID] = item
	return nil
}

func (s *purchaseRepoStub) ListItems(ctx context.Context, purchaseOrderID string) ([]persistence.PurchaseOrderItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []persistence.PurchaseOrderItem
	for _, item := range s.items {
		if item.PurchaseOrderID == purchaseOrderID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *purchaseRepoStub) DeleteItem(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.items[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

type userRepoStub struct {
	users map[string]persistence.User
	err   error
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[string]persistence.User)}
}

func (s *userRepoStub) CreateUser(ctx context.Context, user persistence.User) error {
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return persistence.ErrDuplicate
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if s.err != nil {
		return persistence.User{}, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	if s.err != nil {
		return persistence.User{}, s.err
	}
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *userRepoStub) ListUsers(ctx context.Context) ([]persistence.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []persistence.User
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

type sessionRepoStub struct {
	sessions map[string]persistence.Session
	err      error
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: make(map[string]persistence.Session)}
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if s.err != nil {
		return persistence.Session{}, s.err
	}
	s.sessions[session.Token] = session
	return session, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if s.err != nil {
		return persistence.Session{}, s.err
	}
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	if s.err != nil {
		return persistence.Session{}, s.err
	}
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	return session, nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	var removed int64
	for token, session := range s.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

type todoRepoStub struct {
	todos map[string]persistence.Todo
	err   error
}

func newTodoRepoStub() *todoRepoStub {
	return &todoRepoStub{todos: make(map[string]persistence.Todo)}
}

func (s *todoRepoStub) CreateTodo(ctx context.Context, todo persistence.Todo) error {
	if s.err != nil {
		return s.err
	}
	s.todos[todo.ID] = todo
	return nil
}

func (s *todoRepoStub) GetTodo(ctx context.Context, id string) (persistence.Todo, error) {
	if s.err != nil {
		return persistence.Todo{}, s.err
	}
	todo, ok := s.todos[id]
	if !ok {
		return persistence.Todo{}, persistence.ErrNotFound
	}
	return todo, nil
}

func (s *todoRepoStub) UpdateTodo(ctx context.Context, todo persistence.Todo) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.todos[todo.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.todos[todo.ID] = todo
	return nil
}

func (s *todoRepoStub) DeleteTodo(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.todos[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.todos, id)
	return nil
}

func (s *todoRepoStub) ListTodos(ctx context.Context) ([]persistence.Todo, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []persistence.Todo
	for _, todo := range s.todos {
		out = append(out, todo)
	}
	return out, nil
}

type caseRepoStub struct {
	cases map[string]persistence.Case
	links map[string]persistence.CaseLink
	err   error
}

func newCaseRepoStub() *caseRepoStub {
	return &caseRepoStub{
		cases: make(map[string]persistence.Case),
		links: make(map[string]persistence.CaseLink),
	}
}

func (s *caseRepoStub) CreateCase(ctx context.Context, c persistence.Case) error {
	if s.err != nil {
		return s.err
	}
	s.cases[c.ID] = c
	return nil
}

func (s *caseRepoStub) GetCase(ctx context.Context, id string) (persistence.Case, error) {
	if s.err != nil {
		return persistence.Case{}, s.err
	}
	c, ok := s.cases[id]
	if !ok {
		return persistence.Case{}, persistence.ErrNotFound
	}
	return c, nil
}

func (s *caseRepoStub) UpdateCase(ctx context.Context, c persistence.Case) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.cases[c.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.cases[c.ID] = c
	return nil
}

func (s *caseRepoStub) DeleteCase(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.cases[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.cases, id)
	return nil
}

func (s *caseRepoStub) ListCases(ctx context.Context) ([]persistence.Case, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []persistence.Case
	for _, c := range s.cases {
		out = append(out, c)
	}
	return out, nil
}

func (s *caseRepoStub) AddLink(ctx context.Context, link persistence.CaseLink) error {
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.links {
		if existing.CaseID == link.CaseID && existing.EntityKind == link.EntityKind && existing.EntityID == link.EntityID {
			return persistence.ErrDuplicate
		}
	}
	s.links[link.ID] = link
	return nil
}

func (s *caseRepoStub) ListLinks(ctx context.Context, caseID string) ([]persistence.CaseLink, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []persistence.CaseLink
	for _, link := range s.links {
		if link.CaseID == caseID {
			out = append(out, link)
		}
	}
	return out, nil
}
