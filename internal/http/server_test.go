package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/repairops/internal/agenda"
	"github.com/example/repairops/internal/application"
	"github.com/example/repairops/internal/persistence"
	"github.com/example/repairops/internal/realtime"
)

const (
	adminEmail    = "admin@example.test"
	adminPassword = "admin-password"
	techEmail     = "tech@example.test"
	techPassword  = "tech-password"
)

type testEnv struct {
	store     *memoryStore
	publisher *publisherRecorder
	server    *httptest.Server
	client    *http.Client
}

// newTestEnv wires the full router over real services backed by the in-memory
// store, with a fixed clock and deterministic ids.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemoryStore()
	publisher := &publisherRecorder{}
	logger := slog.New(slog.DiscardHandler)
	newID := sequentialIDs("id")

	activities := application.NewActivityService(store, newID, fixedNow, logger)
	auth := application.NewAuthService(store, store, []byte("test-secret"), time.Hour, newID, fixedNow, logger)
	appointments := application.NewAppointmentService(store, activities, newID, fixedNow, logger)
	repairs := application.NewRepairService(store, activities, newID, fixedNow, logger)
	orders := application.NewPurchaseOrderService(store, activities, newID, fixedNow, logger)
	cases := application.NewCaseService(store, activities, newID, fixedNow, logger)
	todos := application.NewTodoService(store, activities, newID, fixedNow, logger)
	notes := application.NewNoteService(store, activities, newID, fixedNow, logger)
	files := application.NewFileService(store, activities, t.TempDir(), 1<<20, newID, fixedNow, logger)
	analytics := application.NewAnalyticsService(store, fixedNow, logger)

	hub := realtime.NewHub(logger)
	hubCtx, cancelHub := context.WithCancel(context.Background())
	t.Cleanup(cancelHub)
	go hub.Run(hubCtx)

	router := NewRouter(RouterConfig{
		Auth:           NewAuthHandler(auth, false, logger),
		Appointments:   NewAppointmentHandler(appointments, agenda.DefaultGrid(), publisher, fixedNow, logger),
		Repairs:        NewRepairHandler(repairs, files, notes, publisher, logger),
		PurchaseOrders: NewPurchaseOrderHandler(orders, notes, files, publisher, logger),
		Cases:          NewCaseHandler(cases, notes, publisher, logger),
		Todos:          NewTodoHandler(todos, publisher, logger),
		Activities:     NewActivityHandler(activities, analytics, logger),
		Files:          NewFileHandler(files, publisher, logger),
		Events:         hub,
		AllowedOrigins: []string{"*"},
		RequireAuth:    RequireSession(auth, logger),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	env := &testEnv{
		store:     store,
		publisher: publisher,
		server:    server,
		client:    server.Client(),
	}
	env.seedUser(t, "user-admin", adminEmail, "admin", adminPassword)
	env.seedUser(t, "user-tech", techEmail, "technician", techPassword)
	return env
}

func (e *testEnv) seedUser(t *testing.T, id, email, role, password string) {
	t.Helper()

	// Light parameters keep the hashing fast in tests.
	hash, err := application.CreatePasswordHash(password, application.Argon2idParams{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  8,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	err = e.store.CreateUser(context.Background(), persistence.User{
		ID:           id,
		Email:        email,
		DisplayName:  id,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    fixedNow(),
		UpdatedAt:    fixedNow(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

// login authenticates and returns the session cookie plus the bearer token.
func (e *testEnv) login(t *testing.T, email, password string) (*http.Cookie, string) {
	t.Helper()

	resp := e.request(t, http.MethodPost, "/api/sessions", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("login returned status %d", resp.StatusCode)
	}

	var session struct {
		BearerToken string `json:"bearerToken"`
	}
	decodeBody(t, resp, &session)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookieName {
			return cookie, session.BearerToken
		}
	}
	t.Fatal("login response is missing the session cookie")
	return nil, ""
}

func (e *testEnv) loginAdmin(t *testing.T) *http.Cookie {
	t.Helper()
	cookie, _ := e.login(t, adminEmail, adminPassword)
	return cookie
}

func (e *testEnv) loginTechnician(t *testing.T) *http.Cookie {
	t.Helper()
	cookie, _ := e.login(t, techEmail, techPassword)
	return cookie
}

// request performs an HTTP call against the test server. body is JSON-encoded
// when non-nil; cookie authenticates the request when non-nil.
func (e *testEnv) request(t *testing.T, method, path string, body any, cookie *http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode response %q: %v", raw, err)
	}
}

func requireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body %q)", resp.StatusCode, want, raw)
	}
}
