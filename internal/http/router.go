// Package http wires the console's REST API: routing, authentication
// middleware, localized error responses and the JSON views of the domain
// entities.
package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// RouterConfig bundles the handlers and middleware of the API.
type RouterConfig struct {
	Auth           *AuthHandler
	Appointments   *AppointmentHandler
	Repairs        *RepairHandler
	PurchaseOrders *PurchaseOrderHandler
	Cases          *CaseHandler
	Todos          *TodoHandler
	Activities     *ActivityHandler
	Files          *FileHandler
	Events         http.Handler

	AllowedOrigins []string
	// Global middleware, applied outermost first.
	Middleware []mux.MiddlewareFunc
	// RequireAuth wraps everything except login and health.
	RequireAuth mux.MiddlewareFunc
}

// NewRouter builds the full API router under the /api prefix.
func NewRouter(cfg RouterConfig) http.Handler {
	root := mux.NewRouter()
	root.Use(cfg.Middleware...)

	api := root.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	if cfg.Auth != nil {
		api.HandleFunc("/sessions", cfg.Auth.Login).Methods(http.MethodPost)
	}

	protected := api.NewRoute().Subrouter()
	if cfg.RequireAuth != nil {
		protected.Use(cfg.RequireAuth)
	}

	if cfg.Auth != nil {
		protected.HandleFunc("/sessions/current", cfg.Auth.Logout).Methods(http.MethodDelete)
		protected.HandleFunc("/sessions/current", cfg.Auth.Me).Methods(http.MethodGet)
		protected.HandleFunc("/users", cfg.Auth.CreateUser).Methods(http.MethodPost)
		protected.HandleFunc("/users", cfg.Auth.ListUsers).Methods(http.MethodGet)
	}

	if cfg.Appointments != nil {
		protected.HandleFunc("/appointments", cfg.Appointments.Create).Methods(http.MethodPost)
		protected.HandleFunc("/appointments", cfg.Appointments.List).Methods(http.MethodGet)
		protected.HandleFunc("/appointments/export.ics", cfg.Appointments.Export).Methods(http.MethodGet)
		protected.HandleFunc("/appointments/{id}", cfg.Appointments.Get).Methods(http.MethodGet)
		protected.HandleFunc("/appointments/{id}", cfg.Appointments.Update).Methods(http.MethodPatch)
		protected.HandleFunc("/appointments/{id}", cfg.Appointments.Delete).Methods(http.MethodDelete)
		protected.HandleFunc("/agenda/layout", cfg.Appointments.Layout).Methods(http.MethodGet)
	}

	if cfg.Repairs != nil {
		protected.HandleFunc("/repairs", cfg.Repairs.Create).Methods(http.MethodPost)
		protected.HandleFunc("/repairs", cfg.Repairs.List).Methods(http.MethodGet)
		protected.HandleFunc("/repairs/{id}", cfg.Repairs.Get).Methods(http.MethodGet)
		protected.HandleFunc("/repairs/{id}", cfg.Repairs.Update).Methods(http.MethodPatch)
		protected.HandleFunc("/repairs/{id}", cfg.Repairs.Delete).Methods(http.MethodDelete)
		protected.HandleFunc("/repairs/{id}/files", cfg.Repairs.Upload).Methods(http.MethodPost)
		protected.HandleFunc("/repairs/{id}/notes", cfg.Repairs.AddNote).Methods(http.MethodPost)
		protected.HandleFunc("/repairs/{id}/notes", cfg.Repairs.ListNotes).Methods(http.MethodGet)
	}

	if cfg.PurchaseOrders != nil {
		protected.HandleFunc("/purchase-orders", cfg.PurchaseOrders.Create).Methods(http.MethodPost)
		protected.HandleFunc("/purchase-orders", cfg.PurchaseOrders.List).Methods(http.MethodGet)
		protected.HandleFunc("/purchase-orders/{id}", cfg.PurchaseOrders.Get).Methods(http.MethodGet)
		protected.HandleFunc("/purchase-orders/{id}", cfg.PurchaseOrders.Update).Methods(http.MethodPatch)
		protected.HandleFunc("/purchase-orders/{id}", cfg.PurchaseOrders.Delete).Methods(http.MethodDelete)
		protected.HandleFunc("/purchase-orders/{id}/items", cfg.PurchaseOrders.AddItem).Methods(http.MethodPost)
		protected.HandleFunc("/purchase-orders/{id}/items", cfg.PurchaseOrders.ListItems).Methods(http.MethodGet)
		protected.HandleFunc("/purchase-orders/{id}/items/{itemId}", cfg.PurchaseOrders.RemoveItem).Methods(http.MethodDelete)
		protected.HandleFunc("/purchase-orders/{id}/notes", cfg.PurchaseOrders.AddNote).Methods(http.MethodPost)
		protected.HandleFunc("/purchase-orders/{id}/notes", cfg.PurchaseOrders.ListNotes).Methods(http.MethodGet)
		protected.HandleFunc("/purchase-orders/{id}/files", cfg.PurchaseOrders.ListFiles).Methods(http.MethodGet)
	}

	if cfg.Cases != nil {
		protected.HandleFunc("/cases", cfg.Cases.Create).Methods(http.MethodPost)
		protected.HandleFunc("/cases", cfg.Cases.List).Methods(http.MethodGet)
		protected.HandleFunc("/cases/{id}", cfg.Cases.Get).Methods(http.MethodGet)
		protected.HandleFunc("/cases/{id}", cfg.Cases.Update).Methods(http.MethodPatch)
		protected.HandleFunc("/cases/{id}", cfg.Cases.Delete).Methods(http.MethodDelete)
		protected.HandleFunc("/cases/{id}/links", cfg.Cases.AddLink).Methods(http.MethodPost)
		protected.HandleFunc("/cases/{id}/links", cfg.Cases.ListLinks).Methods(http.MethodGet)
		protected.HandleFunc("/cases/{id}/notes", cfg.Cases.AddNote).Methods(http.MethodPost)
		protected.HandleFunc("/cases/{id}/notes", cfg.Cases.ListNotes).Methods(http.MethodGet)
	}

	if cfg.Todos != nil {
		protected.HandleFunc("/todos", cfg.Todos.Create).Methods(http.MethodPost)
		protected.HandleFunc("/todos", cfg.Todos.List).Methods(http.MethodGet)
		protected.HandleFunc("/todos/{id}", cfg.Todos.Get).Methods(http.MethodGet)
		protected.HandleFunc("/todos/{id}", cfg.Todos.Update).Methods(http.MethodPatch)
		protected.HandleFunc("/todos/{id}", cfg.Todos.Delete).Methods(http.MethodDelete)
	}

	if cfg.Activities != nil {
		protected.HandleFunc("/activities", cfg.Activities.List).Methods(http.MethodGet)
		protected.HandleFunc("/analytics/repairs", cfg.Activities.RepairAnalytics).Methods(http.MethodGet)
	}

	if cfg.Files != nil {
		protected.HandleFunc("/files/{id}", cfg.Files.Download).Methods(http.MethodGet)
		protected.HandleFunc("/files/{id}", cfg.Files.Delete).Methods(http.MethodDelete)
	}

	if cfg.Events != nil {
		// The session check runs before the websocket upgrade, so anonymous
		// clients never reach the hub.
		protected.Handle("/events", cfg.Events).Methods(http.MethodGet)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Session-Token"},
		AllowCredentials: true,
	})
	return corsMiddleware.Handler(root)
}
