// Command console runs the back-office HTTP API for the repair and resale
// operations: repairs, purchase orders, support cases, todos and the shared
// agenda.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/example/repairops/internal/agenda"
	"github.com/example/repairops/internal/application"
	"github.com/example/repairops/internal/config"
	consolehttp "github.com/example/repairops/internal/http"
	"github.com/example/repairops/internal/jobs"
	"github.com/example/repairops/internal/persistence/sqlite"
	"github.com/example/repairops/internal/realtime"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("console exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	store, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	newID := uuid.NewString
	now := time.Now

	activities := application.NewActivityService(store, newID, now, logger)
	auth := application.NewAuthService(store, store, []byte(cfg.JWTSecret), cfg.SessionTTL, newID, now, logger)
	appointments := application.NewAppointmentService(store, activities, newID, now, logger)
	repairs := application.NewRepairService(store, activities, newID, now, logger)
	orders := application.NewPurchaseOrderService(store, activities, newID, now, logger)
	cases := application.NewCaseService(store, activities, newID, now, logger)
	todos := application.NewTodoService(store, activities, newID, now, logger)
	notes := application.NewNoteService(store, activities, newID, now, logger)
	files := application.NewFileService(store, activities, cfg.UploadDir, cfg.MaxUploadBytes, newID, now, logger)
	analytics := application.NewAnalyticsService(store, now, logger)

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	grid := agenda.Grid{
		HourHeight:      cfg.HourHeight,
		CollapsedHeight: cfg.CollapsedHeight,
		WorkStart:       cfg.WorkdayStart,
		WorkEnd:         cfg.WorkdayEnd,
	}

	router := consolehttp.NewRouter(consolehttp.RouterConfig{
		Auth:           consolehttp.NewAuthHandler(auth, cfg.SecureCookies, logger),
		Appointments:   consolehttp.NewAppointmentHandler(appointments, grid, hub, now, logger),
		Repairs:        consolehttp.NewRepairHandler(repairs, files, notes, hub, logger),
		PurchaseOrders: consolehttp.NewPurchaseOrderHandler(orders, notes, files, hub, logger),
		Cases:          consolehttp.NewCaseHandler(cases, notes, hub, logger),
		Todos:          consolehttp.NewTodoHandler(todos, hub, logger),
		Activities:     consolehttp.NewActivityHandler(activities, analytics, logger),
		Files:          consolehttp.NewFileHandler(files, hub, logger),
		Events:         hub,
		AllowedOrigins: cfg.AllowedOrigins,
		Middleware: []mux.MiddlewareFunc{
			consolehttp.RequestLogger(logger),
			consolehttp.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		},
		RequireAuth: consolehttp.RequireSession(auth, logger),
	})

	scheduler := jobs.NewScheduler(auth, repairs, activities, hub, now, logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("console listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
