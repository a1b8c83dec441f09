package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/repairops/internal/application"
)

// ActivityHandler serves the activity feed and the dashboard analytics.
type ActivityHandler struct {
	activities *application.ActivityService
	analytics  *application.AnalyticsService
	responder  responder
	logger     *slog.Logger
}

// NewActivityHandler constructs an ActivityHandler.
func NewActivityHandler(activities *application.ActivityService, analytics *application.AnalyticsService, logger *slog.Logger) *ActivityHandler {
	logger = defaultLogger(logger)
	return &ActivityHandler{
		activities: activities,
		analytics:  analytics,
		responder:  newResponder(logger),
		logger:     logger,
	}
}

// List returns the most recent activity entries, newest first.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		limit = parsed
	}

	entries, err := h.activities.List(ctx, limit)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	views := make([]activityView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, newActivityView(entry))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, views)
}

type technicianCountView struct {
	AssigneeID string `json:"assigneeId"`
	Count      int    `json:"count"`
}

type categoryCountView struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type repairAnalyticsView struct {
	Total                  int                   `json:"total"`
	CountsByStatus         map[string]int        `json:"countsByStatus"`
	Overdue                int                   `json:"overdue"`
	CompletedCount         int                   `json:"completedCount"`
	AverageTurnaroundHours float64               `json:"averageTurnaroundHours"`
	TopTechnicians         []technicianCountView `json:"topTechnicians"`
	TopIssueCategories     []categoryCountView   `json:"topIssueCategories"`
}

// RepairAnalytics returns the aggregated repair workload for the dashboard.
func (h *ActivityHandler) RepairAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.analytics.RepairReport(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	technicians := make([]technicianCountView, 0, len(report.TopTechnicians))
	for _, entry := range report.TopTechnicians {
		technicians = append(technicians, technicianCountView(entry))
	}
	categories := make([]categoryCountView, 0, len(report.TopIssueCategories))
	for _, entry := range report.TopIssueCategories {
		categories = append(categories, categoryCountView(entry))
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, repairAnalyticsView{
		Total:                  report.Total,
		CountsByStatus:         report.CountsByStatus,
		Overdue:                report.Overdue,
		CompletedCount:         report.CompletedCount,
		AverageTurnaroundHours: report.AverageTurnaround.Hours(),
		TopTechnicians:         technicians,
		TopIssueCategories:     categories,
	})
}
