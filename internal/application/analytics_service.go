package application

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/example/repairops/internal/persistence"
)

// AnalyticsService computes repair workload aggregates for the dashboard.
type AnalyticsService struct {
	repairs persistence.RepairRepository
	now     func() time.Time
	logger  *slog.Logger
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(repairs persistence.RepairRepository, now func() time.Time, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		repairs: repairs,
		now:     now,
		logger:  defaultLogger(logger),
	}
}

// RepairReport aggregates all repair tickets into dashboard figures: counts
// per status, overdue count, average turnaround of completed repairs and the
// busiest technicians and issue categories.
func (s *AnalyticsService) RepairReport(ctx context.Context) (RepairAnalytics, error) {
	repairs, err := s.repairs.ListRepairs(ctx, persistence.RepairFilter{})
	if err != nil {
		serviceLogger(ctx, s.logger, "analytics", "repair_report").Error("failed to list repairs", "error", err)
		return RepairAnalytics{}, err
	}

	now := s.now().UTC()
	report := RepairAnalytics{
		Total:          len(repairs),
		CountsByStatus: make(map[string]int),
	}

	var turnaroundTotal time.Duration
	technicianCounts := make(map[string]int)
	categoryCounts := make(map[string]int)

	for _, repair := range repairs {
		report.CountsByStatus[repair.Status]++

		terminal := repair.Status == RepairStatusCompleted ||
			repair.Status == RepairStatusReturned ||
			repair.Status == RepairStatusCanceled
		if repair.SLADeadline != nil && !terminal && repair.SLADeadline.Before(now) {
			report.Overdue++
		}

		if repair.CompletedAt != nil {
			report.CompletedCount++
			turnaroundTotal += repair.CompletedAt.Sub(repair.CreatedAt)
		}
		if repair.AssigneeID != nil && *repair.AssigneeID != "" {
			technicianCounts[*repair.AssigneeID]++
		}
		if repair.IssueCategory != "" {
			categoryCounts[repair.IssueCategory]++
		}
	}

	if report.CompletedCount > 0 {
		report.AverageTurnaround = turnaroundTotal / time.Duration(report.CompletedCount)
	}
	report.TopTechnicians = topTechnicians(technicianCounts, 3)
	report.TopIssueCategories = topCategories(categoryCounts, 3)
	return report, nil
}

func topTechnicians(counts map[string]int, limit int) []TechnicianCount {
	ranked := make([]TechnicianCount, 0, len(counts))
	for id, count := range counts {
		ranked = append(ranked, TechnicianCount{AssigneeID: id, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].AssigneeID < ranked[j].AssigneeID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func topCategories(counts map[string]int, limit int) []CategoryCount {
	ranked := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		ranked = append(ranked, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Category < ranked[j].Category
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
