package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PapersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "papers_created_total",
		Help: "Total number of papers added to the tracker.",
	})
	PapersDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "papers_deleted_total",
		Help: "Total number of papers removed from the tracker.",
	})
	StatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paper_status_transitions_total",
		Help: "Status transitions by source and target status.",
	}, []string{"from", "to"})
	ReviewUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "review_file_uploads_total",
		Help: "Review file uploads by content type and result.",
	}, []string{"content_type", "result"})
	SweepRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "missed_sweep_runs_total",
		Help: "Missed-status sweep runs by result (ok, error, skipped).",
	}, []string{"result"})
	SweepMarked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "missed_sweep_marked_total",
		Help: "Papers moved to missed by the sweep.",
	})
)

func init() {
	prometheus.MustRegister(PapersCreated, PapersDeleted, StatusTransitions, ReviewUploads, SweepRuns, SweepMarked)
}
