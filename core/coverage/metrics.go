package coverage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/trezcool/curricula/core/coverage")

var (
	// cellRecalcTotal counts cell recalculations by result ("ok" or "error")
	cellRecalcTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curricula_coverage_cell_recalculations_total",
		Help: "Total coverage cell recalculations by result",
	}, []string{"result"})

	// sweepDuration tracks full recalculations of a scope
	sweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "curricula_coverage_sweep_duration_seconds",
		Help:    "Duration of full coverage recalculations in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	}, []string{"scope"}) // "tenant" or "course"

	// sweepFailedCells counts cells that failed during full recalculations
	sweepFailedCells = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curricula_coverage_sweep_failed_cells_total",
		Help: "Total cells that failed during full coverage recalculations",
	})

	// jobsInFlight is the number of background recalculations currently running
	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curricula_coverage_jobs_in_flight",
		Help: "Background coverage recalculations currently running",
	})
)

func scopeLabel(s Scope) string {
	if s.IsCourse() {
		return "course"
	}
	return "tenant"
}
