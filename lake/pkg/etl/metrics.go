package etl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for a pipeline run. A batch job cannot be
// scraped, so the registry is exported as a textfile when the run ends.
type Metrics struct {
	BuildInfo     *prometheus.GaugeVec
	RowsRead      *prometheus.GaugeVec
	RowsWritten   *prometheus.GaugeVec
	StageDuration *prometheus.GaugeVec
	LastRun       *prometheus.GaugeVec
}

// NewMetrics creates pipeline metrics registered with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BuildInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sparkify_etl_build_info",
			Help: "Build information of the sparkify ETL job",
		}, []string{"version", "commit", "date"}),
		RowsRead: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sparkify_etl_rows_read",
			Help: "Records loaded from an input family in the last run",
		}, []string{"input"}),
		RowsWritten: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sparkify_etl_rows_written",
			Help: "Rows written to an output table in the last run",
		}, []string{"table"}),
		StageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sparkify_etl_stage_duration_seconds",
			Help: "Wall time of a stage in the last run",
		}, []string{"stage"}),
		LastRun: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sparkify_etl_last_run_timestamp_seconds",
			Help: "Unix time the last run finished, by result",
		}, []string{"result"}),
	}
}
