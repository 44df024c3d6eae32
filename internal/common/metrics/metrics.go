package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectorExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_connector_executions_total",
			Help: "Connector executions by connector type and result status",
		},
		[]string{"connector_type", "status"},
	)

	ConnectorExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "form_connector_execution_duration_seconds",
			Help:    "Duration of a single connector execution in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"connector_type"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_submissions_total",
			Help: "Form submissions by outcome",
		},
		[]string{"outcome"},
	)

	CatalogLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_catalog_loads_total",
			Help: "Connector catalog loads by status",
		},
		[]string{"status"},
	)

	FormSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_saves_total",
			Help: "Saved-object writes by operation and status",
		},
		[]string{"operation", "status"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
