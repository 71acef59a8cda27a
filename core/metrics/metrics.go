package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sims_uploads_started_total",
			Help: "Total number of direct uploads started",
		},
		[]string{"kind"},
	)

	UploadsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sims_uploads_finished_total",
			Help: "Total number of direct uploads confirmed by clients",
		},
		[]string{"kind"},
	)

	CredentialFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sims_upload_credential_failures_total",
			Help: "Total number of failed presigned credential requests",
		},
	)

	SubmissionScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sims_submission_score_ratio",
			Help:    "Distribution of graded scores relative to the assignment marks",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"course"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sims_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
