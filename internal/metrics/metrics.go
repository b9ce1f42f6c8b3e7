package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "df_updater_cycles_total",
		Help: "Total number of check cycles started",
	})

	CyclesUnauthenticated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "df_updater_cycles_unauthenticated_total",
		Help: "Total number of cycles aborted for a missing or expired session",
	})

	CyclesSourceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "df_updater_cycles_source_errors_total",
		Help: "Total number of cycles aborted because the source page was unreachable",
	})

	ItemsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "df_updater_items_found_total",
		Help: "Total number of new items discovered",
	})

	DownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "df_updater_downloads_total",
		Help: "Total number of download attempts",
	})

	DownloadsSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "df_updater_downloads_success_total",
		Help: "Total number of successful downloads",
	})

	DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "df_updater_downloads_failed_total",
		Help: "Total number of failed downloads",
	})

	DownloadRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "df_updater_download_retries_total",
		Help: "Total number of transfer restarts after a size mismatch or transport error",
	})

	DownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "df_updater_download_bytes_total",
		Help: "Total bytes downloaded",
	})

	DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "df_updater_download_duration_seconds",
		Help:    "Download duration in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
)
