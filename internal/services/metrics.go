package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosek_sessions_issued_total",
		Help: "Total number of session tokens issued",
	})

	sessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosek_sessions_expired_total",
		Help: "Total number of session tokens evicted after expiry was detected",
	})

	adminCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosek_admin_cache_lookups_total",
		Help: "Admin allow-list cache lookups by result",
	}, []string{"result"})

	mediaPurgeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosek_media_purge_failures_total",
		Help: "Total number of media files that could not be removed after commit",
	})

	moderationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosek_moderation_decisions_total",
		Help: "Moderation decisions by subject and outcome",
	}, []string{"subject", "decision"})
)
