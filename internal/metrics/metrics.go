// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyroom_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyroom_api_active_requests",
			Help: "Number of requests currently being served",
		},
	)

	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyroom_rooms_created_total",
			Help: "Total number of study rooms created",
		},
	)

	MembershipEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_membership_events_total",
			Help: "Membership workflow transitions",
		},
		[]string{"status"}, // pending, approved, rejected
	)

	ChatMessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyroom_chat_messages_total",
			Help: "Total number of chat messages appended",
		},
	)

	ChatSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyroom_chat_subscribers",
			Help: "Live chat stream connections",
		},
	)

	ChatEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyroom_chat_events_dropped_total",
			Help: "Chat events dropped for slow subscribers",
		},
	)

	MediaUploadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyroom_media_uploaded_bytes_total",
			Help: "Total bytes of media stored",
		},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyroom_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
