// Package metrics holds the Prometheus collectors of the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesRelayed counts user DMs posted to the coordination channel.
	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modmail_messages_relayed_total",
			Help: "Total user messages relayed to the coordination channel",
		},
	)

	// MessagesDropped counts inbound DMs that were not relayed.
	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modmail_messages_dropped_total",
			Help: "Total user messages not relayed",
		},
		[]string{"reason"}, // "ignored", "spam", "attachment", "error"
	)

	AutoIgnores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modmail_auto_ignores_total",
			Help: "Total users auto-ignored by the anti-spam limiter",
		},
	)

	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modmail_commands_total",
			Help: "Total staff commands handled",
		},
		[]string{"command"},
	)

	StaffReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modmail_staff_replies_total",
			Help: "Total staff replies by outcome",
		},
		[]string{"result"}, // "delivered", "refused", "failed"
	)

	StoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modmail_store_errors_total",
			Help: "Total ignore store failures surfaced to staff",
		},
	)

	// IgnoredUsers is refreshed periodically by StartIgnoreListWorker.
	IgnoredUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "modmail_ignored_users",
			Help: "Number of users on the ignore list",
		},
	)

	AttachmentDownload = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "modmail_attachment_stage_seconds",
			Help:    "Time spent downloading attachments for a staff reply",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)
