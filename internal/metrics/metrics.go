package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Notification Metrics
var (
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameNotificationsPublished,
			Help: HelpTextNotificationsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)

	SSEClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameSSEClients,
			Help: HelpTextSSEClients,
		},
	)

	SSEDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSSEDropped,
			Help: HelpTextSSEDropped,
		},
		[]string{LabelReason},
	)
)

// Orchestration Metrics
var (
	InstancesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameInstancesStarted,
			Help: HelpTextInstancesStarted,
		},
		[]string{LabelEventType},
	)

	InstancesFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameInstancesFinished,
			Help: HelpTextInstancesFinished,
		},
		[]string{LabelState},
	)

	WaveUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameWaveUpdates,
			Help: HelpTextWaveUpdates,
		},
	)

	BossEncounters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameBossEncounters,
			Help: HelpTextBossEncounters,
		},
		[]string{LabelOutcome},
	)

	FactsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameFactsReceived,
			Help: HelpTextFactsReceived,
		},
		[]string{LabelKind},
	)

	TriggersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameTriggersFired,
			Help: HelpTextTriggersFired,
		},
		[]string{LabelTrigger},
	)

	RewardGrants = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRewardGrants,
			Help: HelpTextRewardGrants,
		},
		[]string{LabelResult},
	)

	ZoneActors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameZoneActors,
			Help: HelpTextZoneActors,
		},
	)
)
