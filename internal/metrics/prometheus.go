package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/profscale/profscale/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	stateTransitions  *prometheus.CounterVec
	groupEvents       *prometheus.CounterVec
	invalidEvents     prometheus.Counter
	passDuration      prometheus.Histogram
	passCommands      *prometheus.CounterVec
	passErrors        prometheus.Counter
	scaleUps          *prometheus.CounterVec
	scaleDowns        *prometheus.CounterVec
	profileSkips      *prometheus.CounterVec
	profileErrors     *prometheus.CounterVec
	mastershipGauge   prometheus.Gauge
	presencePublishes *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace (defaults to "profscale" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "profscale"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "controller",
			Name:      "state_transitions_total",
			Help:      "Total controller state transitions by source and target state.",
		}, []string{"from", "to"})

		p.groupEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "controller",
			Name:      "group_events_total",
			Help:      "Total membership events received from the coordination service.",
		}, []string{"event"})

		p.invalidEvents = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "controller",
			Name:      "invalid_events_total",
			Help:      "Membership events ignored because required capabilities were unbound.",
		})

		p.passDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "pass_duration_seconds",
			Help:      "Duration of reconciliation passes in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		})

		p.passCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "pass_commands_total",
			Help:      "Scale commands issued per pass by direction (up/down).",
		}, []string{"direction"})

		p.passErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "pass_profile_errors_total",
			Help:      "Total contained per-profile scaling failures across passes.",
		})

		p.scaleUps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "scale_up_instances_total",
			Help:      "Total instances requested by scale-up commands, per profile.",
		}, []string{"profile"})

		p.scaleDowns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "scale_down_instances_total",
			Help:      "Total instances removed by scale-down commands, per profile.",
		}, []string{"profile"})

		p.profileSkips = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "profile_skips_total",
			Help:      "Profiles skipped during passes by reason (no_minimum, no_autoscaler, gated).",
		}, []string{"reason"})

		p.profileErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "profile_errors_total",
			Help:      "Contained scaling failures by profile.",
		}, []string{"profile"})

		p.mastershipGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "group",
			Name:      "is_master",
			Help:      "Whether this node currently holds group mastership (1=master, 0=standby).",
		})

		p.presencePublishes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "group",
			Name:      "presence_publishes_total",
			Help:      "Presence publish attempts by result (success|failure).",
		}, []string{"result"})

		p.reg.MustRegister(p.stateTransitions)
		p.reg.MustRegister(p.groupEvents)
		p.reg.MustRegister(p.invalidEvents)
		p.reg.MustRegister(p.passDuration)
		p.reg.MustRegister(p.passCommands)
		p.reg.MustRegister(p.passErrors)
		p.reg.MustRegister(p.scaleUps)
		p.reg.MustRegister(p.scaleDowns)
		p.reg.MustRegister(p.profileSkips)
		p.reg.MustRegister(p.profileErrors)
		p.reg.MustRegister(p.mastershipGauge)
		p.reg.MustRegister(p.presencePublishes)
	})
}

// RecordStateTransition increments the transition counter for (from, to).
func (p *PrometheusCollector) RecordStateTransition(from, to types.State) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordGroupEvent increments the event counter for the event kind.
func (p *PrometheusCollector) RecordGroupEvent(event types.GroupEvent) {
	p.ensureRegistered()
	p.groupEvents.WithLabelValues(event.String()).Inc()
}

// RecordInvalidEvent increments the ignored-event counter.
func (p *PrometheusCollector) RecordInvalidEvent() {
	p.ensureRegistered()
	p.invalidEvents.Inc()
}

// RecordReconcilePass observes the pass duration and issued command counts.
func (p *PrometheusCollector) RecordReconcilePass(duration float64, result types.PassResult) {
	p.ensureRegistered()
	p.passDuration.Observe(duration)
	p.passCommands.WithLabelValues("up").Add(float64(result.ScaleUps))
	p.passCommands.WithLabelValues("down").Add(float64(result.ScaleDowns))
	p.passErrors.Add(float64(result.Errors))
}

// RecordScaleUp adds the requested instance count for the profile.
func (p *PrometheusCollector) RecordScaleUp(profile string, count int) {
	p.ensureRegistered()
	p.scaleUps.WithLabelValues(profile).Add(float64(count))
}

// RecordScaleDown adds the removed instance count for the profile.
func (p *PrometheusCollector) RecordScaleDown(profile string, count int) {
	p.ensureRegistered()
	p.scaleDowns.WithLabelValues(profile).Add(float64(count))
}

// RecordProfileSkipped increments the skip counter for the reason.
func (p *PrometheusCollector) RecordProfileSkipped(_ string, reason string) {
	p.ensureRegistered()
	p.profileSkips.WithLabelValues(reason).Inc()
}

// RecordProfileError increments the error counter for the profile.
func (p *PrometheusCollector) RecordProfileError(profile string) {
	p.ensureRegistered()
	p.profileErrors.WithLabelValues(profile).Inc()
}

// RecordMastershipChange sets the mastership gauge.
func (p *PrometheusCollector) RecordMastershipChange(isMaster bool) {
	p.ensureRegistered()
	if isMaster {
		p.mastershipGauge.Set(1)
	} else {
		p.mastershipGauge.Set(0)
	}
}

// RecordPresencePublish increments the presence publish counter by result.
func (p *PrometheusCollector) RecordPresencePublish(success bool) {
	p.ensureRegistered()
	if success {
		p.presencePublishes.WithLabelValues("success").Inc()
	} else {
		p.presencePublishes.WithLabelValues("failure").Inc()
	}
}
