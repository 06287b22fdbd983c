package mailbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes prometheus instrumentation for the mailbox engine. All
// fields are optional from the engine's perspective: a nil *Metrics disables
// instrumentation entirely.
type Metrics struct {
	Submitted *prometheus.CounterVec // labels: organization, priority
	Delivered *prometheus.CounterVec // labels: organization, mode (directed|broadcast)
	Swept     prometheus.Counter
	Sweeps    prometheus.Counter
}

// NewMetrics creates and registers mailbox metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Submitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mailbox_messages_submitted_total",
			Help: "Total number of messages accepted into the mailbox",
		}, []string{"organization", "priority"}),
		Delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mailbox_messages_delivered_total",
			Help: "Total number of messages returned to consumers",
		}, []string{"organization", "mode"}),
		Swept: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailbox_messages_swept_total",
			Help: "Total number of expired messages removed by the sweeper",
		}),
		Sweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailbox_sweeps_total",
			Help: "Total number of completed sweeper passes",
		}),
	}
}

func (m *Metrics) observeSubmit(msg *Message) {
	if m == nil {
		return
	}
	m.Submitted.WithLabelValues(msg.Organization, string(msg.Priority)).Inc()
}

func (m *Metrics) observeDelivery(msg *Message) {
	if m == nil {
		return
	}
	mode := "directed"
	if msg.NotificationType.Broadcast() {
		mode = "broadcast"
	}
	m.Delivered.WithLabelValues(msg.Organization, mode).Inc()
}

func (m *Metrics) observeSweep(removed int) {
	if m == nil {
		return
	}
	m.Swept.Add(float64(removed))
	m.Sweeps.Inc()
}
