package eventbus

import "github.com/prometheus/client_golang/prometheus"

// metrics are the operator-facing dropped-event counters. Kept as
// instance fields (not package globals) registered into a
// caller-supplied registry so multiple engines/tests can run side by
// side without colliding on prometheus's default registry.
type metrics struct {
	dropped        *prometheus.CounterVec
	ingressDropped prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchengine_eventbus_dropped_total",
			Help: "Events dropped for a slow subscriber because its buffer was full.",
		}, []string{"kind"}),
		ingressDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchengine_eventbus_ingress_dropped_total",
			Help: "Events dropped before dispatch because the bus ingress queue was saturated.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.dropped, m.ingressDropped)
	}
	return m
}
