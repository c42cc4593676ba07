package tcp

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stats is the counter set the send engine increments as segments are
// built, transmitted and retransmitted. It plays the role the
// TCP_STATS_INC/snmp_inc_tcp* macro family plays in the engine this package
// is modeled on: every place that would bump a counter there calls one of
// these methods instead.
type Stats interface {
	Xmit()
	Rexmit()
	RexmitFastRTO()
	MemErr()
	RtoEvent()
}

// prometheusStats is the default Stats implementation, backing each counter
// with a prometheus.Counter so a process embedding this engine can scrape
// send-side TCP activity the same way it already scrapes everything else.
type prometheusStats struct {
	xmit          prometheus.Counter
	rexmit        prometheus.Counter
	rexmitFastRTO prometheus.Counter
	memErr        prometheus.Counter
	rtoEvent      prometheus.Counter
}

// NewPrometheusStats creates a Stats implementation and registers its
// counters with reg
func NewPrometheusStats(reg prometheus.Registerer) Stats {
	s := &prometheusStats{
		xmit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_segments_sent_total",
			Help: "Total number of TCP segments handed to the IP layer.",
		}),
		rexmit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_segments_retransmitted_total",
			Help: "Total number of TCP segments requeued by fast retransmit (RTO events are counted separately).",
		}),
		rexmitFastRTO: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_fast_retransmits_total",
			Help: "Total number of fast (duplicate-ack triggered) retransmissions.",
		}),
		memErr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_segment_alloc_failures_total",
			Help: "Total number of times segment buffer allocation failed.",
		}),
		rtoEvent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_rto_events_total",
			Help: "Total number of retransmission-timeout events.",
		}),
	}

	reg.MustRegister(s.xmit, s.rexmit, s.rexmitFastRTO, s.memErr, s.rtoEvent)

	return s
}

func (s *prometheusStats) Xmit()          { s.xmit.Inc() }
func (s *prometheusStats) Rexmit()        { s.rexmit.Inc() }
func (s *prometheusStats) RexmitFastRTO() { s.rexmitFastRTO.Inc() }
func (s *prometheusStats) MemErr()        { s.memErr.Inc() }
func (s *prometheusStats) RtoEvent()      { s.rtoEvent.Inc() }

// noopStats discards every counter; used by endpoints created without an
// explicit prometheus.Registerer (e.g. in tests)
type noopStats struct{}

func (noopStats) Xmit()          {}
func (noopStats) Rexmit()        {}
func (noopStats) RexmitFastRTO() {}
func (noopStats) MemErr()        {}
func (noopStats) RtoEvent()      {}
