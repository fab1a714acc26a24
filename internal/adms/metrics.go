package adms

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	punchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hosteld_punches_total",
		Help: "Classified punches by outcome.",
	}, []string{"outcome"})

	parseSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hosteld_parse_skips_total",
		Help: "Payload lines skipped by the protocol parser.",
	})

	unknownPINsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hosteld_unknown_pins_total",
		Help: "Scans dropped because no person matched the device PIN.",
	})

	pushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hosteld_device_pushes_total",
		Help: "Device payload pushes by ack token.",
	}, []string{"ack"})
)
