package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "leeready_ticks_total", Help: "Eligible tick records classified"},
		[]string{"symbol"},
	)
	TicksDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "leeready_ticks_dropped_total", Help: "Tick rows dropped by the eligibility filter"},
		[]string{"symbol"},
	)
	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "leeready_classifications_total", Help: "Final trade-side labels"},
		[]string{"symbol", "direction"},
	)
	FilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "leeready_files_total", Help: "Tick files processed by outcome"},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, TicksDroppedTotal, ClassificationsTotal, FilesTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
