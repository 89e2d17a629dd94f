package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	// RedeemDuration tracks the latency of redemption transactions
	RedeemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "karma_redeem_duration_seconds",
			Help: "Duration of redemption transactions in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
			},
		},
		[]string{"result"}, // success, insufficient_funds, out_of_stock, failed
	)

	// KarmaAwards counts earn-side ledger appends by activity kind
	KarmaAwards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karma_awards_total",
			Help: "Number of karma awards appended to the ledger",
		},
		[]string{"kind"},
	)

	// BadgeAwards counts newly awarded badges by rarity
	BadgeAwards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karma_badge_awards_total",
			Help: "Number of badges awarded",
		},
		[]string{"rarity"},
	)
)

// RecordRedeemDuration records one redemption attempt with its outcome
func RecordRedeemDuration(result string, duration float64) {
	RedeemDuration.WithLabelValues(result).Observe(duration)
}

// Serve exposes /metrics on its own listener, separate from the API port.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("❌ Metrics server error: %v", err)
		}
	}()
	log.Printf("✅ Metrics exposed on %s/metrics", addr)
}
