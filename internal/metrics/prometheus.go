package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	SessionsCreatedTotal    prometheus.Counter
	CallbacksCompletedTotal prometheus.Counter
	TokensDeliveredTotal    prometheus.Counter
	RateLimitDeniedTotal    prometheus.Counter
	UpstreamErrorsTotal     prometheus.Counter
)

// InitCustomMetrics initializes and registers the relay's Prometheus
// metrics. It should be called once at application startup; tests may pass
// a nil registerer to get working counters without registration.
func InitCustomMetrics(reg prometheus.Registerer) {
	SessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_sessions_created_total",
		Help: "Total number of login sessions created by the authorize endpoint.",
	})
	CallbacksCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_callbacks_completed_total",
		Help: "Total number of callbacks that completed a token exchange.",
	})
	TokensDeliveredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_tokens_delivered_total",
		Help: "Total number of token sets delivered to polling clients.",
	})
	RateLimitDeniedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_rate_limit_denied_total",
		Help: "Total number of requests denied by the rate limiter.",
	})
	UpstreamErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_upstream_errors_total",
		Help: "Total number of non-2xx responses from the Kroger token endpoint.",
	})

	if reg == nil {
		return
	}
	for _, c := range []prometheus.Collector{
		SessionsCreatedTotal,
		CallbacksCompletedTotal,
		TokensDeliveredTotal,
		RateLimitDeniedTotal,
		UpstreamErrorsTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register Prometheus metric")
		}
	}
	log.Info().Msg("Prometheus metrics registered")
}
