// Package metrics exposes session lifecycle counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "session"

// Recorder methods are safe on a nil receiver, which records nothing.
type Recorder struct {
	cacheLookups *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	logouts      *prometheus.CounterVec
	retries      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_cache_lookups_total",
			Help:      "Access token lookups by result (hit, miss, expiring, bypass).",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh endpoint calls by outcome.",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Sessions ended by the client, by reason.",
		}, []string{"reason"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_auth_retries_total",
			Help:      "Requests resent after a 401, by final status class.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(r.cacheLookups, r.refreshes, r.logouts, r.retries)
	}
	return r
}

func (r *Recorder) CacheLookup(result string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) Refresh(outcome string) {
	if r == nil {
		return
	}
	r.refreshes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Logout(reason string) {
	if r == nil {
		return
	}
	r.logouts.WithLabelValues(reason).Inc()
}

func (r *Recorder) Retry(result string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(result).Inc()
}
