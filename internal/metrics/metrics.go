// Package metrics defines the Prometheus counters for the auth core.
//
// A nil *Metrics is valid and records nothing, so services and tests can run
// without a registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "saocontacts"

// Login results.
const (
	LoginSuccess = "success"
	LoginInvalid = "invalid"
	LoginExpired = "expired"
	LoginLocked  = "locked"
	LoginError   = "error"
)

type Metrics struct {
	reg *prometheus.Registry

	// Registrations counts accepted registrations.
	Registrations prometheus.Counter
	// Verifications counts confirmed email addresses.
	Verifications prometheus.Counter
	// Logins counts PIN checks by result: success, invalid, expired, locked, error.
	Logins *prometheus.CounterVec
	// Lockouts counts transitions into the locked state.
	Lockouts prometheus.Counter
	// PINsIssued counts login PINs handed out.
	PINsIssued prometheus.Counter
	// PasswordResets counts completed password resets.
	PasswordResets prometheus.Counter
	// Deliveries counts delivery attempts by kind and outcome ("ok"/"failed").
	Deliveries *prometheus.CounterVec
	// Requests counts HTTP requests by method, route template and status.
	Requests *prometheus.CounterVec
	// RequestDuration observes HTTP handler latency by route template.
	RequestDuration *prometheus.HistogramVec
}

// New registers every metric on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total number of accounts registered.",
		}),
		Verifications: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_verifications_total",
			Help:      "Total number of email addresses verified.",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Total number of PIN login attempts, by result.",
		}, []string{"result"}),
		Lockouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_total",
			Help:      "Total number of accounts locked after repeated failures.",
		}),
		PINsIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pins_issued_total",
			Help:      "Total number of login PINs issued.",
		}),
		PasswordResets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_resets_total",
			Help:      "Total number of completed password resets.",
		}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of delivery attempts, by message kind and outcome.",
		}, []string{"kind", "outcome"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP request handling.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Registered() {
	if m != nil {
		m.Registrations.Inc()
	}
}

func (m *Metrics) Verified() {
	if m != nil {
		m.Verifications.Inc()
	}
}

func (m *Metrics) Login(result string) {
	if m != nil {
		m.Logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Locked() {
	if m != nil {
		m.Lockouts.Inc()
	}
}

func (m *Metrics) PINIssued() {
	if m != nil {
		m.PINsIssued.Inc()
	}
}

func (m *Metrics) PasswordReset() {
	if m != nil {
		m.PasswordResets.Inc()
	}
}

func (m *Metrics) Delivered(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.Deliveries.WithLabelValues(kind, outcome).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
