// Package metrics define las métricas Prometheus del servicio. Todas las
// funciones Record* son no-op si Register no fue llamado.
package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "registrar"

var (
	once    sync.Once
	initErr error

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	// Dominio
	authEvents       *prometheus.CounterVec // event: login_failed|otp_issued|otp_failed|login_success|logout
	registrations    *prometheus.CounterVec // op: register|drop, result: ok|course_full|already_registered|not_found|error
	auditAppends     *prometheus.CounterVec // action
	integrityChecks  *prometheus.CounterVec // kind: audit|registration, result: valid|invalid
	emailSends       *prometheus.CounterVec // kind: otp|confirmation, result: ok|error
	sessionsSwept    prometheus.Counter
	rateLimitRejects *prometheus.CounterVec // bucket
)

type Config struct {
	// Registry nil => prometheus.DefaultRegisterer + DefaultGatherer.
	Registry *prometheus.Registry
	// Pool opcional; expone gauges de conexiones.
	Pool func() *pgxpool.Pool
}

// Register crea y registra las métricas. Devuelve el handler de /metrics.
func Register(cfg Config) (http.Handler, error) {
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gather prometheus.Gatherer = prometheus.DefaultGatherer
	if cfg.Registry != nil {
		reg, gather = cfg.Registry, cfg.Registry
	}

	once.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})
		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})
		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "http_inflight_requests",
			Help: "Requests en vuelo por método",
		}, []string{"method"})

		authEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "auth_events_total",
			Help: "Eventos del flujo de login MFA",
		}, []string{"event"})
		registrations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "registrations_total",
			Help: "Inscripciones y bajas por resultado",
		}, []string{"op", "result"})
		auditAppends = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "audit_entries_total",
			Help: "Entradas de auditoría escritas por acción",
		}, []string{"action"})
		integrityChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "integrity_checks_total",
			Help: "Verificaciones de integridad por tipo y resultado",
		}, []string{"kind", "result"})
		emailSends = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "email_sends_total",
			Help: "Correos enviados por tipo y resultado",
		}, []string{"kind", "result"})
		sessionsSwept = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_swept_total",
			Help: "Sesiones vencidas eliminadas por el sweeper",
		})
		rateLimitRejects = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rate_limit_rejects_total",
			Help: "Requests rechazadas por rate limit",
		}, []string{"bucket"})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, httpInflight,
			authEvents, registrations, auditAppends, integrityChecks,
			emailSends, sessionsSwept, rateLimitRejects,
		} {
			if err := registerCollector(reg, c); err != nil {
				initErr = err
				return
			}
		}
		if cfg.Registry != nil {
			_ = registerCollector(reg, collectors.NewGoCollector())
			_ = registerCollector(reg, collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}
	})
	if initErr != nil {
		return nil, initErr
	}

	if cfg.Pool != nil {
		if err := registerCollector(reg, newPoolCollector(cfg.Pool)); err != nil {
			return nil, err
		}
	}
	return promhttp.HandlerFor(gather, promhttp.HandlerOpts{}), nil
}

// registerCollector registra ignorando duplicados.
func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// ---- HTTP ----

// HTTPStart sólo conoce el método: el patrón de ruta se resuelve después
// del routing.
func HTTPStart(method string) {
	if httpInflight != nil {
		httpInflight.WithLabelValues(method).Inc()
	}
}

func HTTPDone(method, path, status string, d time.Duration) {
	if httpInflight == nil {
		return
	}
	httpInflight.WithLabelValues(method).Dec()
	httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ---- Dominio ----

func RecordAuthEvent(event string) {
	if authEvents != nil {
		authEvents.WithLabelValues(event).Inc()
	}
}

func RecordRegistration(op, result string) {
	if registrations != nil {
		registrations.WithLabelValues(op, result).Inc()
	}
}

func RecordAudit(action string) {
	if auditAppends != nil {
		auditAppends.WithLabelValues(action).Inc()
	}
}

func RecordIntegrityCheck(kind string, valid bool) {
	if integrityChecks == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "invalid"
	}
	integrityChecks.WithLabelValues(kind, result).Inc()
}

func RecordEmail(kind string, err error) {
	if emailSends == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	emailSends.WithLabelValues(kind, result).Inc()
}

func RecordSessionsSwept(n int) {
	if sessionsSwept != nil && n > 0 {
		sessionsSwept.Add(float64(n))
	}
}

func RecordRateLimitReject(bucket string) {
	if rateLimitRejects != nil {
		rateLimitRejects.WithLabelValues(bucket).Inc()
	}
}

// ---- pgxpool ----

type poolCollector struct {
	pool         func() *pgxpool.Pool
	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newPoolCollector(pool func() *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc(namespace+"_pgxpool_acquired", "Conexiones adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc(namespace+"_pgxpool_idle", "Conexiones inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc(namespace+"_pgxpool_total", "Conexiones totales", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	p := c.pool()
	if p == nil {
		return
	}
	stat := p.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
}
