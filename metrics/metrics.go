package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ironforged/events"
	"ironforged/reconcile"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Metrics holds the bot's Prometheus instruments
type Metrics struct {
	registry *prometheus.Registry

	handlerRuns      *prometheus.CounterVec
	handlerDuration  *prometheus.HistogramVec
	suppressedEchoes *prometheus.CounterVec
	ingotChanges     *prometheus.CounterVec
	ingotsMoved      *prometheus.CounterVec
	membersCreated   prometheus.Counter
	statusChanges    *prometheus.CounterVec
	ticketsSold      prometheus.Counter
	eventsForwarded  *prometheus.CounterVec
}

// New registers every instrument on a fresh registry
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers every instrument on registry
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		handlerRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ironforged_member_update_handler_runs_total",
			Help: "member update handler runs by handler and outcome",
		}, []string{"handler", "outcome"}),
		handlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ironforged_member_update_handler_duration_seconds",
			Help:    "time spent in member update handlers",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler"}),
		suppressedEchoes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ironforged_member_update_suppressed_total",
			Help: "member updates dropped as echoes of the bot's own corrective actions",
		}, []string{"action"}),
		ingotChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ironforged_ingot_changes_total",
			Help: "committed ingot balance changes by change type",
		}, []string{"change_type"}),
		ingotsMoved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ironforged_ingots_moved_total",
			Help: "ingots credited or debited by direction",
		}, []string{"direction"}),
		membersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ironforged_members_created_total",
			Help: "member records created",
		}),
		statusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ironforged_member_status_changes_total",
			Help: "members activated or disabled",
		}, []string{"active"}),
		ticketsSold: factory.NewCounter(prometheus.CounterOpts{
			Name: "ironforged_raffle_tickets_sold_total",
			Help: "raffle tickets sold",
		}),
		eventsForwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ironforged_events_forwarded_total",
			Help: "domain events forwarded to NATS by type and result",
		}, []string{"event_type", "result"}),
	}
}

// Registry exposes the registry the instruments live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HandlerFinished implements reconcile.Observer
func (m *Metrics) HandlerFinished(handler string, outcome reconcile.Outcome, duration time.Duration) {
	m.handlerRuns.WithLabelValues(handler, string(outcome)).Inc()
	m.handlerDuration.WithLabelValues(handler).Observe(duration.Seconds())
}

// ChangeSuppressed implements reconcile.Observer
func (m *Metrics) ChangeSuppressed(kind reconcile.ActionKind) {
	m.suppressedEchoes.WithLabelValues(string(kind)).Inc()
}

// EventForwarded counts one attempt to publish an event to NATS
func (m *Metrics) EventForwarded(eventType events.EventType, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eventsForwarded.WithLabelValues(string(eventType), result).Inc()
}

// Subscribe counts committed domain events from bus
func (m *Metrics) Subscribe(bus *events.Bus) {
	bus.SubscribeAll(func(_ context.Context, event events.Event) {
		m.observe(event)
	})
}

func (m *Metrics) observe(event events.Event) {
	switch e := event.(type) {
	case events.MemberCreatedEvent:
		m.membersCreated.Inc()
	case events.MemberStatusChangeEvent:
		m.statusChanges.WithLabelValues(strconv.FormatBool(e.Active)).Inc()
	case events.IngotsChangeEvent:
		m.ingotChanges.WithLabelValues(string(e.ChangeType)).Inc()
		if e.Quantity >= 0 {
			m.ingotsMoved.WithLabelValues("credit").Add(float64(e.Quantity))
		} else {
			m.ingotsMoved.WithLabelValues("debit").Add(float64(-e.Quantity))
		}
	case events.RaffleTicketsPurchasedEvent:
		m.ticketsSold.Add(float64(e.Quantity))
	}
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Metrics server shutdown failed")
		}
	}()

	log.WithField("addr", addr).Info("Serving prometheus metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
