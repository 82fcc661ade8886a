package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Logger writes the moderation audit trail.
	Logger = zap.NewNop()

	registerOnce sync.Once

	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ngmod_actions_total",
			Help: "Moderation actions taken, by kind",
		},
		[]string{"action"},
	)

	eventDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ngmod_event_duration_seconds",
			Help:    "Time spent evaluating inbound events",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	trackedKeys = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ngmod_tracked_keys",
			Help: "Users currently held by in-memory activity trackers",
		},
		[]string{"tracker"},
	)

	lostEscalations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ngmod_lost_escalations_total",
			Help: "Escalations whose platform action failed after the warnings were reset",
		},
	)
)

// Server exposes metrics over HTTP and owns the tracer provider.
type Server struct {
	addr     string
	srv      *http.Server
	provider *trace.TracerProvider
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

func (s *Server) Start(ctx context.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	Logger = logger

	registerOnce.Do(func() {
		prometheus.MustRegister(actionsTotal, eventDuration, trackedKeys, lostEscalations)
	})

	s.provider = trace.NewTracerProvider()
	otel.SetTracerProvider(s.provider)

	if s.addr == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithField("object", "observability").WithField("error", err.Error()).Error("metrics server failed")
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	var stopErr error
	if s.srv != nil {
		stopErr = errors.Join(stopErr, s.srv.Shutdown(ctx))
	}
	if s.provider != nil {
		stopErr = errors.Join(stopErr, s.provider.Shutdown(ctx))
	}
	_ = Logger.Sync()
	return stopErr
}

func RecordAction(action string) {
	actionsTotal.WithLabelValues(action).Inc()
}

func RecordLostEscalation() {
	lostEscalations.Inc()
}

func SetTracked(tracker string, n int) {
	trackedKeys.WithLabelValues(tracker).Set(float64(n))
}

// StartEvent returns a function that records how long the event took.
func StartEvent(kind string) func() {
	timer := prometheus.NewTimer(eventDuration.WithLabelValues(kind))
	return func() {
		timer.ObserveDuration()
	}
}

// Audit writes one audit record and returns its id.
func Audit(action string, chatID, userID int64, fields ...zap.Field) string {
	id := uuid.New()
	Logger.Info("moderation action", append([]zap.Field{
		zap.String("audit_id", id),
		zap.String("action", action),
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
	}, fields...)...)
	return id
}
