package observability

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"vulnagent/internal/handoff"
	"vulnagent/internal/wireformat"
)

// MetricsCollector records transport, extraction and handoff metrics.
// A nil collector, or one built with metrics disabled, accepts every call and
// records nothing.
type MetricsCollector struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	agentRequests metric.Int64Counter
	agentLatency  metric.Float64Histogram

	extractFields metric.Int64Counter

	handoffTransitions metric.Int64Counter
	handoffOverrides   metric.Int64Counter
	handoffsPending    metric.Int64UpDownCounter

	prometheusServer *http.Server
}

// MetricsConfig configures the metrics collector
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled" yaml:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port" yaml:"prometheus_port"`
}

// NewMetricsCollector creates a collector backed by its own Prometheus registry.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("vulnagent")

	agentRequests, err := meter.Int64Counter(
		"vulnagent.agent.requests",
		metric.WithDescription("Agent service invocations by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_requests counter: %w", err)
	}

	agentLatency, err := meter.Float64Histogram(
		"vulnagent.agent.latency",
		metric.WithDescription("Agent service round-trip latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_latency histogram: %w", err)
	}

	extractFields, err := meter.Int64Counter(
		"vulnagent.extract.fields",
		metric.WithDescription("Fields seen by the wire-format extractor, by outcome"),
		metric.WithUnit("{field}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create extract_fields counter: %w", err)
	}

	handoffTransitions, err := meter.Int64Counter(
		"vulnagent.handoff.transitions",
		metric.WithDescription("Handoff state machine transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handoff_transitions counter: %w", err)
	}

	handoffOverrides, err := meter.Int64Counter(
		"vulnagent.handoff.overrides",
		metric.WithDescription("Handoff requests without content that were treated as completed"),
		metric.WithUnit("{handoff}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handoff_overrides counter: %w", err)
	}

	handoffsPending, err := meter.Int64UpDownCounter(
		"vulnagent.handoff.pending",
		metric.WithDescription("Conversations waiting on a human decision"),
		metric.WithUnit("{conversation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handoff_pending gauge: %w", err)
	}

	collector := &MetricsCollector{
		registry:           registry,
		provider:           provider,
		agentRequests:      agentRequests,
		agentLatency:       agentLatency,
		extractFields:      extractFields,
		handoffTransitions: handoffTransitions,
		handoffOverrides:   handoffOverrides,
		handoffsPending:    handoffsPending,
	}

	if config.PrometheusPort > 0 {
		if err := collector.StartPrometheusServer(config.PrometheusPort); err != nil {
			return nil, fmt.Errorf("failed to start prometheus server: %w", err)
		}
	}

	return collector, nil
}

// Handler serves the collector's registry in the Prometheus text format.
func (m *MetricsCollector) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartPrometheusServer starts a standalone /metrics server
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	m.prometheusServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Prometheus metrics server listening on :%d", port)
		if err := m.prometheusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Prometheus server error: %v", err)
		}
	}()

	return nil
}

// Shutdown stops the metrics server and flushes the meter provider
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	if m.prometheusServer != nil {
		if err := m.prometheusServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	if m.provider != nil {
		return m.provider.Shutdown(ctx)
	}
	return nil
}

// RecordAgentRequest records one agent service call
func (m *MetricsCollector) RecordAgentRequest(ctx context.Context, kind string, outcome string, latency time.Duration) {
	if m == nil || m.agentRequests == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	)
	m.agentRequests.Add(ctx, 1, attrs)
	m.agentLatency.Record(ctx, latency.Seconds(), attrs)
}

// ObserveField implements wireformat.FieldObserver
func (m *MetricsCollector) ObserveField(field string, outcome wireformat.FieldOutcome) {
	if m == nil || m.extractFields == nil {
		return
	}
	m.extractFields.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("field", field),
		attribute.String("outcome", string(outcome)),
	))
}

// ObserveTransition implements handoff.TransitionObserver
func (m *MetricsCollector) ObserveTransition(from, to handoff.State) {
	if m == nil || m.handoffTransitions == nil {
		return
	}
	ctx := context.Background()
	m.handoffTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
	switch {
	case to == handoff.StateAwaitingHumanInput:
		m.handoffsPending.Add(ctx, 1)
	case from == handoff.StateAwaitingHumanInput:
		m.handoffsPending.Add(ctx, -1)
	}
}

// ObserveOverride implements handoff.TransitionObserver
func (m *MetricsCollector) ObserveOverride() {
	if m == nil || m.handoffOverrides == nil {
		return
	}
	m.handoffOverrides.Add(context.Background(), 1)
}
