package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var eventsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sosyal_events_created_total",
	Help: "Number of events created through the API.",
})

const (
	eventsRoute       = "/api/events"
	eventsSpanName    = "events.list"
	eventsEventName   = "events.request"
	eventsEventDomain = "sosyal"

	tracerName = "sosyal-api/api"
)

// eventRequestMetrics collects per-request timings for the event listing
// endpoint and emits them once, as a structured log entry plus an otel span.
type eventRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	authDuration   time.Duration
	fetchDuration  time.Duration
	queryDuration  time.Duration
	encodeDuration time.Duration

	searchProvided bool
	eventsReturned int
	errorStage     string
}

func newEventRequestMetrics(ctx context.Context, logger *log.Logger) (*eventRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, eventsSpanName)
	return &eventRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *eventRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *eventRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *eventRequestMetrics) ObserveQuery(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.queryDuration = duration
}

func (m *eventRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *eventRequestMetrics) SetSearchProvided(provided bool) {
	m.searchProvided = provided
}

func (m *eventRequestMetrics) SetEventsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.eventsReturned = count
}

func (m *eventRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finalizes the request: it records the span attributes and status, emits
// the observability event on the span, and writes one structured log entry.
func (m *eventRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	totalMs := durationToMillis(time.Since(m.start))
	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", eventsRoute),
		attribute.Int("http.status_code", status),
		attribute.Float64("sosyal.events.total_ms", totalMs),
		attribute.Bool("sosyal.events.search_provided", m.searchProvided),
		attribute.Int("sosyal.events.events_returned", m.eventsReturned),
	}
	if m.authDuration > 0 {
		attrs = append(attrs, attribute.Float64("sosyal.events.auth_ms", durationToMillis(m.authDuration)))
	}
	if m.fetchDuration > 0 {
		attrs = append(attrs, attribute.Float64("sosyal.events.fetch_ms", durationToMillis(m.fetchDuration)))
	}
	if m.queryDuration > 0 {
		attrs = append(attrs, attribute.Float64("sosyal.events.query_ms", durationToMillis(m.queryDuration)))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("sosyal.events.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("sosyal.events.error_stage", m.errorStage))
	}

	if m.span != nil {
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", eventsEventName),
			attribute.String("event.domain", eventsEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		if err != nil {
			eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
		}
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		m.span.SetAttributes(attrs...)
		if severityText == "ERROR" {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}

	fields := log.Fields{
		"event.name":      eventsEventName,
		"event.domain":    eventsEventDomain,
		"attributes":      attrMap,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if m.span != nil {
		sc := m.span.SpanContext()
		if sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		if sc.HasSpanID() {
			fields["span_id"] = sc.SpanID().String()
		}
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error("observability.event")
	case "WARN":
		entry.Warn("observability.event")
	default:
		entry.Info("observability.event")
	}
}

// severityForStatus maps an HTTP status and error into OTLP log severity.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
