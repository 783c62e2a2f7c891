package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	pageEventName   = "todo_web.page.request"
	pageEventDomain = "todo-web"
	pageSpanName    = "todo_web.page"
	tracerName      = "todo-web/api"
)

type pageRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	route          string
	action         string
	start          time.Time
	fetchDuration  time.Duration
	renderDuration time.Duration
	filterProvided bool
	tasksShown     int
	errorStage     string
}

// newPageRequestMetrics starts the request span. The returned context carries
// the span so upstream calls nest under it.
func newPageRequestMetrics(ctx context.Context, logger *log.Logger, route, action string) (*pageRequestMetrics, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, pageSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("todo_web.action", action),
		),
	)
	return &pageRequestMetrics{
		logger: logger,
		span:   span,
		route:  route,
		action: action,
		start:  time.Now(),
	}, spanCtx
}

func (m *pageRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *pageRequestMetrics) ObserveRender(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.renderDuration = duration
}

func (m *pageRequestMetrics) SetFilterProvided(provided bool) {
	m.filterProvided = provided
}

func (m *pageRequestMetrics) SetTasksShown(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksShown = count
}

func (m *pageRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log emits one observability event and ends the span.
func (m *pageRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	severityText, severityNumber := severityForStatus(status, err)
	attrs := map[string]any{
		"http.route":                m.route,
		"http.status_code":          status,
		"todo_web.action":           m.action,
		"todo_web.page.total_ms":    durationToMillis(time.Since(m.start)),
		"todo_web.page.filter":      m.filterProvided,
		"todo_web.page.tasks_shown": m.tasksShown,
	}
	spanAttrs := []attribute.KeyValue{
		attribute.Int("http.status_code", status),
		attribute.Bool("todo_web.page.filter", m.filterProvided),
		attribute.Int("todo_web.page.tasks_shown", m.tasksShown),
	}
	if m.fetchDuration > 0 {
		attrs["todo_web.page.fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.renderDuration > 0 {
		attrs["todo_web.page.render_ms"] = durationToMillis(m.renderDuration)
	}
	if m.errorStage != "" {
		attrs["todo_web.page.error_stage"] = m.errorStage
		spanAttrs = append(spanAttrs, attribute.String("todo_web.page.error_stage", m.errorStage))
	}
	if err != nil {
		attrs["error.message"] = err.Error()
	}

	if m.span != nil {
		eventAttrs := []attribute.KeyValue{
			attribute.String("event.name", pageEventName),
			attribute.String("event.domain", pageEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
			attribute.Float64("todo_web.page.total_ms", attrs["todo_web.page.total_ms"].(float64)),
		}
		if m.errorStage != "" {
			eventAttrs = append(eventAttrs, attribute.String("todo_web.page.error_stage", m.errorStage))
		}
		if err != nil {
			eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
		}
		m.span.SetAttributes(spanAttrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
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
	fields := log.Fields{
		"event.name":      pageEventName,
		"event.domain":    pageEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrs,
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
	m.logger.WithFields(fields).Info("observability.event")
}

// severityForStatus maps a response to OpenTelemetry log severity.
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
