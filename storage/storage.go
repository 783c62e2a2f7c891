package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"todo-web/domain"
)

const (
	todosPath = "/api/v1/todos"

	tracerName = "todo-web/storage"

	maxErrorBody = 4 << 10
)

// Options configures the todo API client.
type Options struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds each request. Zero leaves the transport defaults in place.
	Timeout time.Duration
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration

	HTTPClient *http.Client
	Registerer prometheus.Registerer
	Logger     *log.Logger
}

// Client talks to the todo REST API.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	tracer   trace.Tracer
	requests *prometheus.CounterVec
}

// New creates a Client for the API rooted at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", opts.BaseURL)
	}

	hc := &http.Client{}
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		hc = &copied
	}
	if opts.Token != "" {
		hc.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"}),
			Base:   hc.Transport,
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openTimeout := opts.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "todo-api",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "todo_web_upstream_requests_total",
		Help: "Requests sent to the todo API by operation and outcome.",
	}, []string{"op", "outcome"})
	if opts.Registerer != nil {
		if err := opts.Registerer.Register(requests); err != nil {
			return nil, fmt.Errorf("register upstream metrics: %w", err)
		}
	}

	return &Client{
		baseURL:  base,
		http:     hc,
		timeout:  opts.Timeout,
		breaker:  breaker,
		tracer:   otel.Tracer(tracerName),
		requests: requests,
	}, nil
}

// ListTasks fetches the full task collection.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, "list", http.MethodGet, todosPath, todosPath, nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// CreateTask posts a new task.
func (c *Client) CreateTask(ctx context.Context, in domain.TaskInput) error {
	return c.do(ctx, "create", http.MethodPost, todosPath, todosPath, in, nil)
}

// UpdateTask replaces the fields of task id.
func (c *Client) UpdateTask(ctx context.Context, id int64, in domain.TaskInput) error {
	return c.do(ctx, "update", http.MethodPut, todosPath+"/{id}", taskPath(id), in, nil)
}

// ToggleTask flips the completion flag of task id.
func (c *Client) ToggleTask(ctx context.Context, id int64) error {
	return c.do(ctx, "toggle", http.MethodPatch, todosPath+"/{id}/toggle", taskPath(id)+"/toggle", nil, nil)
}

// DeleteTask removes task id.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", http.MethodDelete, todosPath+"/{id}", taskPath(id), nil, nil)
}

func taskPath(id int64) string {
	return todosPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op, method, route, path string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "upstream."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		),
	)
	defer func() {
		c.requests.WithLabelValues(op, outcome(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var payload []byte
	if body != nil {
		payload, err = sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, span, method, path, payload, out)
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, span trace.Span, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
