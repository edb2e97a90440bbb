package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/rim/pkg/service"
	"github.com/mesh-intelligence/rim/pkg/types"
)

var tracer = otel.Tracer("github.com/mesh-intelligence/rim/pkg/rest")

var _ service.Executor = (*Client)(nil)

// Client executes network verbs over HTTP with JSON bodies. A Client may be
// shared by many services and goroutines.
type Client struct {
	opts    Options
	log     *zap.SugaredLogger
	metrics *metrics

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		opts:     opts,
		log:      opts.Logger,
		metrics:  newMetrics(opts.Registerer),
		inFlight: make(map[string]struct{}),
	}
}

// Execute performs req for svc. Validation failures are returned before any
// action is dispatched. A request for a record (or search) that already has
// a call in flight is refused: nothing is dispatched and nil is returned.
//
// Otherwise START is dispatched, the request is sent, and SUCCESS or ERROR
// follows. A transport failure is dispatched as ERROR and also returned.
func (c *Client) Execute(ctx context.Context, svc *service.Service, req service.Request) error {
	if req.Record != nil {
		if err := req.Record.ValidateAction(req.Verb); err != nil {
			return err
		}
	}
	if req.Method == "" {
		req.Method = service.DefaultMethod(req.Verb)
	}

	key := flightKey(svc, req)
	if !c.acquire(svc, req, key) {
		c.metrics.calls.WithLabelValues(svc.Name(), string(req.Verb), outcomeRefused).Inc()
		c.log.Debugw("Call already in flight", "service", svc.Name(), "verb", req.Verb, "key", key)
		return nil
	}
	defer c.release(key)

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	base := service.Action{
		Type:      types.ActionAsync,
		Verb:      req.Verb,
		Service:   svc.Name(),
		Record:    req.Record,
		SearchTag: req.SearchTag,
		NextRoute: req.NextRoute,
		CallID:    id.String(),
	}
	return c.run(ctx, svc, req, base)
}

func (c *Client) run(ctx context.Context, svc *service.Service, req service.Request, base service.Action) error {
	lifecycle := context.WithoutCancel(ctx)
	tracked := newCall(base.CallID, c.metrics)
	target := c.url(svc.Kind(), req.Verb, req.Record, req.SearchTag)
	log := c.log.With("service", svc.Name(), "verb", req.Verb, "call_id", base.CallID)

	ctx, span := tracer.Start(ctx, "rim.rest."+string(req.Verb),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rim.service", svc.Name()),
			attribute.String("rim.verb", string(req.Verb)),
			attribute.String("rim.call_id", base.CallID),
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", target),
		),
	)
	defer span.End()

	httpReq, err := c.newRequest(ctx, req, target)
	if err != nil {
		_ = tracked.fail(lifecycle)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("building %s request: %w", req.Verb, err)
	}

	start := base
	start.Status = types.StatusStart
	if err := svc.Dispatch(start); err != nil {
		_ = tracked.fail(lifecycle)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	_ = tracked.start(lifecycle)
	log.Debugw("Call started", "method", req.Method, "url", target)

	received, callErr := c.do(httpReq, req)

	labels := []string{svc.Name(), string(req.Verb)}
	if callErr != nil {
		_ = tracked.fail(lifecycle)
		c.metrics.duration.WithLabelValues(labels...).Observe(tracked.elapsed.Seconds())
		c.metrics.calls.WithLabelValues(svc.Name(), string(req.Verb), outcomeError).Inc()
		span.RecordError(callErr)
		span.SetStatus(codes.Error, callErr.Error())
		log.Warnw("Call failed", "url", target, "error", callErr)

		failed := base
		failed.Status = types.StatusError
		failed.Err = callErr
		if err := svc.Dispatch(failed); err != nil {
			return fmt.Errorf("%w (dispatching error: %v)", callErr, err)
		}
		return callErr
	}

	_ = tracked.succeed(lifecycle)
	c.metrics.duration.WithLabelValues(labels...).Observe(tracked.elapsed.Seconds())
	c.metrics.calls.WithLabelValues(svc.Name(), string(req.Verb), outcomeSuccess).Inc()
	log.Debugw("Call succeeded", "url", target, "elapsed", tracked.elapsed)

	done := base
	done.Status = types.StatusSuccess
	done.Received = received
	if err := svc.Dispatch(done); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warnw("Response rejected", "url", target, "error", err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) newRequest(ctx context.Context, req service.Request, target string) (*http.Request, error) {
	var body io.Reader
	if req.Method != http.MethodGet && req.Record != nil {
		if payload := req.Record.FetchPayload(req.Verb); payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encoding payload: %w", err)
			}
			body = bytes.NewReader(raw)
		}
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.opts.ApplyHeaders != nil {
		if h := c.opts.ApplyHeaders(req.Verb, httpReq.Header); h != nil {
			httpReq.Header = h
		}
	}
	return httpReq, nil
}

// do sends the request and decodes the response. DELETE responses and empty
// bodies decode to nil.
func (c *Client) do(httpReq *http.Request, req service.Request) (any, error) {
	resp, err := c.opts.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if c.opts.PreProcessResponse != nil {
		processed, err := c.opts.PreProcessResponse(resp)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		if processed == nil {
			resp.Body.Close()
			return nil, errNoResponse
		}
		if processed != resp {
			resp.Body.Close()
		}
		resp = processed
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CallError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}
	if req.Verb == types.VerbDelete || len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var received any
	if err := json.Unmarshal(raw, &received); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return received, nil
}

func flightKey(svc *service.Service, req service.Request) string {
	if req.Record == nil {
		return svc.Name() + "?" + string(req.Verb) + "=" + req.SearchTag
	}
	return svc.Name() + "/" + req.Record.Kind().Name + "/" + req.Record.Identity()
}

// acquire claims key for a new call. It fails when the client already runs
// a call for key or the service reports one in flight.
func (c *Client) acquire(svc *service.Service, req service.Request, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[key]; busy {
		return false
	}
	if req.Verb == types.VerbSearch && req.Record == nil {
		if svc.IsSearching() {
			return false
		}
	} else if svc.IsFetching(req.Record) {
		return false
	}
	c.inFlight[key] = struct{}{}
	return true
}

func (c *Client) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
}
