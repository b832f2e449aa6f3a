package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/metrics"
	"github.com/storefront-platform/storefront/pkg/resilience"
	"github.com/storefront-platform/storefront/pkg/tracing"
)

// Backend service names, used for breakers, metrics and error reporting
const (
	ServiceCommerce  = "commerce"
	ServiceCatalog   = "catalog"
	ServiceInventory = "inventory"
)

// DefaultTimeout bounds each backend call
const DefaultTimeout = 30 * time.Second

const maxErrorDetail = 512

// Config holds backend base URLs and transport settings
type Config struct {
	CommerceServiceURL  string
	CatalogServiceURL   string
	InventoryServiceURL string
	Timeout             time.Duration

	// Breaker is the template for the per-backend circuit breakers; the
	// name is replaced with the backend name. Nil uses the defaults.
	Breaker *resilience.CircuitBreakerConfig
}

// ServiceClients holds the HTTP clients for the commerce, catalog and inventory APIs
type ServiceClients struct {
	config     *Config
	httpClient *http.Client
	breakers   map[string]*resilience.CircuitBreaker
	registry   *resilience.CircuitBreakerRegistry
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// Option configures ServiceClients
type Option func(*ServiceClients)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *ServiceClients) { c.httpClient = hc }
}

// WithMetrics records remote call and breaker metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ServiceClients) { c.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(c *ServiceClients) { c.logger = l }
}

// WithBreakerRegistry registers the backend breakers in r so their state
// can be reported by readiness checks.
func WithBreakerRegistry(r *resilience.CircuitBreakerRegistry) Option {
	return func(c *ServiceClients) { c.registry = r }
}

// NewServiceClients creates a new ServiceClients instance
func NewServiceClients(config *Config, opts ...Option) *ServiceClients {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &ServiceClients{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		breakers:   make(map[string]*resilience.CircuitBreaker),
		logger:     logging.FromSlog(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = resilience.NewCircuitBreakerRegistry(c.logger.Logger)
	}

	for _, service := range []string{ServiceCommerce, ServiceCatalog, ServiceInventory} {
		c.breakers[service] = c.registry.GetWithConfig(c.breakerConfig(service))
	}

	return c
}

func (c *ServiceClients) breakerConfig(service string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(service)
	if c.config.Breaker != nil {
		copied := *c.config.Breaker
		cfg = &copied
		cfg.Name = service
	}

	// A backend that answers, even with a refusal, is healthy.
	cfg.IsFailure = func(err error) bool {
		return domain.KindOf(err) == domain.KindNetworkUnavailable
	}
	cfg.OnStateChange = func(name string, _, to gobreaker.State) {
		c.metrics.SetCircuitBreakerState(name, int(to))
		if to == gobreaker.StateOpen {
			c.metrics.RecordCircuitBreakerTrip(name)
		}
	}
	return cfg
}

// Breakers returns the registry holding the backend breakers
func (c *ServiceClients) Breakers() *resilience.CircuitBreakerRegistry {
	return c.registry
}

// call runs one backend request through the service's breaker and returns
// a *domain.RemoteError on any failure.
func (c *ServiceClients) call(ctx context.Context, service, operation, method, url string, body, result interface{}) error {
	ctx, span := tracing.Tracer().Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.HTTPClientSpanAttributes(service, method, url)...),
	)
	defer span.End()

	start := time.Now()
	var status int

	_, err := c.breakers[service].Execute(ctx, func() (interface{}, error) {
		var reqErr error
		status, reqErr = c.doRequest(ctx, method, url, body, result)
		if reqErr != nil {
			return nil, classify(ctx, service, operation, status, reqErr)
		}
		return nil, nil
	})

	if errors.Is(err, resilience.ErrCircuitOpen) {
		err = &domain.RemoteError{
			Kind:      domain.KindNetworkUnavailable,
			Service:   service,
			Operation: operation,
			Detail:    "circuit breaker open",
			Err:       err,
		}
	}

	duration := time.Since(start)
	outcome := "success"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	c.metrics.RecordRemoteCall(service, outcome, duration)
	c.logger.RemoteCall(ctx, service, method, url, status, duration, err)
	tracing.RecordResult(span, err)

	return err
}

// httpStatusError carries a non-2xx response out of doRequest
type httpStatusError struct {
	status int
	body   []byte
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.status)
}

// decodeError marks a 2xx response whose body could not be read
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "invalid response body: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// doRequest performs an HTTP request and decodes the response. It returns
// the response status, or 0 when no response was received.
func (c *ServiceClients) doRequest(ctx context.Context, method, url string, body interface{}, result interface{}) (int, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth := AuthorizationFromContext(ctx); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		return resp.StatusCode, &httpStatusError{status: resp.StatusCode, body: respBody}
	}

	if result != nil {
		if len(respBody) == 0 {
			return resp.StatusCode, &decodeError{err: errors.New("empty body")}
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.StatusCode, &decodeError{err: err}
		}
	}

	return resp.StatusCode, nil
}

// classify maps a request failure onto the caller-facing error kinds
func classify(ctx context.Context, service, operation string, status int, err error) *domain.RemoteError {
	remote := &domain.RemoteError{
		Service:    service,
		Operation:  operation,
		StatusCode: status,
		Err:        err,
	}

	var statusErr *httpStatusError
	var decErr *decodeError
	var netErr net.Error

	switch {
	case errors.As(err, &statusErr):
		remote.Err = nil
		remote.Detail = errorDetail(statusErr.body)
		switch {
		case statusErr.status == http.StatusUnauthorized, statusErr.status == http.StatusForbidden:
			remote.Kind = domain.KindUnauthorized
		case statusErr.status == http.StatusTooManyRequests, statusErr.status >= 500:
			remote.Kind = domain.KindNetworkUnavailable
		default:
			remote.Kind = domain.KindRejected
		}
	case errors.As(err, &decErr):
		remote.Kind = domain.KindInvalidResponse
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		remote.Kind = domain.KindCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		remote.Kind = domain.KindNetworkUnavailable
		remote.Detail = "backend unreachable or timed out"
	default:
		remote.Kind = domain.KindNetworkUnavailable
	}

	return remote
}

// errorDetail extracts the server message from an error body
func errorDetail(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		for _, s := range []string{payload.Message, payload.Detail, payload.Error} {
			if s != "" {
				return s
			}
		}
	}

	detail := strings.TrimSpace(string(body))
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail]
	}
	return detail
}
