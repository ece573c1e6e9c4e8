// Package dispatch provides the service dispatcher: the single runtime
// object through which all remote-API calls are made.
//
// Resolution is a two-step lookup with no reflection involved: explicitly
// registered overrides always win, then the operation registry. A resolved
// operation gets the uniform cross-cutting treatment - read-through
// caching, rate limiting, bounded-exponential retry, conversion and
// contextual error wrapping.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/trove/internal/cachemanager"
	"github.com/zjrosen/trove/internal/convert"
	"github.com/zjrosen/trove/internal/log"
	"github.com/zjrosen/trove/internal/operation"
	"github.com/zjrosen/trove/internal/ratelimit"
	"github.com/zjrosen/trove/internal/tracing"
	"github.com/zjrosen/trove/internal/transport"
)

// Override is a hand-written method registered on the dispatcher itself:
// the escape hatch for operations too irregular to express declaratively.
// It receives the dispatcher so it can compose registered operations.
type Override func(ctx context.Context, d *Dispatcher, params transport.Params) (any, error)

// RetryPolicy bounds the exponential backoff applied to transient failures.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when the config leaves retry settings empty.
var DefaultRetryPolicy = RetryPolicy{
	MaxTries:        4,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     15 * time.Second,
}

// Config holds the dispatcher's collaborators and policies.
type Config struct {
	Transport  transport.Client
	Operations *operation.Registry
	Converters *convert.Registry
	Cache      cachemanager.CacheManager[any]
	Limiter    ratelimit.Limiter

	// CacheEnabled is the process-wide caching switch.
	CacheEnabled bool
	// CacheTTL is how long cached reads stay valid.
	CacheTTL time.Duration
	// CallTimeout bounds each individual transport invocation.
	CallTimeout time.Duration

	Retry RetryPolicy

	// Tracer is optional; a no-op tracer is used when nil.
	Tracer trace.Tracer
}

// Dispatcher resolves and executes operations.
type Dispatcher struct {
	transport  transport.Client
	ops        *operation.Registry
	converters *convert.Registry
	cache      cachemanager.CacheManager[any]
	limiter    ratelimit.Limiter

	cacheEnabled bool
	cacheTTL     time.Duration
	callTimeout  time.Duration
	retry        RetryPolicy
	tracer       trace.Tracer

	mu        sync.RWMutex
	overrides map[string]Override
}

// New creates a dispatcher. Transport, Operations and Converters are
// required; Cache and Limiter fall back to no-op implementations.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("dispatcher requires a transport client")
	}
	if cfg.Operations == nil {
		return nil, fmt.Errorf("dispatcher requires an operation registry")
	}
	if cfg.Converters == nil {
		return nil, fmt.Errorf("dispatcher requires a converter registry")
	}
	if cfg.Cache == nil {
		cfg.Cache = cachemanager.NewInMemoryCacheManager[any]("dispatch", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval)
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.Nop{}
	}
	if cfg.Retry.MaxTries == 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cachemanager.DefaultExpiration
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("dispatch")
	}

	return &Dispatcher{
		transport:    cfg.Transport,
		ops:          cfg.Operations,
		converters:   cfg.Converters,
		cache:        cfg.Cache,
		limiter:      cfg.Limiter,
		cacheEnabled: cfg.CacheEnabled,
		cacheTTL:     cfg.CacheTTL,
		callTimeout:  cfg.CallTimeout,
		retry:        cfg.Retry,
		tracer:       cfg.Tracer,
		overrides:    make(map[string]Override),
	}, nil
}

// RegisterOverride installs a hand-written method. Overrides always take
// precedence over registry-declared operations of the same name.
func (d *Dispatcher) RegisterOverride(name string, fn Override) error {
	if fn == nil {
		return fmt.Errorf("override %q is nil", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.overrides[name]; exists {
		return fmt.Errorf("override %q already registered", name)
	}
	d.overrides[name] = fn
	log.Debug(log.CatDispatch, "registered override", "name", name)
	return nil
}

// Call resolves method and executes it with the full cross-cutting stack.
func (d *Dispatcher) Call(ctx context.Context, method string, params transport.Params) (any, error) {
	d.mu.RLock()
	override, ok := d.overrides[method]
	d.mu.RUnlock()
	if ok {
		log.Debug(log.CatDispatch, "dispatching to override", "method", method)
		return override(ctx, d, params)
	}

	op, ok := d.ops.Get(method)
	if !ok {
		return nil, &UnknownOperationError{Method: method, Known: d.ops.Names()}
	}

	ctx, span := d.tracer.Start(ctx, tracing.SpanPrefixOp+method, trace.WithAttributes(
		attribute.String(tracing.AttrOperationName, method),
		attribute.String(tracing.AttrOperationEntity, op.Entity),
		attribute.Bool(tracing.AttrOperationWrite, op.IsWrite()),
	))
	defer span.End()

	raw, err := d.fetch(ctx, span, op, params)
	if err != nil {
		span.RecordError(err)
		return nil, &OperationError{Op: op, Err: err}
	}

	result, err := d.convertResult(op, raw)
	if err != nil {
		span.RecordError(err)
		return nil, &OperationError{Op: op, Err: err}
	}
	return result, nil
}

// fetch produces the raw result, going through the cache for cacheable
// reads and invalidating declared key prefixes after successful writes.
func (d *Dispatcher) fetch(ctx context.Context, span trace.Span, op *operation.Operation, params transport.Params) (any, error) {
	if op.ShouldCache() && d.cacheEnabled {
		key := op.CacheKey(params)
		if cached, found := d.cache.Get(ctx, key); found {
			span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, true))
			return cached, nil
		}
		span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, false))

		raw, err := d.invoke(ctx, op, params)
		if err != nil {
			return nil, err
		}
		d.cache.Set(ctx, key, raw, d.cacheTTL)
		return raw, nil
	}

	raw, err := d.invoke(ctx, op, params)
	if err != nil {
		return nil, err
	}

	if op.IsWrite() && d.cacheEnabled {
		for _, prefix := range op.Spec.InvalidatesPrefix {
			d.cache.DeletePrefix(ctx, expandPlaceholders(prefix, params))
		}
	}
	return raw, nil
}

// invoke performs the transport call, retrying transient failures with
// bounded exponential backoff unless the operation opted out.
func (d *Dispatcher) invoke(ctx context.Context, op *operation.Operation, params transport.Params) (any, error) {
	if !op.ShouldRetry() {
		return d.invokeOnce(ctx, op, params)
	}

	attempts := 0
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = d.retry.InitialInterval
	expo.MaxInterval = d.retry.MaxInterval

	result, err := backoff.Retry(ctx, func() (any, error) {
		attempts++
		raw, err := d.invokeOnce(ctx, op, params)
		if err != nil && !transport.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return raw, err
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(d.retry.MaxTries))

	if attempts > 1 {
		log.Debug(log.CatDispatch, "retried operation", "method", op.Name, "attempts", attempts, "success", err == nil)
	}
	return result, err
}

// invokeOnce performs exactly one rate-limited, timeout-bounded call.
func (d *Dispatcher) invokeOnce(ctx context.Context, op *operation.Operation, params transport.Params) (any, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx := ctx
	if d.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
	}

	return d.transport.Invoke(callCtx, op.Spec.TransportMethod, params)
}

// convertResult applies the declared converter to a single result, or to
// each element of a list result.
func (d *Dispatcher) convertResult(op *operation.Operation, raw any) (any, error) {
	if op.Spec.Converter == "" || raw == nil {
		return raw, nil
	}

	fn, err := d.converters.Get(op.Spec.Converter)
	if err != nil {
		return nil, err
	}

	if list, ok := raw.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			converted, err := fn(item)
			if err != nil {
				return nil, fmt.Errorf("convert element %d: %w", i, err)
			}
			out[i] = converted
		}
		return out, nil
	}

	converted, err := fn(raw)
	if err != nil {
		return nil, fmt.Errorf("convert result: %w", err)
	}
	return converted, nil
}

// expandPlaceholders substitutes {param} markers in a cache-key prefix.
func expandPlaceholders(prefix string, params transport.Params) string {
	for name, value := range params {
		prefix = strings.ReplaceAll(prefix, "{"+name+"}", fmt.Sprintf("%v", value))
	}
	return prefix
}
