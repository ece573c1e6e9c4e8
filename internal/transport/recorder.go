package transport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Call records one Invoke against a Recorder.
type Call struct {
	Method string
	Params Params
}

// Handler produces the raw result for a recorded method.
type Handler func(params Params) (any, error)

// Recorder is an in-memory Client for tests and offline runs. It records
// every invocation and serves canned handlers per method.
type Recorder struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call

	// gate, when set, is closed by the test to release blocked invocations.
	gate    chan struct{}
	started chan string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{handlers: make(map[string]Handler)}
}

// Handle registers a handler for a method name, replacing any previous one.
func (r *Recorder) Handle(method string, h Handler) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = h
	return r
}

// HandleValue registers a handler returning a fixed value.
func (r *Recorder) HandleValue(method string, value any) *Recorder {
	return r.Handle(method, func(Params) (any, error) {
		return value, nil
	})
}

// Block makes every invocation announce itself on the returned started
// channel and then wait until Release is called. Used to prove concurrency
// and ordering properties.
func (r *Recorder) Block() <-chan string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	r.started = make(chan string, 64)
	return r.started
}

// Release unblocks all invocations currently waiting on the gate.
func (r *Recorder) Release() {
	r.mu.Lock()
	gate := r.gate
	r.gate = nil
	r.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// Invoke implements Client.
func (r *Recorder) Invoke(ctx context.Context, method string, params Params) (any, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Method: method, Params: params})
	handler, ok := r.handlers[method]
	gate := r.gate
	started := r.started
	r.mu.Unlock()

	if started != nil {
		started <- method
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !ok {
		known := r.Methods()
		return nil, &Error{
			Method: method,
			Err:    fmt.Errorf("%w: %q (known: %s)", ErrUnknownMethod, method, strings.Join(known, ", ")),
		}
	}
	return handler(params)
}

// Methods returns the sorted registered method names.
func (r *Recorder) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallCount returns how many times the method was invoked.
func (r *Recorder) CallCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, c := range r.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Calls returns a copy of all recorded calls in invocation order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

var _ Client = (*Recorder)(nil)
