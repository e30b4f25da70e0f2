// Package health serves liveness and readiness probes.
//
// Every registered probe runs on its own ticker. A probe flips to unhealthy
// only after FailureThreshold consecutive failures and back after
// SuccessThreshold consecutive successes, so a single slow ping does not pull
// the service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc returns nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

// Kind selects which endpoint a probe reports to.
type Kind uint8

const (
	// Liveness probes gate /livez. A failing liveness probe means restart.
	Liveness Kind = iota
	// Readiness probes gate /readyz. A failing readiness probe means stop routing.
	Readiness
)

func (k Kind) String() string {
	if k == Liveness {
		return "liveness"
	}
	return "readiness"
}

// Defaults applied to every probe unless overridden by an Option.
const (
	DefaultTimeout          = time.Second
	DefaultFailureThreshold = 3
	DefaultSuccessThreshold = 1
)

// Option tunes a single probe.
type Option func(*probe)

// WithTimeout bounds one execution of the check.
func WithTimeout(d time.Duration) Option {
	return func(p *probe) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithThresholds overrides the consecutive failure and success counts.
func WithThresholds(failures, successes int) Option {
	return func(p *probe) {
		if failures > 0 {
			p.failureThreshold = failures
		}
		if successes > 0 {
			p.successThreshold = successes
		}
	}
}

// probe is one registered check. run is only ever called from the probe's
// own goroutine (or directly from tests), so the counters are unguarded;
// healthy and lastErr are read by handlers and therefore atomic.
type probe struct {
	name             string
	kind             Kind
	check            CheckFunc
	timeout          time.Duration
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= p.failureThreshold {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	p.oks++
	if p.oks >= p.successThreshold {
		p.healthy.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if e := p.lastErr.Load(); e != nil && *e != nil {
		return (*e).Error(), true
	}
	return "check is unhealthy", true
}

// Health owns the probes of one process.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
	cancel context.CancelFunc
}

// New returns a Health that is not ready. Call SetReady(true) once startup
// has finished.
func New() *Health {
	return &Health{}
}

// Add registers a probe. Probes start healthy and are only re-evaluated
// after Start.
func (h *Health) Add(kind Kind, name string, check CheckFunc, opts ...Option) {
	p := &probe{
		name:             name,
		kind:             kind,
		check:            check,
		timeout:          DefaultTimeout,
		failureThreshold: DefaultFailureThreshold,
		successThreshold: DefaultSuccessThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	p.healthy.Store(true)

	h.mu.Lock()
	h.probes = append(h.probes, p)
	h.mu.Unlock()
}

// AddLivenessCheck is shorthand for Add(Liveness, ...).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.Add(Liveness, name, check, WithTimeout(timeout))
}

// AddReadinessCheck is shorthand for Add(Readiness, ...).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.Add(Readiness, name, check, WithTimeout(timeout))
}

// Start runs every registered probe immediately and then every interval
// until ctx is done or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = cancel
	probes := append([]*probe(nil), h.probes...)
	h.mu.Unlock()

	for _, p := range probes {
		go loop(ctx, p, interval)
	}
}

func loop(ctx context.Context, p *probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set it to false at the start of
// a graceful shutdown so the balancer drains traffic first.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and all readiness probes pass.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	return len(h.failures(Readiness)) == 0
}

// Status is the JSON body of both endpoints.
type Status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Report returns the current state of the probes of the given kind.
func (h *Health) Report(kind Kind) Status {
	failures := h.failures(kind)
	if kind == Readiness && !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	if len(failures) == 0 {
		return Status{Status: "ok"}
	}
	return Status{Status: "unhealthy", Checks: failures}
}

// Names lists the registered probes of a kind in sorted order.
func (h *Health) Names(kind Kind) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var names []string
	for _, p := range h.probes {
		if p.kind == kind {
			names = append(names, p.name)
		}
	}
	sort.Strings(names)
	return names
}

func (h *Health) failures(kind Kind) map[string]string {
	h.mu.RLock()
	probes := append([]*probe(nil), h.probes...)
	h.mu.RUnlock()

	out := make(map[string]string)
	for _, p := range probes {
		if p.kind != kind {
			continue
		}
		if msg, failed := p.failure(); failed {
			out[p.name] = msg
		}
	}
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.Report(Liveness))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.Report(Readiness))
}

func writeStatus(w http.ResponseWriter, s Status) {
	w.Header().Set("Content-Type", "application/json")
	code := http.StatusOK
	if s.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	// Header is already sent; an encode error only means the client left.
	_ = json.NewEncoder(w).Encode(s)
}
