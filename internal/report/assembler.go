package report

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/hakim/islandreport/internal/island"
	"github.com/hakim/islandreport/internal/models"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Assembler owns the transient view state of a security report: the report
// itself plus four independently fetched collections. Every state change is
// announced to subscribers so callers can re-render.
//
// The four fetches started by Start are independent. Each writes only its own
// slot and signals a change when it lands; there is no barrier between them.
// A failed fetch is logged and leaves its slot empty.
type Assembler struct {
	fetch  island.FetchFunc
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	state  View
	subs   []chan struct{}
	closed bool

	wg        conc.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the clock used for the footer timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAssembler creates an assembler around the authenticated fetch capability.
// initial may be nil or an empty report, both of which mean "not yet loaded".
func NewAssembler(fetch island.FetchFunc, initial *models.Report, opts ...Option) *Assembler {
	a := &Assembler{
		fetch:  fetch,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("assembler")
	a.state.Report = initial
	return a
}

// Start fires the four inventory fetches. It returns immediately; calling it
// more than once has no effect.
func (a *Assembler) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		a.wg.Go(func() {
			load(ctx, a, island.PathStolenCredentials, func(v *View, creds []models.Credential) {
				v.StolenCredentials = creds
			})
		})
		a.wg.Go(func() {
			load(ctx, a, island.PathConfiguredCredentials, func(v *View, creds []models.Credential) {
				v.ConfiguredCredentials = creds
			})
		})
		a.wg.Go(func() {
			load(ctx, a, island.PathAgents, func(v *View, agents []models.Agent) {
				v.Agents = agents
			})
		})
		a.wg.Go(func() {
			load(ctx, a, island.PathMachines, func(v *View, machines []models.Machine) {
				v.Machines = machines
			})
		})
	})
}

func load[T any](ctx context.Context, a *Assembler, path string, assign func(*View, []T)) {
	var items []T
	if err := a.fetch(ctx, path, &items); err != nil {
		a.logger.Warn("Fetch failed; section will render empty",
			zap.String("path", path), zap.Error(err))
		return
	}
	a.logger.Debug("Fetch finished", zap.String("path", path), zap.Int("count", len(items)))
	a.update(func(v *View) bool {
		assign(v, items)
		return true
	})
}

// Wait blocks until every fetch started by Start has returned.
func (a *Assembler) Wait() {
	a.wg.Wait()
}

// SetReport replaces the report when r is a different report than the one
// currently held. No fetch is performed.
func (a *Assembler) SetReport(r *models.Report) {
	a.update(func(v *View) bool {
		if v.Report == r {
			return false
		}
		v.Report = r
		return true
	})
}

// Subscribe returns a channel that receives a value after state changes.
// Notifications coalesce: a slow reader sees at least one value after the
// latest change. The channel is closed by Close.
func (a *Assembler) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		close(ch)
		return ch
	}
	a.subs = append(a.subs, ch)
	return ch
}

// Close tears the assembler down. Fetches still in flight are not cancelled
// (cancel the context passed to Start for that); their results are dropped.
// Close is safe to call more than once.
func (a *Assembler) Close() {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.closed = true
		for _, ch := range a.subs {
			close(ch)
		}
		a.subs = nil
	})
}

func (a *Assembler) update(mutate func(*View) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	if !mutate(&a.state) {
		return
	}
	for _, ch := range a.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// View returns a copy of the current state stamped with the current time.
func (a *Assembler) View() View {
	a.mu.RLock()
	v := a.state
	a.mu.RUnlock()

	v.GeneratedAt = a.now()
	return v
}

// Render writes the markdown document for the current state to w.
func (a *Assembler) Render(w io.Writer) error {
	_, err := io.WriteString(w, a.View().Markdown())
	return err
}
