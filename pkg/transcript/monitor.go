package transcript

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/boristopalov/veritas/pkg/core"
)

const DefaultInterval = 10 * time.Second

// Checker turns a claim into a verdict.
type Checker interface {
	Check(ctx context.Context, claim string) (core.Verdict, error)
}

// Monitor fact-checks the transcript window on a fixed interval, skipping
// ticks where nothing new was said.
type Monitor struct {
	window      *Window
	checker     Checker
	interval    time.Duration
	timeout     time.Duration
	lastChecked uint64
	mu          sync.Mutex
	logger      *slog.Logger
}

type MonitorOption func(*Monitor)

func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.interval = d
	}
}

// WithCheckTimeout bounds each check of the window. Zero disables the bound.
func WithCheckTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.timeout = d
	}
}

func WithCapacity(n int) MonitorOption {
	return func(m *Monitor) {
		m.window = NewWindow(n)
	}
}

func WithLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = l
	}
}

func NewMonitor(checker Checker, opts ...MonitorOption) (*Monitor, error) {
	if checker == nil {
		return nil, errors.New("checker is required")
	}
	m := &Monitor{
		window:   NewWindow(DefaultCapacity),
		checker:  checker,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	return m, nil
}

// Add buffers a transcribed segment.
func (m *Monitor) Add(segment string) error {
	return m.window.Store(segment)
}

func (m *Monitor) Window() *Window {
	return m.window
}

// CheckNow checks the current window. It reports false when there was
// nothing new to check.
func (m *Monitor) CheckNow(ctx context.Context) (core.Verdict, bool, error) {
	m.mu.Lock()
	version := m.window.Version()
	if version == m.lastChecked || m.window.Len() == 0 {
		m.mu.Unlock()
		return core.Verdict{}, false, nil
	}
	text := m.window.Text()
	m.lastChecked = version
	m.mu.Unlock()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	verdict, err := m.checker.Check(ctx, text)
	if err != nil {
		return core.Verdict{}, false, err
	}
	return verdict, true, nil
}

// Run checks the window every interval and hands each verdict to emit until
// ctx is done. Check failures are logged and do not stop the loop; an emit
// error does.
func (m *Monitor) Run(ctx context.Context, emit func(core.Verdict) error) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			verdict, ok, err := m.CheckNow(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				m.logger.Warn("live transcript check failed", "error", err)
				continue
			}
			if !ok {
				continue
			}
			if err := emit(verdict); err != nil {
				return err
			}
		}
	}
}
