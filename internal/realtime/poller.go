// Package realtime provides interval pollers. Message delivery has no
// push channel; clients and server-side refreshers observe new state by
// polling on fixed cadences.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fanlinkhq/fanlink/internal/logging"
)

// RefreshFunc performs one refresh pass. Errors are logged and the next
// tick proceeds; a failed pass must not stop the poller.
type RefreshFunc func(ctx context.Context) error

// Poller invokes a refresh function on a fixed interval
type Poller struct {
	name     string
	interval time.Duration
	refresh  RefreshFunc
	logger   zerolog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	lastRun time.Time
	lastErr error
}

// NewPoller creates a poller with the given name and cadence
func NewPoller(name string, interval time.Duration, refresh RefreshFunc) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		refresh:  refresh,
		logger:   logging.NewLogger("poller"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins polling. The first pass runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller %s already running", p.name)
	}
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx)

	p.logger.Info().
		Str("poller", p.name).
		Dur("interval", p.interval).
		Msg("Poller started")
	return nil
}

// Stop stops polling and waits for an in-flight pass to finish
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
	p.logger.Info().Str("poller", p.name).Msg("Poller stopped")
}

// IsRunning returns whether the poller is running
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LastRun returns the time of the last completed pass
func (p *Poller) LastRun() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRun
}

// LastErr returns the error from the last completed pass, if any
func (p *Poller) LastErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pass(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pass(ctx)
		}
	}
}

func (p *Poller) pass(ctx context.Context) {
	err := p.runRefresh(ctx)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("poller", p.name).
			Msg("Refresh pass failed")
	}

	p.mu.Lock()
	p.lastRun = time.Now()
	p.lastErr = err
	p.mu.Unlock()
}

// runRefresh contains a panicking pass: the panic becomes the pass error
// and the next tick proceeds.
func (p *Poller) runRefresh(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
		}
	}()
	return p.refresh(ctx)
}
