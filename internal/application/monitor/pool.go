package monitor

// pool.go: worker pool acotado para las tareas de monitoreo.
//
// Un número fijo de workers consume una cola con buffer. El loop principal
// solo encola; nunca espera a que una apuesta se resuelva.

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/oddbot/internal/domain"
)

const (
	DefaultWorkers   = 5
	DefaultQueueSize = 256
)

// Job procesa un reference ID. Debe volver pronto cuando ctx se cancela.
type Job func(ctx context.Context, refID string)

// Pool ejecuta Jobs con concurrencia acotada.
type Pool struct {
	jobs chan string
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool arranca workers goroutines que ejecutan job con ctx.
// workers <= 0 y queue <= 0 usan los defaults.
func NewPool(ctx context.Context, workers, queue int, job Job) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queue <= 0 {
		queue = DefaultQueueSize
	}

	p := &Pool{jobs: make(chan string, queue)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for ref := range p.jobs {
				job(ctx, ref)
			}
		}()
	}

	slog.Debug("monitor pool started", "workers", workers, "queue", queue)
	return p
}

// Submit encola refID. Bloquea solo si la cola está llena; devuelve false
// si el pool ya fue cerrado.
func (p *Pool) Submit(refID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.jobs <- refID
	return true
}

// Close deja de aceptar trabajos. Los ya encolados se siguen procesando.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.jobs)
}

// Drain cierra el pool y espera a que terminen los trabajos en curso o a
// que venza ctx.
func (p *Pool) Drain(ctx context.Context) error {
	p.Close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tracker registra una apuesta pendiente y encola su monitoreo.
type Tracker struct {
	pending *PendingBets
	pool    *Pool
}

func NewTracker(pending *PendingBets, pool *Pool) *Tracker {
	return &Tracker{pending: pending, pool: pool}
}

// Track agrega bet a PendingBets justo antes de encolarla. Si el pool está
// cerrado la entrada se revierte y devuelve false.
func (t *Tracker) Track(bet domain.PendingBet) bool {
	if !t.pending.Add(bet) {
		slog.Warn("bet already monitored", "ref", bet.ReferenceID)
		return false
	}
	if !t.pool.Submit(bet.ReferenceID) {
		t.pending.Remove(bet.ReferenceID)
		slog.Warn("monitor pool closed, bet not monitored",
			"ref", bet.ReferenceID,
			"event", bet.EventName,
		)
		return false
	}
	return true
}
