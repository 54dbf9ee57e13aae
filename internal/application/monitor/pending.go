package monitor

import (
	"sort"
	"sync"

	"github.com/alejandrodnm/oddbot/internal/adapters/metrics"
	"github.com/alejandrodnm/oddbot/internal/domain"
)

// PendingBets es el registro de apuestas con una tarea de monitoreo activa,
// indexado por reference ID. Seguro para uso concurrente.
type PendingBets struct {
	mu   sync.Mutex
	bets map[string]domain.PendingBet
}

// NewPendingBets crea un registro vacío.
func NewPendingBets() *PendingBets {
	return &PendingBets{bets: make(map[string]domain.PendingBet)}
}

// Add registra la apuesta. Devuelve false si el reference ID ya existía.
func (p *PendingBets) Add(bet domain.PendingBet) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.bets[bet.ReferenceID]; ok {
		return false
	}
	p.bets[bet.ReferenceID] = bet
	metrics.PendingBets.Set(float64(len(p.bets)))
	return true
}

// Remove borra la apuesta y reporta si estaba registrada.
func (p *PendingBets) Remove(referenceID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.bets[referenceID]; !ok {
		return false
	}
	delete(p.bets, referenceID)
	metrics.PendingBets.Set(float64(len(p.bets)))
	return true
}

func (p *PendingBets) Get(referenceID string) (domain.PendingBet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bet, ok := p.bets[referenceID]
	return bet, ok
}

func (p *PendingBets) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bets)
}

// Snapshot devuelve una copia ordenada por PlacedAt.
func (p *PendingBets) Snapshot() []domain.PendingBet {
	p.mu.Lock()
	out := make([]domain.PendingBet, 0, len(p.bets))
	for _, b := range p.bets {
		out = append(out, b)
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].ReferenceID < out[j].ReferenceID
		}
		return out[i].PlacedAt.Before(out[j].PlacedAt)
	})
	return out
}
