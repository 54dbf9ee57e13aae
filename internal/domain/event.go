package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome es el lado de un mercado odd/even tal como lo reporta el feed.
type Outcome string

const (
	OutcomeOdd  Outcome = "odd"
	OutcomeEven Outcome = "even"
)

// Selection es un resultado del mercado con su precio decimal actual.
// Inmutable una vez obtenida del feed.
type Selection struct {
	Outcome Outcome
	Price   decimal.Decimal
}

// Event es un partido en vivo con las selecciones que pasaron el filtro de precio.
// Solo vive durante un ciclo de polling; lo único que se persiste es su ID.
type Event struct {
	ID          string
	Name        string // "<home> vs <away>"
	Competition string
	Status      string
	Selections  []Selection
}

// IsTradingLive devuelve true si el feed reporta el evento como operable en vivo.
func (e Event) IsTradingLive() bool {
	return strings.EqualFold(e.Status, EventStatusTradingLive)
}

// EventStatusTradingLive es el estado del feed para eventos que aceptan apuestas en vivo.
const EventStatusTradingLive = "TRADING_LIVE"

// FilterAbove devuelve las selecciones con precio estrictamente mayor que threshold.
func FilterAbove(selections []Selection, threshold decimal.Decimal) []Selection {
	var out []Selection
	for _, s := range selections {
		if s.Price.GreaterThan(threshold) {
			out = append(out, s)
		}
	}
	return out
}

// SeenEvent es un evento sobre el que ya se apostó.
type SeenEvent struct {
	EventID   string
	CreatedAt time.Time
}

// CycleReport resume un ciclo del poll loop.
type CycleReport struct {
	StartedAt  time.Time
	Duration   time.Duration
	Qualifying []Event // eventos con al menos una selección sobre el threshold
	New        []Event // Qualifying menos los ya vistos
	Placed     []BetResult
	Pending    int // apuestas que siguen en monitoreo al terminar el ciclo
}
