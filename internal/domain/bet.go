package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BetStatus es el estado de una apuesta según el trading API.
type BetStatus string

const (
	BetPendingAcceptance BetStatus = "PENDING_ACCEPTANCE"
	BetAccepted          BetStatus = "ACCEPTED"
	BetRejected          BetStatus = "REJECTED"
	BetWin               BetStatus = "WIN"
	BetLoss              BetStatus = "LOSS"
	BetPush              BetStatus = "PUSH"
	BetMarketSuspended   BetStatus = "MARKET_SUSPENDED"
	BetInsufficientFunds BetStatus = "INSUFFICIENT_FUNDS"
	BetCancelled         BetStatus = "CANCELLED"

	// BetUnresolvedTimeout no viene del provider: el monitor agotó sus checks
	// sin observar un estado terminal.
	BetUnresolvedTimeout BetStatus = "UNRESOLVED_TIMEOUT"
)

// IsTerminal devuelve true si no se espera ningún cambio posterior del estado.
func (s BetStatus) IsTerminal() bool {
	switch s {
	case BetAccepted, BetRejected, BetWin, BetLoss, BetPush,
		BetMarketSuspended, BetInsufficientFunds, BetCancelled:
		return true
	}
	return false
}

// ErrBetUnconfirmed indica que el trading API aceptó el envío (2xx) pero la
// respuesta no se pudo leer. La apuesta probablemente existe: el evento se
// marca como visto aunque no haya reference ID para monitorearla.
var ErrBetUnconfirmed = errors.New("bet submitted but not confirmed")

// PriceChangePolicy indica al trading API qué cambios de precio se aceptan.
type PriceChangePolicy string

const (
	AcceptPriceNone   PriceChangePolicy = "NONE"
	AcceptPriceBetter PriceChangePolicy = "BETTER"
	AcceptPriceAll    PriceChangePolicy = "ALL"
)

// OddEvenMarket es la key del mercado total de puntos par/impar.
const OddEvenMarket = "basketball.odd_even"

// BetRequest es una apuesta lista para enviar. Se construye una vez por
// selección y no se modifica.
type BetRequest struct {
	EventID           string
	MarketURL         string
	Outcome           Outcome
	Price             decimal.Decimal
	Stake             decimal.Decimal
	Currency          string
	ReferenceID       string
	AcceptPriceChange PriceChangePolicy
}

// MarketURLFor construye el path de mercado para un outcome, ej. "basketball.odd_even/odd".
func MarketURLFor(outcome Outcome) string {
	return OddEvenMarket + "/" + string(outcome)
}

// BetResult es la respuesta del trading API a una apuesta colocada.
type BetResult struct {
	ReferenceID string
	Status      BetStatus
	Request     BetRequest
}

// PendingBet es una apuesta esperando aceptación que el monitor sigue.
type PendingBet struct {
	ReferenceID string
	EventName   string
	Side        Outcome
	Stake       decimal.Decimal
	Currency    string
	PlacedAt    time.Time
}
