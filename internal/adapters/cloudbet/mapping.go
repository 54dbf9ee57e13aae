package cloudbet

import (
	"log/slog"

	"github.com/alejandrodnm/oddbot/internal/domain"
	"github.com/shopspring/decimal"
)

// mapEvents aplana competiciones → eventos. Los eventos sin ID se descartan.
func mapEvents(resp eventsResponse) []domain.Event {
	var events []domain.Event
	for _, comp := range resp.Competitions {
		for _, e := range comp.Events {
			if e.ID == "" {
				slog.Debug("feed event without id, skipping", "competition", comp.Name)
				continue
			}
			events = append(events, domain.Event{
				ID:          string(e.ID),
				Name:        eventName(e),
				Competition: comp.Name,
				Status:      e.Status,
			})
		}
	}
	return events
}

// eventName devuelve "<home> vs <away>", o el nombre del feed si faltan equipos.
func eventName(e feedEvent) string {
	if e.Home != nil && e.Away != nil {
		return e.Home.Name + " vs " + e.Away.Name
	}
	if e.Name != "" {
		return e.Name
	}
	return string(e.ID)
}

// mapSelections devuelve las selecciones del primer submarket del mercado.
// ok es false si el evento no tiene el mercado o no tiene submarkets.
func mapSelections(e feedEvent, marketKey string) (sels []domain.Selection, ok bool) {
	market, found := e.Markets[marketKey]
	if !found || len(market.Submarkets) == 0 {
		return nil, false
	}

	for _, s := range market.Submarkets[0].Selections {
		price, err := decimal.NewFromString(s.Price.String())
		if err != nil || s.Outcome == "" {
			slog.Debug("unparsable selection, skipping",
				"event_id", string(e.ID),
				"outcome", s.Outcome,
				"price", s.Price.String(),
			)
			continue
		}
		sels = append(sels, domain.Selection{
			Outcome: domain.Outcome(s.Outcome),
			Price:   price,
		})
	}
	return sels, true
}

// toPlaceRequest convierte el request de dominio al body del API.
func toPlaceRequest(r domain.BetRequest) placeRequest {
	return placeRequest{
		EventID:           r.EventID,
		MarketURL:         r.MarketURL,
		Price:             r.Price.String(),
		Stake:             r.Stake.String(),
		Currency:          r.Currency,
		ReferenceID:       r.ReferenceID,
		AcceptPriceChange: string(r.AcceptPriceChange),
	}
}
