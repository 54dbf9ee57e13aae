package cloudbet

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DTOs raw de los APIs de Cloudbet. Solo se usan dentro de este paquete.
// La conversión a domain se hace en mapping.go.

// --- Feed API ---

// eventsResponse es la respuesta de GET /events.
type eventsResponse struct {
	Competitions []competition `json:"competitions"`
}

type competition struct {
	Name   string      `json:"name"`
	Key    string      `json:"key"`
	Events []feedEvent `json:"events"`
}

// feedEvent es un evento del feed. Cuando se pide por ID trae Markets.
type feedEvent struct {
	ID      flexString            `json:"id"`
	Status  string                `json:"status"`
	Name    string                `json:"name"`
	Home    *team                 `json:"home"`
	Away    *team                 `json:"away"`
	Markets map[string]feedMarket `json:"markets"`
}

type team struct {
	Name string `json:"name"`
}

type feedMarket struct {
	Submarkets orderedSubmarkets `json:"submarkets"`
}

type submarket struct {
	Selections []feedSelection `json:"selections"`
}

// feedSelection trae el precio como número JSON (a veces como string).
type feedSelection struct {
	Outcome string      `json:"outcome"`
	Price   json.Number `json:"price"`
	Status  string      `json:"status"`
}

// orderedSubmarkets preserva el orden del JSON: el bot usa el primer submarket.
type orderedSubmarkets []submarket

func (o *orderedSubmarkets) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("submarkets: expected object, got %v", tok)
	}

	var out orderedSubmarkets
	for dec.More() {
		if _, err := dec.Token(); err != nil { // key
			return err
		}
		var sm submarket
		if err := dec.Decode(&sm); err != nil {
			return err
		}
		out = append(out, sm)
	}
	*o = out
	return nil
}

// flexString acepta IDs como string o como número.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// --- Trading API ---

// placeRequest es el body de POST /place. Cloudbet espera los números como strings.
type placeRequest struct {
	EventID           string `json:"eventId"`
	MarketURL         string `json:"marketUrl"`
	Price             string `json:"price"`
	Stake             string `json:"stake"`
	Currency          string `json:"currency"`
	ReferenceID       string `json:"referenceId"`
	AcceptPriceChange string `json:"acceptPriceChange"`
}

type placeResponse struct {
	ReferenceID string `json:"referenceId"`
	Status      string `json:"status"`
	Price       string `json:"price"`
	Stake       string `json:"stake"`
	Error       string `json:"error"`
}

type statusResponse struct {
	ReferenceID string `json:"referenceId"`
	Status      string `json:"status"`
}
