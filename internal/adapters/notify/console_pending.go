package notify

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/oddbot/internal/domain"
)

// PrintPending imprime las apuestas que siguen en monitoreo, ej. al apagar.
func (c *Console) PrintPending(bets []domain.PendingBet, now time.Time) {
	fmt.Fprintf(c.out, "\n── PENDING BETS (%d) ──\n", len(bets))
	if len(bets) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}

	fmt.Fprintf(c.out, "  %-8s %-5s %10s %-35s %s\n", "REF", "SIDE", "STAKE", "EVENT", "AGE")
	for _, b := range bets {
		age := now.Sub(b.PlacedAt).Truncate(time.Second)
		fmt.Fprintf(c.out, "  %-8s %-5s %10s %-35s %v\n",
			shortRef(b.ReferenceID),
			b.Side,
			b.Stake.String()+" "+b.Currency,
			truncate(b.EventName, 35),
			age,
		)
	}
	fmt.Fprintln(c.out)
}
