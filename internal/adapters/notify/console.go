package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alejandrodnm/oddbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el resumen del ciclo en el modo configurado.
func (c *Console) Notify(_ context.Context, report domain.CycleReport) error {
	now := report.StartedAt.Format("15:04:05")
	if len(report.Qualifying) == 0 {
		fmt.Fprintf(c.out, "[%s] no qualifying events (pending: %d)\n", now, report.Pending)
		return nil
	}

	if c.table {
		c.printFull(report)
	} else {
		c.printCompact(report)
	}
	return nil
}

// printCompact imprime el ciclo en una línea.
func (c *Console) printCompact(r domain.CycleReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d qualifying → new:%d placed:%d pending:%d",
		r.StartedAt.Format("15:04:05"), len(r.Qualifying), len(r.New), len(r.Placed), r.Pending)

	names := eventNames(r.New)
	for _, res := range r.Placed {
		fmt.Fprintf(&sb, " | %s %s@%s %s",
			compactName(names[res.Request.EventID], 28),
			res.Request.Outcome,
			res.Request.Price.String(),
			res.Status,
		)
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime las tablas de eventos y apuestas.
func (c *Console) printFull(r domain.CycleReport) {
	fmt.Fprintf(c.out, "\n[%s] %d qualifying events, %d new, %d bets placed, %d pending\n",
		r.StartedAt.Format("15:04:05"), len(r.Qualifying), len(r.New), len(r.Placed), r.Pending)

	c.printEvents(r)
	if len(r.Placed) > 0 {
		c.printBets(r)
	}
}

func (c *Console) printEvents(r domain.CycleReport) {
	fresh := make(map[string]bool, len(r.New))
	for _, ev := range r.New {
		fresh[ev.ID] = true
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Event", "Competition", "Side", "Price", "State")

	for i, ev := range r.Qualifying {
		state := "seen"
		if fresh[ev.ID] {
			state = "new"
		}
		for _, sel := range ev.Selections {
			table.Append(
				fmt.Sprintf("%d", i+1),
				truncate(ev.Name, 40),
				truncate(ev.Competition, 20),
				string(sel.Outcome),
				sel.Price.StringFixed(2),
				state,
			)
		}
	}

	table.Render()
}

func (c *Console) printBets(r domain.CycleReport) {
	names := eventNames(r.New)

	table := tablewriter.NewWriter(c.out)
	table.Header("Ref", "Event", "Side", "Price", "Stake", "Status")

	for _, res := range r.Placed {
		req := res.Request
		table.Append(
			shortRef(res.ReferenceID),
			truncate(names[req.EventID], 40),
			string(req.Outcome),
			req.Price.StringFixed(2),
			req.Stake.String()+" "+req.Currency,
			string(res.Status),
		)
	}

	table.Render()
}

func eventNames(events []domain.Event) map[string]string {
	out := make(map[string]string, len(events))
	for _, ev := range events {
		out[ev.ID] = ev.Name
	}
	return out
}

// truncate corta por runas para no partir caracteres multibyte.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// compactName recorta sin puntos suspensivos para la línea compacta.
func compactName(s string, maxLen int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= maxLen {
		return string(r)
	}
	return string(r[:maxLen])
}

func shortRef(ref string) string {
	r := []rune(ref)
	if len(r) > 8 {
		return string(r[:8])
	}
	return ref
}
