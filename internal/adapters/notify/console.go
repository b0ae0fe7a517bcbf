package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/olekukonko/tablewriter"
)

const compactTop = 3

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out   io.Writer
	table bool
	now   func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
// table=true imprime el ranking completo; si no, una línea por ciclo.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, now: time.Now}
}

// NotifyCycle imprime el resumen del ciclo en el modo configurado.
func (c *Console) NotifyCycle(_ context.Context, r domain.CycleReport) error {
	if r.Aborted {
		fmt.Fprintf(c.out, "[%s] #%d ABORTED: %s | holding %s\n",
			c.now().Format("15:04:05"), r.Cycle, r.Error, positionLabel(r.Position))
		return nil
	}
	if c.table {
		c.printFull(r)
	} else {
		c.printCompact(r)
	}
	return nil
}

// NotifyTrade imprime una línea por trade.
func (c *Console) NotifyTrade(_ context.Context, t domain.TradeRecord) error {
	mode := "LIVE"
	if t.Simulated {
		mode = "SIM"
	}
	fmt.Fprintf(c.out, "[%s] TRADE (%s) %s → %s | qty %.6f @ $%.4f | fee $%.4f | expected %+.2f%%\n",
		c.now().Format("15:04:05"), mode, t.FromAsset, t.ToAsset,
		t.Quantity, t.Price, t.Fee, t.ExpectedGain*100)
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(r domain.CycleReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] #%d %s %s ($%.2f)",
		c.now().Format("15:04:05"), r.Cycle, r.Decision.Action, positionLabel(r.Position), r.Value)

	if len(r.Scores) > 0 {
		sb.WriteString(" | top:")
		for i, s := range r.Scores {
			if i >= compactTop {
				break
			}
			fmt.Fprintf(&sb, " %s %+.2f%%", s.Asset, s.Score*100)
		}
	}
	if r.Decision.Target != "" {
		fmt.Fprintf(&sb, " | %s net %+.4f", r.Decision.Target, r.Decision.NetGain)
	}
	if r.Execution != nil && !r.Execution.OK() {
		fmt.Fprintf(&sb, " | REJECTED: %s", r.Execution.Reason)
	} else if r.Decision.Reason != "" {
		fmt.Fprintf(&sb, " | %s", r.Decision.Reason)
	}
	if r.Simulated {
		sb.WriteString(" [SIM]")
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime el ranking completo, la decisión y la ejecución.
func (c *Console) printFull(r domain.CycleReport) {
	mode := "LIVE"
	if r.Simulated {
		mode = "SIMULATION"
	}
	fmt.Fprintf(c.out, "\n[%s] cycle #%d (%s) — %d ranked, %d excluded, %s\n",
		c.now().Format("15:04:05"), r.Cycle, mode, len(r.Scores), len(r.Excluded),
		r.Duration.Round(time.Millisecond))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Asset", "Score", "Held")
	for i, s := range r.Scores {
		held := ""
		if s.Asset == r.Position.Asset || s.Asset == r.Decision.From {
			held = "*"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			s.Asset,
			fmt.Sprintf("%+.4f%%", s.Score*100),
			held,
		)
	}
	table.Render()

	for _, e := range r.Excluded {
		fmt.Fprintf(c.out, "  excluded %-6s %s\n", e.Asset, e.Reason)
	}

	d := r.Decision
	fmt.Fprintf(c.out, "  Decision: %s", d.Action)
	if d.Target != "" {
		fmt.Fprintf(c.out, " %s → %s | candidate %+.4f current %+.4f fee %.4f net %+.4f",
			d.From, d.Target, d.CandidateScore, d.CurrentScore, d.FeeFraction, d.NetGain)
	}
	fmt.Fprintf(c.out, " (%s)\n", d.Reason)

	if r.Execution != nil {
		fmt.Fprintf(c.out, "  Execution: %s", r.Execution.Status)
		if r.Execution.Reason != "" {
			fmt.Fprintf(c.out, " — %s", r.Execution.Reason)
		}
		fmt.Fprintln(c.out)
		for _, w := range r.Execution.Warnings {
			fmt.Fprintf(c.out, "  WARNING: %s\n", w)
		}
	}
	fmt.Fprintf(c.out, "  Position: %s | value $%.2f\n", positionLabel(r.Position), r.Value)
}

func positionLabel(p domain.Position) string {
	return fmt.Sprintf("%.6f %s", p.Quantity, p.Asset)
}
