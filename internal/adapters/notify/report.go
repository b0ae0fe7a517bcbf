package notify

import (
	"fmt"

	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// ReportInput agrupa todo lo que PrintReport necesita.
type ReportInput struct {
	Quote          string
	InitialCapital float64
	Position       domain.Position
	Value          float64 // valor actual de la posición en quote
	Trades         []domain.TradeRecord // el más reciente primero
	TradeCount     int
	TotalFees      float64
	Snapshots      []domain.PortfolioSnapshot // el más reciente primero
}

// PrintReport imprime el histórico de trades y el P&L acumulado.
func (c *Console) PrintReport(in ReportInput) {
	fmt.Fprintf(c.out, "\n")
	fmt.Fprintf(c.out, "========================================================\n")
	fmt.Fprintf(c.out, "  ROTATION REPORT (%s)\n", in.Quote)
	fmt.Fprintf(c.out, "========================================================\n\n")

	if len(in.Trades) == 0 {
		fmt.Fprintln(c.out, "  No trades yet.")
	} else {
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("Time", "From", "To", "Qty", "Price", "Notional", "Fee", "Exp", "Mode")
		for _, t := range in.Trades {
			mode := "LIVE"
			if t.Simulated {
				mode = "SIM"
			}
			tbl.Append(
				t.Timestamp.Format("2006-01-02 15:04"),
				t.FromAsset,
				t.ToAsset,
				fmt.Sprintf("%.6f", t.Quantity),
				fmt.Sprintf("$%.4f", t.Price),
				fmt.Sprintf("$%.2f", t.Notional),
				fmt.Sprintf("$%.4f", t.Fee),
				fmt.Sprintf("%+.2f%%", t.ExpectedGain*100),
				mode,
			)
		}
		tbl.Render()
	}

	fmt.Fprintf(c.out, "\n  --- AGGREGATE ---\n")
	fmt.Fprintf(c.out, "  Trades:                %d\n", in.TradeCount)
	fmt.Fprintf(c.out, "  Fees paid:             $%.4f\n", in.TotalFees)
	fmt.Fprintf(c.out, "  Position:              %s\n", positionLabel(in.Position))
	fmt.Fprintf(c.out, "  Initial capital:       $%.2f\n", in.InitialCapital)
	fmt.Fprintf(c.out, "  Current value:         $%.2f\n", in.Value)
	if in.InitialCapital > 0 {
		pnl := in.Value - in.InitialCapital
		fmt.Fprintf(c.out, "  P&L:                   $%+.2f (%+.2f%%)\n", pnl, pnl/in.InitialCapital*100)
	}
	if n := len(in.Snapshots); n > 1 {
		first, last := in.Snapshots[n-1], in.Snapshots[0]
		fmt.Fprintf(c.out, "  Snapshots:             %d (%s → %s)\n", n,
			first.Timestamp.Format("2006-01-02"), last.Timestamp.Format("2006-01-02"))
	}
	fmt.Fprintln(c.out)
}
