package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/substack-protocol/keeper/pkg/config"
	"github.com/substack-protocol/keeper/pkg/keeper"
)

func writeBanner(w io.Writer, cfg config.Config, operator string, once bool) {
	mode := "scheduled"
	if once {
		mode = "single cycle"
	}

	execution := "per charge"
	if cfg.UseBatchExecution {
		execution = "batched"
	}

	tw := table.NewWriter()
	tw.SetTitle("Subscription Keeper")
	tw.AppendRows([]table.Row{
		{"Network", cfg.Network.Name},
		{"Node API", cfg.APIURL},
		{"Operator", shorten(operator, 8)},
		{"Vault", cfg.Contracts.Vault.String()},
		{"Plans", cfg.Contracts.Plans.String()},
		{"Engine", cfg.Contracts.Engine.String()},
		{"Mode", mode},
		{"Check Interval", cfg.CheckInterval.String()},
		{"Batch Size", cfg.BatchSize},
		{"Execution", execution},
		{"Min Profit", keeper.FormatSTX(cfg.MinProfit) + " STX"},
		{"Max Plans", cfg.MaxPlans},
		{"Tx Fee", keeper.FormatSTX(cfg.TxFee) + " STX"},
	})

	if cfg.MetricsAddr != "" {
		tw.AppendRow(table.Row{"Metrics", cfg.MetricsAddr})
	}

	fmt.Fprint(w, tw.Render())
	// the render function does not put a newline after the table
	fmt.Fprint(w, "\n")
}

func shorten(s string, keep int) string {
	if len(s) <= 2*keep {
		return s
	}

	return s[:keep] + "..." + s[len(s)-keep:]
}
