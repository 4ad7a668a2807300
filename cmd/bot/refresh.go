package main

import (
	"fmt"

	"monitor-precos/internal/monitor"

	"github.com/spf13/cobra"
)

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Atualiza o preço de todos os produtos ativos uma vez",
		Args:  cobra.NoArgs,
		RunE:  runRefresh,
	}
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.monitor.RunCycle(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, o := range report.Outcomes {
		if o.Succeeded() {
			fmt.Fprintf(out, "✅ %d  %s  %s (%s)\n", o.Product.ID, o.Price.StringFixed(2), o.Product.URL, o.Rule)
			continue
		}
		fmt.Fprintf(out, "❌ %d  %s: %s\n", o.Product.ID, o.Product.URL, monitor.Describe(o))
	}
	fmt.Fprintf(out, "\n%d atualizados, %d com falha, %d no preço alvo\n",
		report.Succeeded, report.Failed, len(report.Alerts))

	if report.Failed > 0 && report.Succeeded == 0 {
		return fmt.Errorf("nenhum produto foi atualizado")
	}
	return nil
}
