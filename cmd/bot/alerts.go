package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Lista os produtos no preço alvo ou abaixo dele",
		Args:  cobra.NoArgs,
		RunE:  runAlerts,
	}
}

func runAlerts(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	alerts, err := a.store.Alerts(ctx)
	if err != nil {
		return fmt.Errorf("erro ao buscar alertas: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(alerts) == 0 {
		fmt.Fprintln(out, "Nenhum produto no preço alvo.")
		return nil
	}
	for _, al := range alerts {
		fmt.Fprintf(out, "%d  %s\n    atual %s  alvo %s  economia %s (%s%%)\n    %s\n",
			al.Product.ID, al.Product.Name,
			al.CurrentPrice.StringFixed(2), al.TargetPrice.StringFixed(2),
			al.Savings.StringFixed(2), al.SavingsPercent.StringFixed(2),
			al.Product.URL)
	}
	return nil
}
