package main

import (
	"fmt"
	"strconv"

	"monitor-precos/internal/models"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Mostra o histórico de preços de um produto",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("ID inválido: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	product, err := a.store.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	series, err := a.store.Series(ctx, id)
	if err != nil {
		return fmt.Errorf("erro ao buscar histórico: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n%s\n\n", product.Name, product.URL)
	if len(series) == 0 {
		fmt.Fprintln(out, "Nenhum preço registrado ainda.")
		return nil
	}

	for _, obs := range series {
		fmt.Fprintf(out, "%s  %12s\n", obs.ObservedAt.Local().Format("2006-01-02 15:04:05"), obs.Price.StringFixed(2))
	}

	minPrice, maxPrice := models.SeriesMinMax(series)
	fmt.Fprintf(out, "\nmínimo %s  máximo %s  registros %d\n",
		minPrice.Decimal.StringFixed(2), maxPrice.Decimal.StringFixed(2), len(series))
	return nil
}
