package main

import (
	"fmt"
	"strings"

	"monitor-precos/internal/scraper"

	"github.com/spf13/cobra"
)

func testURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-url <url>",
		Short: "Testa se o preço de uma URL pode ser lido, sem cadastrar o produto",
		Args:  cobra.ExactArgs(1),
		RunE:  runTestURL,
	}
	cmd.Flags().String("mode", "", "forma de busca: auto, plain ou rendered (padrão: FETCH_MODE)")
	return cmd
}

func runTestURL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.scraper
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		mode, err := scraper.ParseStrategy(v)
		if err != nil {
			return err
		}
		router := *a.router
		router.Mode = mode
		s = scraper.New(&router, scraper.NewExtractor(router.Registry, log), log)
	}

	res := s.TestURL(ctx, args[0])

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "URL:        %s\n", res.URL)
	fmt.Fprintf(out, "Loja:       %s\n", res.Profile)
	fmt.Fprintf(out, "Acessível:  %s\n", yesNo(res.Reachable))
	fmt.Fprintf(out, "Preço:      %s\n", yesNo(res.Found))
	if res.Found {
		fmt.Fprintf(out, "  valor:    %s\n", res.Result.Price.StringFixed(2))
		fmt.Fprintf(out, "  regra:    %s\n", res.Result.Rule)
		fmt.Fprintf(out, "  texto:    %s\n", strings.TrimSpace(res.Result.RawText))
		if res.Result.Name != "" {
			fmt.Fprintf(out, "  produto:  %s\n", res.Result.Name)
		}
		return nil
	}
	return fmt.Errorf("teste falhou: %s", res.Error)
}

func yesNo(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}
