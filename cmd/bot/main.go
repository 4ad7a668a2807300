package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"monitor-precos/config"
	"monitor-precos/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "monitor-precos",
		Short: "Monitor de preços de lojas online",
		Long: `Acompanha o preço de produtos em lojas online (Amazon, Mercado Libre, eBay
e páginas genéricas), guarda o histórico e avisa pelo Telegram quando o preço
alvo é atingido.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "nível de log (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "formato do log (console, json)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(testURLCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(alertsCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	// Carregar variáveis de ambiente
	if !config.LoadDotEnv() {
		slog.Debug("arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("erro ao carregar configurações: %w", err)
	}

	// Flags têm precedência sobre o ambiente
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}

	log, err = logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(log)
	return nil
}
