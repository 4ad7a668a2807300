package main

import (
	"fmt"

	"monitor-precos/internal/bot"
	"monitor-precos/internal/monitor"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Inicia o bot do Telegram e a atualização periódica",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	// Inicializar bot do Telegram
	telegramBot, err := bot.Init(cfg.TelegramBotToken, log)
	if err != nil {
		return fmt.Errorf("erro ao inicializar bot do Telegram: %w", err)
	}

	a, err := newApp(ctx, monitor.WithNotifier(bot.NewNotifier(telegramBot, cfg.TelegramChatID)))
	if err != nil {
		return err
	}
	defer a.Close()

	// Iniciar monitoramento em background
	scheduler := monitor.ForMonitor(a.monitor, cfg.CheckInterval)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	handler := bot.NewHandler(telegramBot, a.store, a.monitor, a.scraper, cfg.TelegramChatID, log)
	bot.SetupCommands(ctx, telegramBot, handler)

	log.Info("encerrando bot...")
	return nil
}
