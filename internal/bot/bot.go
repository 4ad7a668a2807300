package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"monitor-precos/internal/monitor"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender envia mensagens ao Telegram. *tgbotapi.BotAPI implementa esta interface.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Init inicializa o bot do Telegram
func Init(token string, logger *slog.Logger) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN não configurado. Verifique o arquivo .env")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		if err.Error() == "Unauthorized" {
			return nil, fmt.Errorf("token do Telegram inválido ou expirado. Verifique o TELEGRAM_BOT_TOKEN no arquivo .env. Para obter um token, fale com @BotFather no Telegram")
		}
		return nil, fmt.Errorf("erro ao conectar com Telegram: %w", err)
	}

	bot.Debug = false
	if logger != nil {
		logger.Info("bot autorizado", "username", bot.Self.UserName)
	}
	return bot, nil
}

// Notifier envia os alertas de preço alvo pelo Telegram
type Notifier struct {
	sender Sender
	// fallbackChatID recebe alertas de produtos sem dono (cadastrados pela CLI)
	fallbackChatID int64
}

var _ monitor.Notifier = (*Notifier)(nil)

// NewNotifier cria o notificador
func NewNotifier(sender Sender, fallbackChatID int64) *Notifier {
	return &Notifier{sender: sender, fallbackChatID: fallbackChatID}
}

// NotifyAlert envia a mensagem de alerta para o dono do produto
func (n *Notifier) NotifyAlert(_ context.Context, out monitor.UpdateOutcome) error {
	if out.Evaluation == nil {
		return nil
	}
	chatID := out.Product.OwnerID
	if chatID == 0 {
		chatID = n.fallbackChatID
	}
	if chatID == 0 {
		return fmt.Errorf("produto %d sem chat para notificar", out.Product.ID)
	}

	msg := tgbotapi.NewMessage(chatID, formatAlert(out))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.sender.Send(msg); err != nil {
		// HTML rejeitado: tenta de novo sem formatação
		msg.ParseMode = ""
		if _, retryErr := n.sender.Send(msg); retryErr != nil {
			return fmt.Errorf("erro ao enviar alerta: %w", errors.Join(err, retryErr))
		}
	}
	return nil
}

func formatAlert(out monitor.UpdateOutcome) string {
	eval := out.Evaluation
	var b strings.Builder
	b.WriteString("🔔 <b>Preço alvo atingido!</b>\n\n")
	fmt.Fprintf(&b, "📦 %s\n", escapeHTML(displayName(out.Product.Name, out.Product.URL)))
	fmt.Fprintf(&b, "💰 Preço atual: <b>%s</b>\n", formatPrice(eval.CurrentPrice))
	fmt.Fprintf(&b, "🎯 Preço alvo: %s\n", formatPrice(eval.TargetPrice))
	if eval.Savings.IsPositive() {
		fmt.Fprintf(&b, "💸 Economia: %s (%s%%)\n", formatPrice(eval.Savings), eval.SavingsPercent.StringFixed(2))
	}
	if out.Previous.Valid && out.Previous.Decimal.GreaterThan(eval.CurrentPrice) {
		fmt.Fprintf(&b, "📉 Antes: %s\n", formatPrice(out.Previous.Decimal))
	}
	fmt.Fprintf(&b, "🔗 %s", escapeHTML(out.Product.URL))
	return b.String()
}
