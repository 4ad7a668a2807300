package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"monitor-precos/internal/database"
	"monitor-precos/internal/models"
	"monitor-precos/internal/monitor"
	"monitor-precos/internal/scraper"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// historyLimit é o número de observações mostradas em /history
const historyLimit = 10

const helpText = `🤖 <b>Bot de Monitoramento de Preços</b>

<b>Comandos disponíveis:</b>

<b>/add</b> - Adicionar novo produto para monitorar
Uso: /add &lt;URL&gt; &lt;preço_alvo&gt; [nome]
Exemplo: /add https://articulo.mercadolibre.com.mx/MLM-123 3000

<b>/list</b> - Listar todos os produtos monitorados

<b>/remove &lt;id&gt;</b> - Remover produto do monitoramento
Exemplo: /remove 1

<b>/check &lt;id&gt;</b> - Verificar preço de um produto agora
Exemplo: /check 1

<b>/test &lt;URL&gt;</b> - Testar se o preço de uma URL pode ser lido

<b>/history &lt;id&gt;</b> - Histórico de preços de um produto

<b>/alerts</b> - Produtos no preço alvo ou abaixo dele

<b>/help</b> - Mostrar esta mensagem de ajuda
`

// Handler responde aos comandos do bot
type Handler struct {
	sender           Sender
	store            database.Store
	monitor          *monitor.Monitor
	scraper          *scraper.Scraper
	authorizedChatID int64
	logger           *slog.Logger
	now              func() time.Time
}

// NewHandler cria o handler de comandos. authorizedChatID 0 libera o bot para qualquer chat.
func NewHandler(sender Sender, store database.Store, m *monitor.Monitor, s *scraper.Scraper, authorizedChatID int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sender:           sender,
		store:            store,
		monitor:          m,
		scraper:          s,
		authorizedChatID: authorizedChatID,
		logger:           logger,
		now:              time.Now,
	}
}

// SetupCommands recebe as atualizações do Telegram até o contexto ser cancelado
func SetupCommands(ctx context.Context, api *tgbotapi.BotAPI, h *Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	h.Listen(ctx, updates)
}

// Listen processa as atualizações do canal
func (h *Handler) Listen(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			h.HandleMessage(ctx, update.Message)
		}
	}
}

// HandleMessage executa o comando de uma mensagem
func (h *Handler) HandleMessage(ctx context.Context, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	if command == "" {
		return
	}
	chatID := message.Chat.ID

	// Comandos públicos (não precisam de autorização)
	isPublicCommand := command == "/start" || command == "/help"

	if !isPublicCommand && h.authorizedChatID != 0 && chatID != h.authorizedChatID {
		h.reply(chatID, "Você não está autorizado a usar este bot.", false)
		return
	}

	switch command {
	case "/start", "/help":
		h.reply(chatID, helpText, true)
	case "/add":
		h.handleAddProduct(ctx, chatID, args)
	case "/list":
		h.handleListProducts(ctx, chatID)
	case "/remove":
		h.handleRemoveProduct(ctx, chatID, args)
	case "/check":
		h.handleCheckProduct(ctx, chatID, args)
	case "/test":
		h.handleTestURL(ctx, chatID, args)
	case "/history":
		h.handleHistory(ctx, chatID, args)
	case "/alerts":
		h.handleAlerts(ctx, chatID)
	default:
		h.reply(chatID, "Comando não reconhecido. Use /help para ver os comandos disponíveis.", false)
	}
}

// parseCommand separa o comando (sem @botname) dos argumentos
func parseCommand(text string) (string, []string) {
	parts := strings.Fields(text)
	if len(parts) == 0 || !strings.HasPrefix(parts[0], "/") {
		return "", nil
	}
	command := strings.ToLower(parts[0])
	if idx := strings.Index(command, "@"); idx > 0 {
		command = command[:idx]
	}
	return command, parts[1:]
}

type addArgs struct {
	URL    string
	Target decimal.Decimal
	Name   string
}

// parseAddArgs interpreta "/add <url> <preço_alvo> [nome]"
func parseAddArgs(args []string) (addArgs, error) {
	if len(args) < 2 {
		return addArgs{}, fmt.Errorf("formato incorreto")
	}
	target, ok := scraper.Normalize(args[1], nil)
	if !ok {
		return addArgs{}, fmt.Errorf("preço inválido: %s", args[1])
	}
	return addArgs{
		URL:    args[0],
		Target: target,
		Name:   strings.Join(args[2:], " "),
	}, nil
}

func parseID(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("formato incorreto")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("ID inválido")
	}
	return id, nil
}

func (h *Handler) handleAddProduct(ctx context.Context, chatID int64, args []string) {
	parsed, err := parseAddArgs(args)
	if err != nil {
		h.reply(chatID, "❌ Formato incorreto.\n\nUso: /add <URL> <preço_alvo> [nome]\n\nExemplo: /add https://articulo.mercadolibre.com.mx/MLM-123 3000", false)
		return
	}

	waitID := h.wait(chatID, "⏳ Verificando URL...")

	// Só cadastra se o preço puder ser lido agora
	res := h.scraper.TestURL(ctx, parsed.URL)
	if !res.Found {
		h.editOrReply(chatID, waitID, fmt.Sprintf("❌ Não foi possível ler o preço desta URL: %s", escapeHTML(res.Error)))
		return
	}

	name := parsed.Name
	if name == "" {
		name = res.Result.Name
	}
	if name == "" {
		name = "Produto sem nome"
	}

	product := models.Product{
		OwnerID:     chatID,
		URL:         parsed.URL,
		Name:        name,
		StoreTag:    res.Profile,
		TargetPrice: decimal.NewNullDecimal(parsed.Target),
	}
	// A leitura do teste vira a primeira observação
	id, err := h.store.AddProductWithPrice(ctx, product, res.Result.Price, h.now())
	if err != nil {
		if errors.Is(err, database.ErrDuplicateProduct) {
			h.editOrReply(chatID, waitID, "❌ Este produto já está sendo monitorado.")
			return
		}
		h.logger.Error("erro ao adicionar produto", "url", parsed.URL, "err", err)
		h.editOrReply(chatID, waitID, fmt.Sprintf("❌ Erro ao adicionar produto: %s", escapeHTML(err.Error())))
		return
	}
	product.ID = id

	var b strings.Builder
	b.WriteString("✅ <b>Produto adicionado com sucesso!</b>\n\n")
	fmt.Fprintf(&b, "🆔 ID: %d\n", id)
	fmt.Fprintf(&b, "📦 %s\n", escapeHTML(name))
	fmt.Fprintf(&b, "💰 Preço atual: %s\n", formatPrice(res.Result.Price))
	fmt.Fprintf(&b, "🎯 Preço alvo: %s\n", formatPrice(parsed.Target))
	if eval, ok := models.EvaluateAlert(product, res.Result.Price); ok {
		fmt.Fprintf(&b, "🎉 Produto já está no preço alvo! Economia de %s%%\n", eval.SavingsPercent.StringFixed(2))
	} else {
		fmt.Fprintf(&b, "💡 Faltam %s para atingir o preço alvo\n", formatPrice(res.Result.Price.Sub(parsed.Target)))
	}
	fmt.Fprintf(&b, "🔗 %s", escapeHTML(parsed.URL))

	h.logger.Info("produto adicionado", "product_id", id, "url", parsed.URL, "rule", res.Result.Rule)
	h.editOrReply(chatID, waitID, b.String())
}

func (h *Handler) handleListProducts(ctx context.Context, chatID int64) {
	products, err := h.store.ListProducts(ctx, chatID)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("❌ Erro ao listar produtos: %v", err), false)
		return
	}

	if len(products) == 0 {
		h.reply(chatID, "📋 Nenhum produto sendo monitorado no momento.", false)
		return
	}

	var response strings.Builder
	response.WriteString("📋 <b>Produtos em Monitoramento:</b>\n\n")
	for _, p := range products {
		response.WriteString(formatProduct(p))
		response.WriteString("\n")
	}
	h.reply(chatID, response.String(), true)
}

func (h *Handler) handleRemoveProduct(ctx context.Context, chatID int64, args []string) {
	id, err := parseID(args)
	if err != nil {
		h.reply(chatID, "❌ Formato incorreto.\n\nUso: /remove <id>\n\nExemplo: /remove 1", false)
		return
	}

	product, ok := h.ownedProduct(ctx, chatID, id, true)
	if !ok {
		return
	}

	if err := h.store.DeactivateProduct(ctx, id); err != nil {
		h.reply(chatID, fmt.Sprintf("❌ Erro ao remover produto: %v", err), false)
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Produto removido: %s", product.Name), false)
}

func (h *Handler) handleCheckProduct(ctx context.Context, chatID int64, args []string) {
	id, err := parseID(args)
	if err != nil {
		h.reply(chatID, "❌ Formato incorreto.\n\nUso: /check <id>\n\nExemplo: /check 1", false)
		return
	}

	product, ok := h.ownedProduct(ctx, chatID, id, true)
	if !ok {
		return
	}

	waitID := h.wait(chatID, "⏳ Verificando preço...")

	out := h.monitor.RefreshOne(ctx, *product)
	if !out.Succeeded() {
		h.editOrReply(chatID, waitID, fmt.Sprintf("❌ Erro ao verificar preço: %s", monitor.Describe(out)))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Produto: %s</b>\n\n", escapeHTML(displayName(product.Name, product.URL)))
	fmt.Fprintf(&b, "Preço atual: %s\n", formatPrice(out.Price))
	if out.Previous.Valid {
		fmt.Fprintf(&b, "Preço anterior: %s\n", formatPrice(out.Previous.Decimal))
		if out.Price.LessThan(out.Previous.Decimal) {
			drop := out.Previous.Decimal.Sub(out.Price).Div(out.Previous.Decimal).Mul(decimal.NewFromInt(100))
			fmt.Fprintf(&b, "🎉 Queda de %s%%!\n", drop.StringFixed(1))
		}
	}
	if out.Evaluation != nil {
		fmt.Fprintf(&b, "\n✅ Produto está no preço alvo! Economia de %s (%s%%)\n",
			formatPrice(out.Evaluation.Savings), out.Evaluation.SavingsPercent.StringFixed(2))
	}
	fmt.Fprintf(&b, "Link: %s", escapeHTML(product.URL))

	h.editOrReply(chatID, waitID, b.String())
}

func (h *Handler) handleTestURL(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		h.reply(chatID, "❌ Formato incorreto.\n\nUso: /test <URL>", false)
		return
	}

	waitID := h.wait(chatID, "⏳ Testando URL...")
	h.editOrReply(chatID, waitID, formatTestResult(h.scraper.TestURL(ctx, args[0])))
}

func (h *Handler) handleHistory(ctx context.Context, chatID int64, args []string) {
	id, err := parseID(args)
	if err != nil {
		h.reply(chatID, "❌ Formato incorreto.\n\nUso: /history <id>\n\nExemplo: /history 1", false)
		return
	}

	product, ok := h.ownedProduct(ctx, chatID, id, false)
	if !ok {
		return
	}

	series, err := h.store.Series(ctx, id)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("❌ Erro ao buscar histórico: %v", err), false)
		return
	}
	h.reply(chatID, formatHistory(*product, series), true)
}

func (h *Handler) handleAlerts(ctx context.Context, chatID int64) {
	alerts, err := h.store.Alerts(ctx)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("❌ Erro ao buscar alertas: %v", err), false)
		return
	}

	var b strings.Builder
	for _, a := range alerts {
		if a.Product.OwnerID != chatID {
			continue
		}
		fmt.Fprintf(&b, "🆔 <b>%d</b> %s\n", a.Product.ID, escapeHTML(displayName(a.Product.Name, a.Product.URL)))
		fmt.Fprintf(&b, "💰 %s (alvo %s, economia %s%%)\n\n",
			formatPrice(a.CurrentPrice), formatPrice(a.TargetPrice), a.SavingsPercent.StringFixed(2))
	}
	if b.Len() == 0 {
		h.reply(chatID, "🔕 Nenhum produto no preço alvo.", false)
		return
	}
	h.reply(chatID, "🔔 <b>Produtos no preço alvo:</b>\n\n"+b.String(), true)
}

// ownedProduct busca o produto e confere se pertence ao chat. Com activeOnly, produtos removidos contam como inexistentes.
func (h *Handler) ownedProduct(ctx context.Context, chatID, id int64, activeOnly bool) (*models.Product, bool) {
	product, err := h.store.GetProduct(ctx, id)
	if err != nil || product.OwnerID != chatID || (activeOnly && !product.Active) {
		if err != nil && !errors.Is(err, database.ErrProductNotFound) {
			h.logger.Error("erro ao buscar produto", "product_id", id, "err", err)
		}
		h.reply(chatID, "❌ Produto não encontrado.", false)
		return nil, false
	}
	return product, true
}

// reply envia a mensagem; se o HTML for rejeitado tenta sem formatação
func (h *Handler) reply(chatID int64, text string, html bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	if html {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	if _, err := h.sender.Send(msg); err != nil {
		h.logger.Warn("erro ao enviar mensagem", "chat_id", chatID, "err", err)
		if html {
			msg.ParseMode = ""
			if _, err := h.sender.Send(msg); err != nil {
				h.logger.Error("erro ao enviar mensagem sem formatação", "chat_id", chatID, "err", err)
			}
		}
	}
}

// wait envia uma mensagem provisória e devolve seu ID (0 se falhar)
func (h *Handler) wait(chatID int64, text string) int {
	sent, err := h.sender.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0
	}
	return sent.MessageID
}

// editOrReply substitui a mensagem provisória ou envia uma nova
func (h *Handler) editOrReply(chatID int64, messageID int, text string) {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		if _, err := h.sender.Send(edit); err == nil {
			return
		}
		h.logger.Warn("erro ao editar mensagem, enviando nova", "chat_id", chatID)
	}
	h.reply(chatID, text, true)
}
