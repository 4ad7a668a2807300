package bot

import (
	"fmt"
	"strings"

	"monitor-precos/internal/models"
	"monitor-precos/internal/scraper"

	"github.com/shopspring/decimal"
)

// escapeHTML escapa caracteres especiais do HTML
func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}

func formatPrice(d decimal.Decimal) string {
	return "$ " + d.StringFixed(2)
}

func displayName(name, url string) string {
	if name != "" {
		return name
	}
	return url
}

func formatProduct(p models.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆔 <b>ID: %d</b>\n", p.ID)
	fmt.Fprintf(&b, "📦 %s\n", escapeHTML(displayName(p.Name, p.URL)))

	if p.CurrentPrice.Valid {
		fmt.Fprintf(&b, "💰 <b>Preço atual: %s</b>\n", formatPrice(p.CurrentPrice.Decimal))
	} else {
		b.WriteString("💰 <b>Preço atual: Não verificado ainda</b>\n")
	}

	if p.HasTarget() {
		target := p.TargetPrice.Decimal
		switch {
		case !p.CurrentPrice.Valid:
			fmt.Fprintf(&b, "🎯 Preço alvo: %s\n", formatPrice(target))
		case p.CurrentPrice.Decimal.LessThanOrEqual(target):
			fmt.Fprintf(&b, "🎯 Preço alvo: %s ✅ <b>META ATINGIDA!</b>\n", formatPrice(target))
		default:
			diff := p.CurrentPrice.Decimal.Sub(target)
			pct := diff.Div(target).Mul(decimal.NewFromInt(100))
			fmt.Fprintf(&b, "🎯 Preço alvo: %s (faltam %s - %s%% acima)\n", formatPrice(target), formatPrice(diff), pct.StringFixed(1))
		}
	}

	if !p.LastChecked.IsZero() {
		fmt.Fprintf(&b, "🕐 Última verificação: %s\n", p.LastChecked.Local().Format("02/01/2006 15:04"))
	} else {
		b.WriteString("🕐 Última verificação: Nunca\n")
	}

	fmt.Fprintf(&b, "🔗 %s\n", escapeHTML(p.URL))
	return b.String()
}

func formatTestResult(res scraper.URLTestResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 <b>Teste de URL</b>\n\nLoja: %s\n", escapeHTML(res.Profile))
	if !res.Reachable {
		fmt.Fprintf(&b, "❌ URL inacessível: %s", escapeHTML(res.Error))
		return b.String()
	}
	if !res.Found {
		fmt.Fprintf(&b, "⚠️ Página acessível, mas %s", escapeHTML(res.Error))
		return b.String()
	}
	if res.Result.Name != "" {
		fmt.Fprintf(&b, "📦 %s\n", escapeHTML(res.Result.Name))
	}
	fmt.Fprintf(&b, "💰 Preço: <b>%s</b>\n", formatPrice(res.Result.Price))
	fmt.Fprintf(&b, "🧩 Regra: %s\n", escapeHTML(res.Result.Rule))
	fmt.Fprintf(&b, "📝 Texto: %s", escapeHTML(strings.TrimSpace(res.Result.RawText)))
	return b.String()
}

func formatHistory(p models.Product, series []models.PriceObservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 <b>Histórico: %s</b>\n\n", escapeHTML(displayName(p.Name, p.URL)))
	if len(series) == 0 {
		b.WriteString("Nenhum preço registrado ainda.")
		return b.String()
	}

	minPrice, maxPrice := models.SeriesMinMax(series)
	fmt.Fprintf(&b, "Mínimo: %s\nMáximo: %s\nRegistros: %d\n\n",
		formatPrice(minPrice.Decimal), formatPrice(maxPrice.Decimal), len(series))

	// Mais recentes primeiro
	for i := len(series) - 1; i >= 0 && i >= len(series)-historyLimit; i-- {
		obs := series[i]
		fmt.Fprintf(&b, "%s  %s\n", obs.ObservedAt.Local().Format("02/01/2006 15:04"), formatPrice(obs.Price))
	}
	return b.String()
}
