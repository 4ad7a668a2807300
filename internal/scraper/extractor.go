package scraper

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// GenericRule identifica preços encontrados pela busca genérica no texto
const GenericRule = "generic"

// Padrões genéricos de preço, tentados em ordem
var genericPricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s*(\d+(?:[.,]\d+)+)`),
	regexp.MustCompile(`(\d+(?:[.,]\d+)+)\s*€`),
	regexp.MustCompile(`(?i)precio[:\s]+\$?\s*(\d+(?:[.,]\d+)+)`),
	regexp.MustCompile(`(?i)price[:\s]+\$?\s*(\d+(?:[.,]\d+)+)`),
}

var jsonLDName = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)

// ExtractionResult descreve o preço encontrado e a regra que o produziu
type ExtractionResult struct {
	Price   decimal.Decimal
	RawText string
	Rule    string // Regra estrutural ou "generic"
	Profile string
	Name    string // Título do produto, quando encontrado
}

// Extractor aplica os perfis de loja sobre o HTML
type Extractor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExtractor cria um extrator
func NewExtractor(registry *Registry, logger *slog.Logger) *Extractor {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{registry: registry, logger: logger}
}

// Registry devolve o registro de perfis
func (e *Extractor) Registry() *Registry {
	return e.registry
}

// Extract procura o preço no HTML. pageURL pode ser a URL completa ou só o domínio.
// Retorna ErrPriceNotFound quando nenhuma regra encontra um preço válido.
func (e *Extractor) Extract(markup []byte, pageURL string) (ExtractionResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("erro ao parsear HTML: %w", err)
	}

	profile := e.registry.Resolve(pageURL)
	name := extractName(doc)

	if result, ok := e.extractStructural(doc, profile); ok {
		result.Name = name
		return result, nil
	}

	e.logger.Debug("regras da loja falharam, tentando busca genérica", "profile", profile.Name, "url", pageURL)

	if result, ok := extractGeneric(doc); ok {
		result.Profile = profile.Name
		result.Name = name
		return result, nil
	}

	return ExtractionResult{Profile: profile.Name, Name: name}, ErrPriceNotFound
}

func (e *Extractor) extractStructural(doc *goquery.Document, profile *SiteProfile) (ExtractionResult, bool) {
	for _, rule := range profile.Rules {
		sel := doc.Find(rule.Selector()).First()
		if sel.Length() == 0 {
			continue
		}

		text := strings.TrimSpace(sel.Text())
		clean := profile.Clean
		if rule.IntegerOnly {
			clean = digitsOnlyPattern
		}

		price, ok := Normalize(text, clean)
		if !ok {
			e.logger.Debug("texto do seletor não é um preço", "rule", rule.String(), "text", text)
			continue
		}
		return ExtractionResult{
			Price:   price,
			RawText: text,
			Rule:    rule.String(),
			Profile: profile.Name,
		}, true
	}
	return ExtractionResult{}, false
}

func extractGeneric(doc *goquery.Document) (ExtractionResult, bool) {
	body := doc.Selection.Clone()
	body.Find("script, style, noscript, template").Remove()
	text := body.Text()

	for _, pattern := range genericPricePatterns {
		m := pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		// Apenas o primeiro match de cada padrão é considerado
		if price, ok := Normalize(m[1], nil); ok {
			return ExtractionResult{
				Price:   price,
				RawText: m[1],
				Rule:    GenericRule,
			}, true
		}
	}
	return ExtractionResult{}, false
}

// extractName procura o título do produto
func extractName(doc *goquery.Document) string {
	nameSelectors := []string{
		"h1.ui-pdp-title",
		"#productTitle",
		"h1[data-testid='title']",
		"h1.x-item-title__mainTitle",
	}
	for _, selector := range nameSelectors {
		if name := strings.TrimSpace(doc.Find(selector).First().Text()); name != "" {
			return name
		}
	}

	if name, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok && strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name)
	}

	var name string
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if m := jsonLDName.FindStringSubmatch(s.Text()); len(m) > 1 {
			name = strings.TrimSpace(m[1])
		}
		return name == ""
	})
	if name != "" {
		return name
	}

	if name := strings.TrimSpace(doc.Find("h1").First().Text()); name != "" {
		return name
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
