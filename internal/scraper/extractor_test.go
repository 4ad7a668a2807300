package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(profiles ...SiteProfile) *Extractor {
	if len(profiles) == 0 {
		return NewExtractor(NewDefaultRegistry(), nil)
	}
	return NewExtractor(NewRegistry(profiles...), nil)
}

func TestExtractMercadoLibreFraction(t *testing.T) {
	markup := []byte(`<html><body>
		<h1 class="ui-pdp-title">Smartphone X</h1>
		<span class="andes-money-amount__fraction">1.234</span>
	</body></html>`)

	result, err := newTestExtractor().Extract(markup, "https://articulo.mercadolibre.com.mx/MLM-1")
	require.NoError(t, err)
	assert.Equal(t, "1234", result.Price.String())
	assert.Equal(t, "class=andes-money-amount__fraction", result.Rule)
	assert.Equal(t, "mercadolibre", result.Profile)
	assert.Equal(t, "Smartphone X", result.Name)
}

func TestExtractAcceptsBareDomain(t *testing.T) {
	markup := []byte(`<span class="andes-money-amount__fraction">2.500</span>`)

	result, err := newTestExtractor().Extract(markup, "mercadolibre.com.ar")
	require.NoError(t, err)
	assert.Equal(t, "2500", result.Price.String())
}

func TestExtractRulePrecedence(t *testing.T) {
	profile := SiteProfile{
		Name:    "loja",
		Domains: []string{"loja"},
		Rules:   []Rule{Class("preco-a"), ID("preco-b"), Class("preco-c")},
	}
	markup := []byte(`<div><span id="preco-b">R$ 49,90</span><span class="preco-c">10,00</span></div>`)

	result, err := newTestExtractor(profile).Extract(markup, "https://www.loja.com/item")
	require.NoError(t, err)
	assert.Equal(t, "49.9", result.Price.String())
	assert.Equal(t, "id=preco-b", result.Rule)
	assert.Equal(t, "R$ 49,90", result.RawText)
}

func TestExtractSkipsRuleWithUnparseableText(t *testing.T) {
	profile := SiteProfile{
		Name:    "loja",
		Domains: []string{"loja"},
		Rules:   []Rule{Class("preco"), Attr("data-price", "main")},
	}
	markup := []byte(`<div>
		<span class="destaque preco">Indisponível</span>
		<span data-price="main">1.299,00</span>
	</div>`)

	result, err := newTestExtractor(profile).Extract(markup, "https://loja.com")
	require.NoError(t, err)
	assert.Equal(t, "1299", result.Price.String())
	assert.Equal(t, "data-price=main", result.Rule)
}

func TestExtractFirstMatchingElementOnly(t *testing.T) {
	profile := SiteProfile{
		Name:    "loja",
		Domains: []string{"loja"},
		Rules:   []Rule{Class("preco")},
	}
	markup := []byte(`<span class="preco">$10.00</span><span class="preco">$5.00</span>`)

	result, err := newTestExtractor(profile).Extract(markup, "https://loja.com")
	require.NoError(t, err)
	assert.Equal(t, "10", result.Price.String())
}

func TestExtractFallsBackToGeneric(t *testing.T) {
	markup := []byte(`<html><head><title>Oferta</title>
		<script>var price = "$9,999.99";</script></head>
		<body><p>Hoy: $1,499.50 con envío</p></body></html>`)

	result, err := newTestExtractor().Extract(markup, "https://tienda.desconocida.com/p/1")
	require.NoError(t, err)
	assert.Equal(t, GenericRule, result.Rule)
	assert.Equal(t, GenericProfileName, result.Profile)
	assert.Equal(t, "1499.5", result.Price.String())
	assert.Equal(t, "Oferta", result.Name)
}

func TestExtractGenericWhenStructuralRulesMiss(t *testing.T) {
	markup := []byte(`<div class="nuevo-layout">Precio: 2.499,00</div>`)

	result, err := newTestExtractor().Extract(markup, "https://www.amazon.es/dp/1")
	require.NoError(t, err)
	assert.Equal(t, GenericRule, result.Rule)
	assert.Equal(t, "amazon", result.Profile)
	assert.Equal(t, "2499", result.Price.String())
}

func TestExtractGenericPatternOrder(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"euro", `<p>Ahora 19,95 €</p>`, "19.95"},
		{"rótulo precio", `<p>PRECIO: 350.00</p>`, "350"},
		{"rótulo price", `<p>Price 12.34</p>`, "12.34"},
		{"dólar antes do euro", `<p>12,00 € ou $15.00</p>`, "15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestExtractor().Extract([]byte(tt.markup), "https://exemplo.com")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Price.String())
		})
	}
}

func TestExtractNotFound(t *testing.T) {
	markup := []byte(`<html><body><p>Produto esgotado</p><p>$0.00</p></body></html>`)

	result, err := newTestExtractor().Extract(markup, "https://exemplo.com")
	require.ErrorIs(t, err, ErrPriceNotFound)
	assert.Equal(t, GenericProfileName, result.Profile)
}

func TestExtractNameSources(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"amazon", `<span id="productTitle"> Fone Bluetooth </span>`, "Fone Bluetooth"},
		{"og:title", `<head><meta property="og:title" content="Cafeteira"></head>`, "Cafeteira"},
		{"json-ld", `<script type="application/ld+json">{"@type":"Product","name":"Teclado"}</script>`, "Teclado"},
		{"h1", `<h1>Mouse</h1>`, "Mouse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup := []byte(tt.markup + `<p>$10.00</p>`)
			result, err := newTestExtractor().Extract(markup, "https://exemplo.com")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Name)
		})
	}
}
