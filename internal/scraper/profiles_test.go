package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolve(t *testing.T) {
	registry := NewDefaultRegistry()

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.amazon.com.mx/dp/B0TEST", "amazon"},
		{"https://articulo.mercadolibre.com.mx/MLM-123", "mercadolibre"},
		{"https://produto.mercadolivre.com.br/MLB-123#reviews", "mercadolibre"},
		{"https://WWW.EBAY.COM/itm/1", "ebay"},
		{"www.amazon.es", "amazon"},
		{"ebay.de:8080/itm/1", "ebay"},
		{"https://loja.exemplo.com/produto", GenericProfileName},
		{"", GenericProfileName},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, registry.Resolve(tt.url).Name)
		})
	}
}

func TestRegistryMatchesHostNotPath(t *testing.T) {
	registry := NewDefaultRegistry()
	profile := registry.Resolve("https://loja.exemplo.com/comparar/amazon")
	assert.Equal(t, GenericProfileName, profile.Name)
}

func TestRegistryFirstRegisteredWins(t *testing.T) {
	registry := NewRegistry(
		SiteProfile{Name: "primeiro", Domains: []string{"shop"}},
		SiteProfile{Name: "segundo", Domains: []string{"shop.example"}},
	)
	assert.Equal(t, "primeiro", registry.Resolve("https://shop.example.com").Name)
}

func TestGenericProfile(t *testing.T) {
	registry := NewRegistry()
	profile := registry.Resolve("https://qualquer.com")

	require.Same(t, registry.Generic(), profile)
	assert.Empty(t, profile.Rules)
	assert.Equal(t, `[^\d,.]`, profile.Clean.String())
}

func TestRegistryFillsCleanPattern(t *testing.T) {
	registry := NewRegistry(SiteProfile{Name: "loja", Domains: []string{"loja"}})
	profile := registry.Resolve("https://loja.com")
	require.NotNil(t, profile.Clean)
}

func TestRuleSelector(t *testing.T) {
	assert.Equal(t, `[class~="a-price-whole"]`, Class("a-price-whole").Selector())
	assert.Equal(t, `[id="prcIsum"]`, ID("prcIsum").Selector())
	assert.Equal(t, `[data-testid="price-part"]`, Attr("data-testid", "price-part").Selector())
	assert.Equal(t, "data-testid=price-part", Attr("data-testid", "price-part").String())
}
