package scraper

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLocaleFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"dólar com milhar", "$1,234.56", "1234.56"},
		{"formato europeu", "1.234,56", "1234.56"},
		{"vírgula decimal", "1234,56", "1234.56"},
		{"ponto decimal", "1234.56", "1234.56"},
		{"milhar com vírgula", "1,234", "1234"},
		{"vírgula com uma casa", "12,5", "12.5"},
		{"vários milhares europeu", "R$ 1.234.567,89", "1234567.89"},
		{"vários milhares americano", "US$ 1,234,567.89", "1234567.89"},
		{"inteiro", "999", "999"},
		{"moeda euro", "49,99 €", "49.99"},
		{"espaços e texto", "  Precio: $ 15.00 MXN ", "15"},
		{"ponto final solto", "1,234.", "1234"},
		{"decimal sem inteiro", ".99", "0.99"},
		{"apenas ponto é mantido", "1.234", "1.234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.input, nil)
			require.True(t, ok, "entrada %q deveria ser normalizada", tt.input)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNormalizeRepresentativeInputsAgree(t *testing.T) {
	for _, input := range []string{"$1,234.56", "1.234,56", "1234,56", "1234.56"} {
		got, ok := Normalize(input, nil)
		require.True(t, ok, input)
		assert.Equal(t, "1234.56", got.StringFixed(2), input)
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"vazio", ""},
		{"só texto", "Consultar preço"},
		{"zero", "0"},
		{"zero com decimais", "0,00"},
		{"negativo vira positivo mas zero não", "-0.00"},
		{"separadores sem dígitos", ".,"},
		{"dois pontos decimais", "1,234,56"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Normalize(tt.input, nil)
			assert.False(t, ok)
		})
	}
}

func TestNormalizeNeverReturnsNonPositive(t *testing.T) {
	// O sinal é removido pelo padrão de limpeza, então "-5" vira 5
	got, ok := Normalize("-5", nil)
	require.True(t, ok)
	assert.True(t, got.IsPositive())
}

func TestNormalizeCustomCleanPattern(t *testing.T) {
	got, ok := Normalize("1.234", digitsOnlyPattern)
	require.True(t, ok)
	assert.Equal(t, "1234", got.String())

	onlyDigitsAndComma := regexp.MustCompile(`[^\d,]`)
	got, ok = Normalize("1.299,90", onlyDigitsAndComma)
	require.True(t, ok)
	assert.Equal(t, "1299.9", got.String())
}
