package scraper

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// defaultCleanPattern mantém apenas dígitos, vírgula e ponto
	defaultCleanPattern = regexp.MustCompile(`[^\d,.]`)
	// digitsOnlyPattern é usado em elementos que contêm apenas a parte inteira
	digitsOnlyPattern = regexp.MustCompile(`[^\d]`)

	canonicalNumber = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// Normalize converte um texto de preço em decimal.
// O padrão clean remove os caracteres não significativos para o site; nil usa o padrão genérico.
// Retorna false se o texto não puder ser convertido ou se o valor for <= 0.
func Normalize(text string, clean *regexp.Regexp) (decimal.Decimal, bool) {
	if clean == nil {
		clean = defaultCleanPattern
	}
	cleaned := clean.ReplaceAllString(text, "")

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		// O separador que aparece por último é o decimal, o outro é de milhar
		decimalSep, thousandsSep := ".", ","
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			decimalSep, thousandsSep = ",", "."
		}
		cleaned = strings.ReplaceAll(cleaned, thousandsSep, "")
		cleaned = strings.ReplaceAll(cleaned, decimalSep, ".")
	case hasComma:
		parts := strings.Split(cleaned, ",")
		if len(parts[len(parts)-1]) <= 2 {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	// "1234." e ".99" são formas válidas de escrever um número
	cleaned = strings.TrimSuffix(cleaned, ".")
	if strings.HasPrefix(cleaned, ".") {
		cleaned = "0" + cleaned
	}
	if !canonicalNumber.MatchString(cleaned) {
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}
