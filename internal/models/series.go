package models

import "github.com/shopspring/decimal"

// SeriesMinMax deriva o menor e o maior preço de uma série de observações
func SeriesMinMax(series []PriceObservation) (min, max decimal.NullDecimal) {
	for _, obs := range series {
		if !min.Valid || obs.Price.LessThan(min.Decimal) {
			min = decimal.NewNullDecimal(obs.Price)
		}
		if !max.Valid || obs.Price.GreaterThan(max.Decimal) {
			max = decimal.NewNullDecimal(obs.Price)
		}
	}
	return min, max
}
