package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa um produto sendo monitorado
type Product struct {
	ID           int64
	OwnerID      int64 // Chat do Telegram (ou 0 para a CLI) dono do produto
	URL          string
	Name         string
	StoreTag     string              // Perfil de loja detectado (amazon, mercadolibre, ...)
	TargetPrice  decimal.NullDecimal // Preço alvo opcional
	CurrentPrice decimal.NullDecimal // Cache da última observação
	LastChecked  time.Time
	Active       bool
	CreatedAt    time.Time
}

// HasTarget indica se o produto tem preço alvo configurado
func (p Product) HasTarget() bool {
	return p.TargetPrice.Valid && p.TargetPrice.Decimal.IsPositive()
}

// PriceObservation é uma leitura de preço imutável
type PriceObservation struct {
	ProductID  int64
	Price      decimal.Decimal
	ObservedAt time.Time
}

// AlertEvaluation compara o preço atual com o preço alvo de um produto.
// Nunca é persistida: os dois lados podem mudar entre avaliações.
type AlertEvaluation struct {
	Product        Product
	CurrentPrice   decimal.Decimal
	TargetPrice    decimal.Decimal
	Savings        decimal.Decimal
	SavingsPercent decimal.Decimal
}

// EvaluateAlert calcula a avaliação de alerta. Retorna false quando o produto
// não tem alvo ou quando o preço ainda está acima dele.
func EvaluateAlert(p Product, current decimal.Decimal) (AlertEvaluation, bool) {
	if !p.HasTarget() {
		return AlertEvaluation{}, false
	}
	target := p.TargetPrice.Decimal
	if current.GreaterThan(target) {
		return AlertEvaluation{}, false
	}

	savings := target.Sub(current)
	return AlertEvaluation{
		Product:        p,
		CurrentPrice:   current,
		TargetPrice:    target,
		Savings:        savings,
		SavingsPercent: savings.Div(target).Mul(decimal.NewFromInt(100)).Round(2),
	}, true
}
