package database

import (
	"context"
	"errors"
	"time"

	"monitor-precos/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound indica que o produto não existe
	ErrProductNotFound = errors.New("produto não encontrado")
	// ErrDuplicateProduct indica que o dono já monitora essa URL
	ErrDuplicateProduct = errors.New("este produto já está sendo monitorado")
	// ErrInvalidPrice indica uma observação com preço <= 0
	ErrInvalidPrice = errors.New("preço deve ser maior que zero")
	// ErrOutOfOrder indica uma observação anterior à última já registrada
	ErrOutOfOrder = errors.New("observação anterior à última registrada")
)

// Store é o histórico de preços e o cadastro de produtos
type Store interface {
	AddProduct(ctx context.Context, p models.Product) (int64, error)
	// AddProductWithPrice cadastra o produto já com a primeira observação, na mesma transação
	AddProductWithPrice(ctx context.Context, p models.Product, price decimal.Decimal, at time.Time) (int64, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ActiveProducts(ctx context.Context) ([]models.Product, error)
	ListProducts(ctx context.Context, ownerID int64) ([]models.Product, error)
	DeactivateProduct(ctx context.Context, id int64) error

	AppendObservation(ctx context.Context, productID int64, price decimal.Decimal, at time.Time) error
	LatestPrice(ctx context.Context, productID int64) (decimal.NullDecimal, error)
	Series(ctx context.Context, productID int64) ([]models.PriceObservation, error)
	MinMax(ctx context.Context, productID int64) (min, max decimal.NullDecimal, err error)
	Alerts(ctx context.Context) ([]models.AlertEvaluation, error)

	Close() error
}

// Open escolhe o banco: PostgreSQL quando databaseURL é informado, senão SQLite
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if databaseURL != "" {
		return NewPostgres(ctx, databaseURL)
	}
	return New(sqlitePath)
}

// alertsFrom avalia os produtos ativos contra o último preço de cada um
func alertsFrom(products []models.Product, latest map[int64]decimal.Decimal) []models.AlertEvaluation {
	var alerts []models.AlertEvaluation
	for _, p := range products {
		price, ok := latest[p.ID]
		if !ok {
			continue
		}
		if eval, ok := models.EvaluateAlert(p, price); ok {
			alerts = append(alerts, eval)
		}
	}
	return alerts
}
