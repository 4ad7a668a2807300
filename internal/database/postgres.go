package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monitor-precos/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresDB é o histórico de preços em PostgreSQL
type PostgresDB struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresDB)(nil)

// NewPostgres conecta ao PostgreSQL e cria o schema se necessário
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar ao PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("erro ao conectar ao PostgreSQL: %w", err)
	}

	db := &PostgresDB{pool: pool}
	if err := db.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (db *PostgresDB) init(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL DEFAULT 0,
		url TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		store_tag TEXT NOT NULL DEFAULT '',
		target_price NUMERIC,
		current_price NUMERIC,
		last_checked TIMESTAMPTZ,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (owner_id, url)
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(id),
		price NUMERIC NOT NULL CHECK (price > 0),
		observed_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history (product_id, observed_at);

	-- Bancos antigos usavam NUMERIC(14, 2), que arredonda o preço extraído
	ALTER TABLE products ALTER COLUMN target_price TYPE NUMERIC;
	ALTER TABLE products ALTER COLUMN current_price TYPE NUMERIC;
	ALTER TABLE price_history ALTER COLUMN price TYPE NUMERIC;
	`)
	if err != nil {
		return fmt.Errorf("erro ao criar schema: %w", err)
	}
	return nil
}

// Close fecha o pool de conexões
func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// NUMERIC é lido como texto para não perder precisão
const pgProductColumns = "id, owner_id, url, name, store_tag, target_price::text, current_price::text, last_checked, active, created_at"

func scanPgProduct(row pgx.Row, extra ...any) (models.Product, error) {
	var (
		p               models.Product
		target, current *string
		lastChecked     *time.Time
	)
	dest := []any{&p.ID, &p.OwnerID, &p.URL, &p.Name, &p.StoreTag, &target, &current, &lastChecked, &p.Active, &p.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return p, err
	}
	p.TargetPrice = nullDecimal(target)
	p.CurrentPrice = nullDecimal(current)
	if lastChecked != nil {
		p.LastChecked = *lastChecked
	}
	return p, nil
}

func nullDecimal(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func nullText(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

// AddProduct adiciona um novo produto e devolve seu ID
func (db *PostgresDB) AddProduct(ctx context.Context, p models.Product) (int64, error) {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO products (owner_id, url, name, store_tag, target_price, created_at)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6) RETURNING id`,
		p.OwnerID, p.URL, p.Name, p.StoreTag, nullText(p.TargetPrice), createdAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateProduct
		}
		return 0, fmt.Errorf("erro ao adicionar produto: %w", err)
	}
	return id, nil
}

// AddProductWithPrice adiciona o produto e sua primeira observação; se uma falhar nada é gravado
func (db *PostgresDB) AddProductWithPrice(ctx context.Context, p models.Product, price decimal.Decimal, at time.Time) (int64, error) {
	if !price.IsPositive() {
		return 0, ErrInvalidPrice
	}
	if at.IsZero() {
		at = time.Now()
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = at
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO products (owner_id, url, name, store_tag, target_price, current_price, last_checked, created_at)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8) RETURNING id`,
		p.OwnerID, p.URL, p.Name, p.StoreTag, nullText(p.TargetPrice), price.String(), at, createdAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateProduct
		}
		return 0, fmt.Errorf("erro ao adicionar produto: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO price_history (product_id, price, observed_at) VALUES ($1, $2::numeric, $3)",
		id, price.String(), at,
	); err != nil {
		return 0, fmt.Errorf("erro ao registrar preço: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// GetProduct retorna um produto pelo ID
func (db *PostgresDB) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	row := db.pool.QueryRow(ctx, "SELECT "+pgProductColumns+" FROM products WHERE id = $1", id)
	p, err := scanPgProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ActiveProducts retorna todos os produtos ativos
func (db *PostgresDB) ActiveProducts(ctx context.Context) ([]models.Product, error) {
	return db.queryProducts(ctx, "SELECT "+pgProductColumns+" FROM products WHERE active ORDER BY id")
}

// ListProducts retorna os produtos ativos de um dono
func (db *PostgresDB) ListProducts(ctx context.Context, ownerID int64) ([]models.Product, error) {
	return db.queryProducts(ctx, "SELECT "+pgProductColumns+" FROM products WHERE active AND owner_id = $1 ORDER BY id", ownerID)
}

func (db *PostgresDB) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanPgProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeactivateProduct desativa um produto, preservando o histórico
func (db *PostgresDB) DeactivateProduct(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, "UPDATE products SET active = FALSE WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AppendObservation registra um preço. Registros existentes nunca são alterados.
func (db *PostgresDB) AppendObservation(ctx context.Context, productID int64, price decimal.Decimal, at time.Time) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Trava a linha do produto: appends do mesmo produto ficam em fila
	var locked int64
	err = tx.QueryRow(ctx, "SELECT id FROM products WHERE id = $1 FOR UPDATE", productID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}

	var last *time.Time
	if err := tx.QueryRow(ctx, "SELECT MAX(observed_at) FROM price_history WHERE product_id = $1", productID).Scan(&last); err != nil {
		return err
	}
	if last != nil && at.Before(*last) {
		return ErrOutOfOrder
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO price_history (product_id, price, observed_at) VALUES ($1, $2::numeric, $3)",
		productID, price.String(), at,
	); err != nil {
		return fmt.Errorf("erro ao registrar preço: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE products SET current_price = $1::numeric, last_checked = $2 WHERE id = $3",
		price.String(), at, productID,
	); err != nil {
		return fmt.Errorf("erro ao atualizar preço atual: %w", err)
	}

	return tx.Commit(ctx)
}

// LatestPrice devolve o preço da observação mais recente
func (db *PostgresDB) LatestPrice(ctx context.Context, productID int64) (decimal.NullDecimal, error) {
	var price *string
	err := db.pool.QueryRow(ctx,
		"SELECT price::text FROM price_history WHERE product_id = $1 ORDER BY observed_at DESC, id DESC LIMIT 1",
		productID,
	).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return nullDecimal(price), nil
}

// Series devolve o histórico em ordem cronológica
func (db *PostgresDB) Series(ctx context.Context, productID int64) ([]models.PriceObservation, error) {
	rows, err := db.pool.Query(ctx,
		"SELECT price::text, observed_at FROM price_history WHERE product_id = $1 ORDER BY observed_at ASC, id ASC",
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []models.PriceObservation
	for rows.Next() {
		var (
			priceText  string
			observedAt time.Time
		)
		if err := rows.Scan(&priceText, &observedAt); err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(priceText)
		if err != nil {
			return nil, err
		}
		series = append(series, models.PriceObservation{
			ProductID:  productID,
			Price:      price,
			ObservedAt: observedAt,
		})
	}
	return series, rows.Err()
}

// MinMax deriva o menor e o maior preço do histórico
func (db *PostgresDB) MinMax(ctx context.Context, productID int64) (decimal.NullDecimal, decimal.NullDecimal, error) {
	series, err := db.Series(ctx, productID)
	if err != nil {
		return decimal.NullDecimal{}, decimal.NullDecimal{}, err
	}
	min, max := models.SeriesMinMax(series)
	return min, max, nil
}

// Alerts devolve os produtos ativos cujo último preço está no alvo ou abaixo
func (db *PostgresDB) Alerts(ctx context.Context) ([]models.AlertEvaluation, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+pgProductColumns+`,
			(SELECT h.price::text FROM price_history h WHERE h.product_id = p.id ORDER BY h.observed_at DESC, h.id DESC LIMIT 1)
		FROM products p
		WHERE p.active AND p.target_price IS NOT NULL
		ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	latest := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var price *string
		p, err := scanPgProduct(rows, &price)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
		if d := nullDecimal(price); d.Valid {
			latest[p.ID] = d.Decimal
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alertsFrom(products, latest), nil
}
