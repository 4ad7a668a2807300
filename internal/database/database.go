package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"monitor-precos/internal/models"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// timeLayout tem largura fixa para que a ordenação textual siga a cronológica
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB encapsula a conexão com o banco SQLite
type DB struct {
	conn *sql.DB
}

var _ Store = (*DB)(nil)

// New cria uma nova instância do banco de dados
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("erro ao criar diretório do banco: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// Uma conexão serializa as escritas; cada observação é uma transação curta
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}

	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Debug("banco de dados inicializado", "path", dbPath)
	return db, nil
}

// Close fecha a conexão com o banco de dados
func (db *DB) Close() error {
	return db.conn.Close()
}

// init cria as tabelas necessárias
func (db *DB) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL DEFAULT 0,
		url TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		store_tag TEXT NOT NULL DEFAULT '',
		target_price TEXT,
		current_price TEXT,
		last_checked TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		UNIQUE (owner_id, url)
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id),
		price TEXT NOT NULL,
		observed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history (product_id, observed_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

const productColumns = "id, owner_id, url, name, store_tag, target_price, current_price, last_checked, active, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, extra ...any) (models.Product, error) {
	var (
		p           models.Product
		lastChecked sql.NullString
		createdAt   string
	)
	dest := []any{&p.ID, &p.OwnerID, &p.URL, &p.Name, &p.StoreTag, &p.TargetPrice, &p.CurrentPrice, &lastChecked, &p.Active, &createdAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return p, err
	}
	if lastChecked.Valid {
		p.LastChecked = parseTime(lastChecked.String)
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddProduct adiciona um novo produto e devolve seu ID
func (db *DB) AddProduct(ctx context.Context, p models.Product) (int64, error) {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO products (owner_id, url, name, store_tag, target_price, active, created_at) VALUES (?, ?, ?, ?, ?, 1, ?)",
		p.OwnerID, p.URL, p.Name, p.StoreTag, p.TargetPrice, formatTime(createdAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, ErrDuplicateProduct
		}
		return 0, fmt.Errorf("erro ao adicionar produto: %w", err)
	}
	return res.LastInsertId()
}

// AddProductWithPrice adiciona o produto e sua primeira observação; se uma falhar nada é gravado
func (db *DB) AddProductWithPrice(ctx context.Context, p models.Product, price decimal.Decimal, at time.Time) (int64, error) {
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
	observedAt := formatTime(at)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO products (owner_id, url, name, store_tag, target_price, current_price, last_checked, active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)",
		p.OwnerID, p.URL, p.Name, p.StoreTag, p.TargetPrice, price.String(), observedAt, formatTime(createdAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, ErrDuplicateProduct
		}
		return 0, fmt.Errorf("erro ao adicionar produto: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO price_history (product_id, price, observed_at) VALUES (?, ?, ?)",
		id, price.String(), observedAt,
	); err != nil {
		return 0, fmt.Errorf("erro ao registrar preço: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetProduct retorna um produto pelo ID
func (db *DB) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ActiveProducts retorna todos os produtos ativos
func (db *DB) ActiveProducts(ctx context.Context) ([]models.Product, error) {
	return db.queryProducts(ctx, "SELECT "+productColumns+" FROM products WHERE active = 1 ORDER BY id")
}

// ListProducts retorna os produtos ativos de um dono
func (db *DB) ListProducts(ctx context.Context, ownerID int64) ([]models.Product, error) {
	return db.queryProducts(ctx, "SELECT "+productColumns+" FROM products WHERE active = 1 AND owner_id = ? ORDER BY id", ownerID)
}

func (db *DB) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeactivateProduct desativa um produto, preservando o histórico
func (db *DB) DeactivateProduct(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE products SET active = 0 WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AppendObservation registra um preço. Registros existentes nunca são alterados.
func (db *DB) AppendObservation(ctx context.Context, productID int64, price decimal.Decimal, at time.Time) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE id = ?", productID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrProductNotFound
	}

	var last sql.NullString
	if err := tx.QueryRowContext(ctx, "SELECT MAX(observed_at) FROM price_history WHERE product_id = ?", productID).Scan(&last); err != nil {
		return err
	}
	observedAt := formatTime(at)
	if last.Valid && observedAt < last.String {
		return ErrOutOfOrder
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO price_history (product_id, price, observed_at) VALUES (?, ?, ?)",
		productID, price.String(), observedAt,
	); err != nil {
		return fmt.Errorf("erro ao registrar preço: %w", err)
	}

	// current_price é apenas um cache da última observação
	if _, err := tx.ExecContext(ctx,
		"UPDATE products SET current_price = ?, last_checked = ? WHERE id = ?",
		price.String(), observedAt, productID,
	); err != nil {
		return fmt.Errorf("erro ao atualizar preço atual: %w", err)
	}

	return tx.Commit()
}

// LatestPrice devolve o preço da observação mais recente
func (db *DB) LatestPrice(ctx context.Context, productID int64) (decimal.NullDecimal, error) {
	var price decimal.NullDecimal
	err := db.conn.QueryRowContext(ctx,
		"SELECT price FROM price_history WHERE product_id = ? ORDER BY observed_at DESC, id DESC LIMIT 1",
		productID,
	).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	return price, err
}

// Series devolve o histórico em ordem cronológica
func (db *DB) Series(ctx context.Context, productID int64) ([]models.PriceObservation, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT price, observed_at FROM price_history WHERE product_id = ? ORDER BY observed_at ASC, id ASC",
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []models.PriceObservation
	for rows.Next() {
		var (
			price      decimal.Decimal
			observedAt string
		)
		if err := rows.Scan(&price, &observedAt); err != nil {
			return nil, err
		}
		series = append(series, models.PriceObservation{
			ProductID:  productID,
			Price:      price,
			ObservedAt: parseTime(observedAt),
		})
	}
	return series, rows.Err()
}

// MinMax deriva o menor e o maior preço do histórico
func (db *DB) MinMax(ctx context.Context, productID int64) (decimal.NullDecimal, decimal.NullDecimal, error) {
	series, err := db.Series(ctx, productID)
	if err != nil {
		return decimal.NullDecimal{}, decimal.NullDecimal{}, err
	}
	min, max := models.SeriesMinMax(series)
	return min, max, nil
}

// Alerts devolve os produtos ativos cujo último preço está no alvo ou abaixo
func (db *DB) Alerts(ctx context.Context) ([]models.AlertEvaluation, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+productColumns+`,
			(SELECT h.price FROM price_history h WHERE h.product_id = p.id ORDER BY h.observed_at DESC, h.id DESC LIMIT 1)
		FROM products p
		WHERE p.active = 1 AND p.target_price IS NOT NULL
		ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	latest := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var price decimal.NullDecimal
		p, err := scanProduct(rows, &price)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
		if price.Valid {
			latest[p.ID] = price.Decimal
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alertsFrom(products, latest), nil
}
