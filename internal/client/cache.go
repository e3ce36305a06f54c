package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"homekitchen/internal/models"

	_ "modernc.org/sqlite"
)

// LocalCache is the client-held copy of the cart.
type LocalCache interface {
	LoadCart(ctx context.Context) ([]models.CartItem, error)
	SaveCart(ctx context.Context, items []models.CartItem) error
	ClearCart(ctx context.Context) error
	LoadDelivery(ctx context.Context) (*models.DeliveryInfo, error)
	SaveDelivery(ctx context.Context, info *models.DeliveryInfo) error
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cart_items (
    position    INTEGER PRIMARY KEY,
    kitchen_id  TEXT    NOT NULL,
    dish_name   TEXT    NOT NULL,
    quantity    REAL    NOT NULL,
    price       REAL    NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const deliveryKey = "delivery_info"

// SQLiteCache stores the cart in a local SQLite file.
type SQLiteCache struct {
	db *sql.DB
}

func OpenSQLiteCache(path string) (*SQLiteCache, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func (s *SQLiteCache) LoadCart(ctx context.Context) ([]models.CartItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kitchen_id, dish_name, quantity, price FROM cart_items ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load cart: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var (
			item     models.CartItem
			quantity float64
			price    float64
		)
		if err := rows.Scan(&item.KitchenID, &item.DishName, &quantity, &price); err != nil {
			return nil, fmt.Errorf("sqlite: scan cart item: %w", err)
		}
		item.Quantity = models.Num(quantity)
		item.Price = models.Num(price)
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveCart replaces the stored cart in one transaction.
func (s *SQLiteCache) SaveCart(ctx context.Context, items []models.CartItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items`); err != nil {
		return fmt.Errorf("sqlite: clear cart: %w", err)
	}
	for i, item := range items {
		kitchen := item.KitchenID
		if kitchen == "" {
			kitchen = item.ChefID
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cart_items (position, kitchen_id, dish_name, quantity, price) VALUES (?, ?, ?, ?, ?)`,
			i, kitchen, item.DishName, item.Quantity.Value, item.Price.Value)
		if err != nil {
			return fmt.Errorf("sqlite: insert cart item: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteCache) ClearCart(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items`); err != nil {
		return fmt.Errorf("sqlite: clear cart: %w", err)
	}
	return nil
}

func (s *SQLiteCache) LoadDelivery(ctx context.Context) (*models.DeliveryInfo, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, deliveryKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load delivery info: %w", err)
	}

	var info models.DeliveryInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("sqlite: decode delivery info: %w", err)
	}
	return &info, nil
}

// SaveDelivery stores the delivery draft; nil removes it.
func (s *SQLiteCache) SaveDelivery(ctx context.Context, info *models.DeliveryInfo) error {
	if info == nil {
		_, err := s.db.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, deliveryKey)
		return err
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		deliveryKey, string(raw))
	if err != nil {
		return fmt.Errorf("sqlite: save delivery info: %w", err)
	}
	return nil
}
