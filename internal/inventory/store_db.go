package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	writeTimeout = 5 * time.Second

	pgUndefinedTable = "42P01"
)

const schema = `
CREATE TABLE IF NOT EXISTS productos (
	id_producto       INTEGER PRIMARY KEY,
	nombre            TEXT NOT NULL,
	precio_unitario   DOUBLE PRECISION NOT NULL,
	cantidad_en_stock INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS ventas (
	id_venta       INTEGER PRIMARY KEY,
	id_producto    INTEGER NOT NULL,
	nombre_cliente TEXT NOT NULL,
	cantidad       INTEGER NOT NULL,
	fecha_venta    TIMESTAMPTZ NOT NULL
);
`

// PostgresStore mirrors the two collections into the productos and ventas
// tables. Saves replace the table contents inside one transaction.
type PostgresStore struct {
	db *sql.DB
}

var _ Repository = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects through the pgx database/sql driver and creates the
// tables when they are absent.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	s := NewPostgresStore(db)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if err := withTimeout(ctx, writeTimeout, func(ctx context.Context) error {
		_, err := db.ExecContext(ctx, schema)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) LoadProducts(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id_producto, nombre, precio_unitario, cantidad_en_stock
			FROM productos
			ORDER BY id_producto ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			var p Product
			if err := rows.Scan(&p.ID, &p.Name, &p.UnitPrice, &p.Stock); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if isUndefinedTable(err) {
		return nil, ErrStoreMissing
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) SaveProducts(ctx context.Context, products []Product) error {
	return s.replace(ctx, "productos", `
		INSERT INTO productos (id_producto, nombre, precio_unitario, cantidad_en_stock)
		VALUES ($1, $2, $3, $4)
	`, len(products), func(i int) []any {
		p := products[i]
		return []any{p.ID, p.Name, p.UnitPrice, p.Stock}
	})
}

func (s *PostgresStore) LoadSales(ctx context.Context) ([]RecordedSale, error) {
	var out []RecordedSale

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id_venta, id_producto, nombre_cliente, cantidad, fecha_venta
			FROM ventas
			ORDER BY id_venta ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]RecordedSale, 0, 16)
		for rows.Next() {
			var v RecordedSale
			if err := rows.Scan(&v.ID, &v.ProductID, &v.Customer, &v.Quantity, &v.SoldAt); err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	if isUndefinedTable(err) {
		return nil, ErrStoreMissing
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) SaveSales(ctx context.Context, sales []RecordedSale) error {
	return s.replace(ctx, "ventas", `
		INSERT INTO ventas (id_venta, id_producto, nombre_cliente, cantidad, fecha_venta)
		VALUES ($1, $2, $3, $4, $5)
	`, len(sales), func(i int) []any {
		v := sales[i]
		return []any{v.ID, v.ProductID, v.Customer, v.Quantity, v.SoldAt}
	})
}

// replace empties table and inserts n rows built by args.
func (s *PostgresStore) replace(ctx context.Context, table, insert string, n int, args func(i int) []any) error {
	return withTimeout(ctx, writeTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := 0; i < n; i++ {
			if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}
