package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL,
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_collection_seq ON documents (collection, seq);
`

// pq error code for unique_violation
const uniqueViolation = "23505"

// PostgresStore keeps every record as a JSONB document in a single table,
// partitioned by collection name.
type PostgresStore struct {
	*broadcaster
	db *sql.DB

	users     *pgCollection[domain.User]
	products  *pgCollection[domain.Product]
	customers *pgCollection[domain.Customer]
	orders    *pgCollection[domain.Order]
}

func NewPostgresStore(db *sql.DB, publisher Publisher, log *zap.Logger) *PostgresStore {
	b := newBroadcaster(publisher, log)
	return &PostgresStore{
		broadcaster: b,
		db:          db,
		users:       newPgCollection[domain.User](db, b),
		products:    newPgCollection[domain.Product](db, b),
		customers:   newPgCollection[domain.Customer](db, b),
		orders:      newPgCollection[domain.Order](db, b),
	}
}

func (s *PostgresStore) Users() Collection[domain.User]         { return s.users }
func (s *PostgresStore) Products() Collection[domain.Product]   { return s.products }
func (s *PostgresStore) Customers() Collection[domain.Customer] { return s.customers }
func (s *PostgresStore) Orders() Collection[domain.Order]       { return s.orders }

func (s *PostgresStore) Close() error { return s.db.Close() }

// Migrate creates the documents table when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: migrate: %w", domain.ErrStore, err)
	}
	return nil
}

type pgCollection[T domain.Record] struct {
	name string
	db   *sql.DB
	bus  *broadcaster
}

func newPgCollection[T domain.Record](db *sql.DB, bus *broadcaster) *pgCollection[T] {
	return &pgCollection[T]{name: collectionOf[T](), db: db, bus: bus}
}

func (c *pgCollection[T]) List(ctx context.Context) ([]T, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY seq ASC`,
		c.name,
	)
	if err != nil {
		return nil, storeErr("list", c.name, "*", err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, storeErr("list", c.name, "*", err)
		}
		v, err := decode[T](data)
		if err != nil {
			return nil, storeErr("decode", c.name, id, err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", c.name, "*", err)
	}
	return items, nil
}

func (c *pgCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	var data []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		c.name, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, notFound(c.name, id)
	}
	if err != nil {
		return zero, storeErr("get", c.name, id, err)
	}
	v, err := decode[T](data)
	if err != nil {
		return zero, storeErr("decode", c.name, id, err)
	}
	return v, nil
}

func (c *pgCollection[T]) Create(ctx context.Context, rec T) (string, error) {
	id := rec.Key()
	if err := checkKey(c.name, id); err != nil {
		return "", err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", storeErr("encode", c.name, id, err)
	}

	now := time.Now()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)`,
		c.name, id, data, now,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", duplicate(c.name, id)
		}
		return "", storeErr("create", c.name, id, err)
	}

	c.bus.emit(ctx, c.name, id, OpCreated)
	return id, nil
}

func (c *pgCollection[T]) Update(ctx context.Context, id string, fn func(*T) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("update", c.name, id, err)
	}
	defer tx.Rollback()

	var data []byte
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
		c.name, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c.name, id)
	}
	if err != nil {
		return storeErr("update", c.name, id, err)
	}

	working, err := decode[T](data)
	if err != nil {
		return storeErr("decode", c.name, id, err)
	}
	if err := fn(&working); err != nil {
		return err
	}
	if working.Key() != id {
		return fmt.Errorf("%w: %s key cannot change", domain.ErrValidation, singular(c.name))
	}

	updated, err := json.Marshal(working)
	if err != nil {
		return storeErr("encode", c.name, id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = $3, updated_at = $4 WHERE collection = $1 AND id = $2`,
		c.name, id, updated, time.Now(),
	); err != nil {
		return storeErr("update", c.name, id, err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", c.name, id, err)
	}

	c.bus.emit(ctx, c.name, id, OpUpdated)
	return nil
}

func (c *pgCollection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		c.name, id,
	)
	if err != nil {
		return storeErr("delete", c.name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete", c.name, id, err)
	}
	if n == 0 {
		return notFound(c.name, id)
	}

	c.bus.emit(ctx, c.name, id, OpDeleted)
	return nil
}

// ConnectPostgres opens a pooled connection and verifies it with a ping.
func ConnectPostgres(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
