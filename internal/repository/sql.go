package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"checkngo/internal/domain"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// SQLStore каталог поверх database/sql. Один и тот же SQL работает
// и с sqlite (modernc), и с postgres (lib/pq): оба понимают $N-плейсхолдеры.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

var _ Catalog = (*SQLStore)(nil)

// NewSQLStore открывает соединение и проверяет его ping-ом
func NewSQLStore(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if dialect == DialectSQLite {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY under concurrent checkouts
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(10)
	}
	return &SQLStore{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}, nil
}

// RunMigrations накатывает встроенные миграции для своего диалекта
func (s *SQLStore) RunMigrations() error {
	sub, err := fs.Sub(migrationsFS, "migrations/"+s.dialect)
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("could not create migration source: %w", err)
	}

	var driver database.Driver
	switch s.dialect {
	case DialectSQLite:
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
	default:
		driver, err = migratepg.WithInstance(s.db, &migratepg.Config{MigrationsTable: "catalog_schema_migrations"})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

const productColumns = `id, title, description, category, brand, sku, price, stock, thumbnail, tags, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var tags string
	if err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Category, &p.Brand, &p.SKU,
		&p.Price, &p.Stock, &p.Thumbnail, &tags, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	return p, nil
}

func encodeStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func (s *SQLStore) Create(ctx context.Context, p *domain.Product) error {
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if p.ID == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM products`).Scan(&p.ID); err != nil {
			return fmt.Errorf("failed to allocate product id: %w", err)
		}
	} else {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = $1`, p.ID).Scan(&exists)
		if err == nil {
			return ErrDuplicateID
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check product id: %w", err)
		}
	}

	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Title, p.Description, p.Category, p.Brand, p.SKU,
		p.Price.String(), p.Stock, p.Thumbnail, encodeStrings(p.Tags), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

func (s *SQLStore) Update(ctx context.Context, p *domain.Product) error {
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	p.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET title = $1, description = $2, category = $3, brand = $4, sku = $5,
		    price = $6, stock = $7, thumbnail = $8, tags = $9, updated_at = $10
		WHERE id = $11`,
		p.Title, p.Description, p.Category, p.Brand, p.SKU,
		p.Price.String(), p.Stock, p.Thumbnail, encodeStrings(p.Tags), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) UpdateStock(ctx context.Context, id, expected, newStock int64) (*domain.Product, error) {
	if newStock < 0 {
		return nil, ErrInvalidStock
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET stock = $1, updated_at = $2 WHERE id = $3 AND stock = $4`,
		newStock, s.now(), id, expected,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// either the row is gone or someone else wrote first
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	return s.GetByID(ctx, id)
}

func (s *SQLStore) SetStock(ctx context.Context, id, newStock int64) (*domain.Product, error) {
	if newStock < 0 {
		return nil, ErrInvalidStock
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET stock = $1, updated_at = $2 WHERE id = $3`,
		newStock, s.now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set stock: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// rowsAffected: без поддержки в драйвере нельзя отличить NotFound от Conflict
func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *SQLStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(f.TitleSubstring)) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE lower(title) LIKE $1 ESCAPE '\' ORDER BY id`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		// price and category compare in Go: sqlite keeps price as TEXT
		if matchesFilter(*p, f) {
			out = append(out, *p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// PutStore upsert магазина (используется сидером)
func (s *SQLStore) PutStore(ctx context.Context, st domain.Store) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, name, locations, open_time, close_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, locations = excluded.locations,
			open_time = excluded.open_time, close_time = excluded.close_time`,
		st.ID, st.Name, encodeStrings(st.Locations), st.OpenTime, st.CloseTime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert store: %w", err)
	}
	return nil
}

func scanStore(row rowScanner) (*domain.Store, error) {
	st := &domain.Store{}
	var locations string
	if err := row.Scan(&st.ID, &st.Name, &locations, &st.OpenTime, &st.CloseTime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(locations), &st.Locations); err != nil {
		return nil, fmt.Errorf("failed to decode locations: %w", err)
	}
	return st, nil
}

func (s *SQLStore) ListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, locations, open_time, close_time FROM stores ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Store, 0)
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetStoreByName(ctx context.Context, name string) (*domain.Store, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, locations, open_time, close_time FROM stores WHERE lower(name) = $1`,
		strings.ToLower(NormalizeStoreName(name)),
	)
	st, err := scanStore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query store: %w", err)
	}
	return st, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
