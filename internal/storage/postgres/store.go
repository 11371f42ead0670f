package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sellorahq/sellora-be/internal/models"
	"github.com/sellorahq/sellora-be/internal/storage"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.UserStore    = (*Store)(nil)
	_ storage.ProductStore = (*Store)(nil)
)

// Store provides Postgres-backed persistence for users, profiles, and products.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT users_username_key UNIQUE (username),
			CONSTRAINT users_email_key UNIQUE (email)
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			phone_no TEXT,
			business_name TEXT,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			otp TEXT,
			otp_created_at TIMESTAMPTZ,
			login_type TEXT NOT NULL DEFAULT 'email'
		);`,
		`CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			slug TEXT UNIQUE NOT NULL
		);`,
		`INSERT INTO categories (name, slug) VALUES
			('General', 'general'),
			('Electronics', 'electronics'),
			('Apparel', 'apparel'),
			('Groceries', 'groceries')
		ON CONFLICT (name) DO NOTHING;`,
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			product_name TEXT NOT NULL,
			category_id BIGINT NOT NULL REFERENCES categories(id),
			sku TEXT NOT NULL DEFAULT '',
			product_img TEXT,
			unit_price NUMERIC(10,2) NOT NULL,
			quantity INTEGER NOT NULL,
			description TEXT,
			CONSTRAINT products_sku_key UNIQUE (sku)
		);`,
		`CREATE INDEX IF NOT EXISTS products_user_id_idx ON products (user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// CreateUser inserts the user and its profile in a single transaction.
func (s *Store) CreateUser(ctx context.Context, user models.User, profile models.Profile) (models.User, models.Profile, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.User{}, models.Profile{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertUser = `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, LOWER($2), $3)
		RETURNING id, username, email, password_hash, created_at;
	`
	row := tx.QueryRow(ctx, insertUser, user.Username, user.Email, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		return models.User{}, models.Profile{}, mapUniqueViolation(err)
	}

	if profile.LoginType == "" {
		profile.LoginType = models.LoginTypeEmail
	}
	const insertProfile = `
		INSERT INTO profiles (user_id, phone_no, business_name, login_type)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, phone_no, business_name, verified, otp, otp_created_at, login_type;
	`
	row = tx.QueryRow(ctx, insertProfile, created.ID, profile.PhoneNo, profile.BusinessName, profile.LoginType)
	createdProfile, err := scanProfile(row)
	if err != nil {
		return models.User{}, models.Profile{}, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.User{}, models.Profile{}, fmt.Errorf("commit tx: %w", err)
	}
	return created, createdProfile, nil
}

// FindByEmail fetches a user by email, case-insensitively.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email = LOWER($1);
	`
	row := s.pool.QueryRow(ctx, query, strings.TrimSpace(email))
	return scanUser(row)
}

// ProfileByUserID fetches the profile belonging to a user.
func (s *Store) ProfileByUserID(ctx context.Context, userID int64) (models.Profile, error) {
	const query = `
		SELECT user_id, phone_no, business_name, verified, otp, otp_created_at, login_type
		FROM profiles
		WHERE user_id = $1;
	`
	row := s.pool.QueryRow(ctx, query, userID)
	return scanProfile(row)
}

// StoreOTP overwrites the profile's challenge fields with a fresh code.
func (s *Store) StoreOTP(ctx context.Context, userID int64, code string, issuedAt time.Time) error {
	const query = `
		UPDATE profiles SET otp = $2, otp_created_at = $3
		WHERE user_id = $1;
	`
	tag, err := s.pool.Exec(ctx, query, userID, code, issuedAt)
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ConsumeOTP clears the challenge with a compare-and-clear update so two
// concurrent verifies of the same code cannot both succeed.
func (s *Store) ConsumeOTP(ctx context.Context, userID int64, code string, markVerified bool) (bool, error) {
	const query = `
		UPDATE profiles
		SET otp = NULL, otp_created_at = NULL, verified = verified OR $3
		WHERE user_id = $1 AND otp = $2;
	`
	tag, err := s.pool.Exec(ctx, query, userID, code, markVerified)
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateProduct inserts a product row owned by the given user.
func (s *Store) CreateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	const query = `
		INSERT INTO products (user_id, product_name, category_id, sku, product_img, unit_price, quantity, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, user_id, product_name, category_id, sku, product_img, unit_price, quantity, description;
	`
	row := s.pool.QueryRow(ctx, query,
		product.UserID, product.ProductName, product.CategoryID, product.SKU,
		product.ProductImg, product.UnitPrice, product.Quantity, product.Description)
	created, err := scanProduct(row)
	if err != nil {
		return models.Product{}, mapUniqueViolation(err)
	}
	return created, nil
}

// ProductsByUser returns one page of products plus the user's total count.
func (s *Store) ProductsByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Product, int, error) {
	const query = `
		SELECT id, user_id, product_name, category_id, sku, product_img, unit_price, quantity, description,
			COUNT(*) OVER ()
		FROM products
		WHERE user_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	var total int
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.UserID, &p.ProductName, &p.CategoryID, &p.SKU,
			&p.ProductImg, &p.UnitPrice, &p.Quantity, &p.Description, &total); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		// The windowed count is only present on returned rows; fall back
		// when the requested page is past the end.
		const countQuery = `SELECT COUNT(*) FROM products WHERE user_id = $1;`
		if err := s.pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count products: %w", err)
		}
	}
	return products, total, nil
}

// ProductByID fetches a product only if it belongs to the given user.
func (s *Store) ProductByID(ctx context.Context, userID, productID int64) (models.Product, error) {
	const query = `
		SELECT id, user_id, product_name, category_id, sku, product_img, unit_price, quantity, description
		FROM products
		WHERE id = $1 AND user_id = $2;
	`
	row := s.pool.QueryRow(ctx, query, productID, userID)
	return scanProduct(row)
}

// UpdateProduct saves the full product row, keyed on (id, user_id).
func (s *Store) UpdateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	const query = `
		UPDATE products
		SET product_name = $3, category_id = $4, sku = $5, product_img = $6,
			unit_price = $7, quantity = $8, description = $9
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, product_name, category_id, sku, product_img, unit_price, quantity, description;
	`
	row := s.pool.QueryRow(ctx, query,
		product.ID, product.UserID, product.ProductName, product.CategoryID, product.SKU,
		product.ProductImg, product.UnitPrice, product.Quantity, product.Description)
	updated, err := scanProduct(row)
	if err != nil {
		return models.Product{}, mapUniqueViolation(err)
	}
	return updated, nil
}

// DeleteProduct removes a product only if it belongs to the given user.
func (s *Store) DeleteProduct(ctx context.Context, userID, productID int64) error {
	const query = `DELETE FROM products WHERE id = $1 AND user_id = $2;`
	tag, err := s.pool.Exec(ctx, query, productID, userID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// HasProductNamed reports whether the user already owns a product with the name.
func (s *Store) HasProductNamed(ctx context.Context, userID int64, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM products WHERE user_id = $1 AND product_name = $2);`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, userID, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product name: %w", err)
	}
	return exists, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func scanProfile(row pgx.Row) (models.Profile, error) {
	var profile models.Profile
	if err := row.Scan(&profile.UserID, &profile.PhoneNo, &profile.BusinessName,
		&profile.Verified, &profile.OTP, &profile.OTPCreatedAt, &profile.LoginType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, storage.ErrNotFound
		}
		return models.Profile{}, err
	}
	return profile, nil
}

func scanProduct(row pgx.Row) (models.Product, error) {
	var p models.Product
	if err := row.Scan(&p.ID, &p.UserID, &p.ProductName, &p.CategoryID, &p.SKU,
		&p.ProductImg, &p.UnitPrice, &p.Quantity, &p.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Product{}, storage.ErrNotFound
		}
		return models.Product{}, err
	}
	return p, nil
}

// mapUniqueViolation turns Postgres unique-constraint errors into the
// storage sentinels, keyed by constraint name.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return storage.ErrDuplicateUsername
		case "users_email_key":
			return storage.ErrDuplicateEmail
		case "products_sku_key":
			return storage.ErrDuplicateSKU
		}
	}
	return err
}
