package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sellorahq/sellora-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateUsername indicates the username is already taken.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrDuplicateEmail indicates the email is already registered.
var ErrDuplicateEmail = errors.New("email already exists")

// ErrDuplicateSKU indicates the product SKU is already in use.
var ErrDuplicateSKU = errors.New("sku already exists")

// UserStore captures identity and profile persistence needed by the auth flows.
type UserStore interface {
	// CreateUser inserts the user and its profile in one transaction;
	// a user row without a profile row is never observable.
	CreateUser(ctx context.Context, user models.User, profile models.Profile) (models.User, models.Profile, error)
	// FindByEmail looks up a user by email, case-insensitively.
	FindByEmail(ctx context.Context, email string) (models.User, error)
	ProfileByUserID(ctx context.Context, userID int64) (models.Profile, error)
	// StoreOTP overwrites any outstanding challenge on the profile.
	StoreOTP(ctx context.Context, userID int64, code string, issuedAt time.Time) error
	// ConsumeOTP clears the challenge only if the stored code still equals
	// code, reporting whether this call was the one that consumed it.
	// markVerified additionally flips the profile's verified flag.
	ConsumeOTP(ctx context.Context, userID int64, code string, markVerified bool) (bool, error)
}

// ProductStore captures catalog persistence for seller-owned products.
type ProductStore interface {
	CreateProduct(ctx context.Context, product models.Product) (models.Product, error)
	// ProductsByUser returns one page of the user's products plus the total count.
	ProductsByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Product, int, error)
	ProductByID(ctx context.Context, userID, productID int64) (models.Product, error)
	UpdateProduct(ctx context.Context, product models.Product) (models.Product, error)
	DeleteProduct(ctx context.Context, userID, productID int64) error
	HasProductNamed(ctx context.Context, userID int64, name string) (bool, error)
}
