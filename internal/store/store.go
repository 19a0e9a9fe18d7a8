package store

import (
	"context"
)

// User is a row of <schema>.users.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Product is a row of <schema>.products.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
}

// SeedStore abstracts the writes the seed flow needs.
type SeedStore interface {
	// InsertSeed inserts u and p in one transaction and fills their IDs.
	InsertSeed(ctx context.Context, u *User, p *Product) error
	// UpdateSeed renames a user and a product in one transaction.
	UpdateSeed(ctx context.Context, userID int64, username string, productID int64, productName string) error
	Close() error
}
