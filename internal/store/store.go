package store

import (
	"context"
	"errors"
	"regexp"
)

// Keys of the two persisted entries.
const (
	ProductsKey = "pos_papel_y_luna_products_v1"
	SalesKey    = "pos_papel_y_luna_sales_v1"
)

var ErrInvalidKey = errors.New("invalid key")

// KV is the persistence adapter. Values are opaque JSON documents; Load
// reports ok=false when the key was never saved.
type KV interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,128}$`)

func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}
