package inventory

import (
	"context"
	"errors"
)

// ErrStoreMissing is returned by Load* when the backing store has never been written.
var ErrStoreMissing = errors.New("store does not exist")

// Repository persists whole collections. Save* overwrites the stored
// collection with exactly the given records, in order.
type Repository interface {
	LoadProducts(ctx context.Context) ([]Product, error)
	SaveProducts(ctx context.Context, products []Product) error
	LoadSales(ctx context.Context) ([]RecordedSale, error)
	SaveSales(ctx context.Context, sales []RecordedSale) error
	Ping(ctx context.Context) error
}
