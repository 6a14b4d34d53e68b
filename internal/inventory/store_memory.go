package inventory

import (
	"context"
	"sync"
)

type MemStore struct {
	mu       sync.RWMutex
	products []Product
	sales    []RecordedSale

	productsWritten bool
	salesWritten    bool
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) LoadProducts(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.productsWritten {
		return nil, ErrStoreMissing
	}
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *MemStore) SaveProducts(ctx context.Context, products []Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make([]Product, len(products))
	copy(s.products, products)
	s.productsWritten = true
	return nil
}

func (s *MemStore) LoadSales(ctx context.Context) ([]RecordedSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.salesWritten {
		return nil, ErrStoreMissing
	}
	out := make([]RecordedSale, len(s.sales))
	copy(out, s.sales)
	return out, nil
}

func (s *MemStore) SaveSales(ctx context.Context, sales []RecordedSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sales = make([]RecordedSale, len(sales))
	copy(s.sales, sales)
	s.salesWritten = true
	return nil
}
