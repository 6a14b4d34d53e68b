package inventory

import (
	"context"
	"os"
	"testing"
	"time"
)

// Runs against a scratch database: TIENDA_TEST_DATABASE_URL=postgres://... go test ./internal/inventory
func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TIENDA_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TIENDA_TEST_DATABASE_URL not set")
	}

	s, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore_ReplaceAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestPostgres(t)

	if err := s.SaveProducts(ctx, []Product{
		{ID: 1, Name: "Teclado", UnitPrice: 25, Stock: 4},
		{ID: 2, Name: "Mouse", UnitPrice: 10, Stock: 0},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveProducts(ctx, []Product{{ID: 2, Name: "Mouse", UnitPrice: 12.5, Stock: 3}}); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := s.LoadProducts(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0] != (Product{ID: 2, Name: "Mouse", UnitPrice: 12.5, Stock: 3}) {
		t.Fatalf("products=%+v", got)
	}

	soldAt := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
	if err := s.SaveSales(ctx, []RecordedSale{
		{ID: 1, Sale: Sale{ProductID: 2, Quantity: 1, Customer: "Ana"}, SoldAt: soldAt},
	}); err != nil {
		t.Fatalf("save sales: %v", err)
	}
	sales, err := s.LoadSales(ctx)
	if err != nil {
		t.Fatalf("load sales: %v", err)
	}
	if len(sales) != 1 || sales[0].Customer != "Ana" || !sales[0].SoldAt.Equal(soldAt) {
		t.Fatalf("sales=%+v", sales)
	}

	if err := s.SaveSales(ctx, nil); err != nil {
		t.Fatalf("clear sales: %v", err)
	}
	if err := s.SaveProducts(ctx, nil); err != nil {
		t.Fatalf("clear products: %v", err)
	}
}
