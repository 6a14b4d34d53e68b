package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Options struct {
	Log     *zap.Logger
	Metrics *Metrics

	// Location sets calendar-day boundaries for sale filters and the export
	// timestamp format. Defaults to time.Local.
	Location *time.Location
	Now      func() time.Time

	// StrictLoad makes Open fail on an unreadable store instead of
	// reinitializing it empty.
	StrictLoad bool
}

// Service owns the catalog and the ledger. Every mutation runs under one
// write lock covering validation, the in-memory change and persistence.
type Service struct {
	mu      sync.RWMutex
	repo    Repository
	catalog *Catalog
	ledger  *Ledger

	log     *zap.Logger
	metrics *Metrics
	loc     *time.Location
	now     func() time.Time
}

// Open loads both collections from repo. A store that was never written is
// initialized empty and saved right away.
func Open(ctx context.Context, repo Repository, opts Options) (*Service, error) {
	s := &Service{
		repo:    repo,
		log:     opts.Log,
		metrics: opts.Metrics,
		loc:     opts.Location,
		now:     opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}

	products, err := repo.LoadProducts(ctx)
	if err != nil {
		if err := s.heal(collectionProducts, err, opts.StrictLoad); err != nil {
			return nil, err
		}
		products = nil
		if err := repo.SaveProducts(ctx, []Product{}); err != nil {
			return nil, fmt.Errorf("init %s: %w", collectionProducts, err)
		}
	}

	sales, err := repo.LoadSales(ctx)
	if err != nil {
		if err := s.heal(collectionSales, err, opts.StrictLoad); err != nil {
			return nil, err
		}
		sales = nil
		if err := repo.SaveSales(ctx, []RecordedSale{}); err != nil {
			return nil, fmt.Errorf("init %s: %w", collectionSales, err)
		}
	}

	s.catalog = NewCatalog(products)
	s.ledger = NewLedger(sales)
	s.metrics.catalogSize(s.catalog.Len())

	s.log.Info("inventory loaded",
		zap.Int("products", s.catalog.Len()),
		zap.Int("sales", s.ledger.Len()),
	)
	return s, nil
}

func (s *Service) heal(collection string, loadErr error, strict bool) error {
	if errors.Is(loadErr, ErrStoreMissing) {
		s.log.Info("store not found, starting empty", zap.String("collection", collection))
		return nil
	}
	if strict {
		return fmt.Errorf("load %s: %w", collection, loadErr)
	}
	s.log.Warn("store unreadable, reinitializing empty",
		zap.String("collection", collection),
		zap.Error(loadErr),
	)
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) saveProducts(ctx context.Context) error {
	if err := s.repo.SaveProducts(ctx, s.catalog.Products()); err != nil {
		s.metrics.storeFailed(collectionProducts)
		return fmt.Errorf("save %s: %w", collectionProducts, err)
	}
	return nil
}

func (s *Service) saveSales(ctx context.Context) error {
	if err := s.repo.SaveSales(ctx, s.ledger.Sales()); err != nil {
		s.metrics.storeFailed(collectionSales)
		return fmt.Errorf("save %s: %w", collectionSales, err)
	}
	return nil
}

func (s *Service) AddProduct(ctx context.Context, in ProductInput) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.catalog.Products()
	p, err := s.catalog.Add(in)
	if err != nil {
		return Product{}, err
	}
	if err := s.saveProducts(ctx); err != nil {
		s.catalog = NewCatalog(snap)
		return Product{}, err
	}

	s.metrics.catalogSize(s.catalog.Len())
	s.log.Info("product added", zap.Int("id_producto", p.ID), zap.String("nombre", p.Name))
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int, patch ProductPatch) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.catalog.Products()
	p, err := s.catalog.Update(id, patch)
	if err != nil {
		return Product{}, err
	}
	if err := s.saveProducts(ctx); err != nil {
		s.catalog = NewCatalog(snap)
		return Product{}, err
	}

	s.log.Info("product updated", zap.Int("id_producto", p.ID))
	return p, nil
}

// DeleteProduct refuses products that have sales, then unknown ids.
func (s *Service) DeleteProduct(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger.References(id) {
		return &ConflictError{ProductID: id}
	}

	snap := s.catalog.Products()
	if !s.catalog.Remove(id) {
		return productNotFound(id)
	}
	if err := s.saveProducts(ctx); err != nil {
		s.catalog = NewCatalog(snap)
		return err
	}

	s.metrics.catalogSize(s.catalog.Len())
	s.log.Info("product deleted", zap.Int("id_producto", id))
	return nil
}

func (s *Service) GetProduct(ctx context.Context, id int) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.catalog.Get(id)
	if !ok {
		return Product{}, productNotFound(id)
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.catalog.Filter(f)
}

// RecordSale decrements stock and appends to the ledger as one unit: if
// either write fails, both collections are put back as they were.
func (s *Service) RecordSale(ctx context.Context, sale Sale) (RecordedSale, error) {
	sale, err := sale.normalize()
	if err != nil {
		s.metrics.saleRejected(rejectInvalid)
		return RecordedSale{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.catalog.Products()
	before, err := s.catalog.take(sale.ProductID, sale.Quantity)
	if err != nil {
		if IsNotFound(err) {
			s.metrics.saleRejected(rejectNotFound)
		} else {
			s.metrics.saleRejected(rejectInsufficient)
		}
		return RecordedSale{}, err
	}
	if err := s.saveProducts(ctx); err != nil {
		s.catalog = NewCatalog(snap)
		return RecordedSale{}, err
	}

	n := s.ledger.Len()
	rs := s.ledger.append(sale, s.now().In(s.loc).Truncate(time.Microsecond))
	if err := s.saveSales(ctx); err != nil {
		s.ledger.truncate(n)
		s.catalog = NewCatalog(snap)
		if rerr := s.saveProducts(ctx); rerr != nil {
			s.log.Error("restore stock after failed sale write",
				zap.Int("id_producto", sale.ProductID),
				zap.Error(rerr),
			)
		}
		return RecordedSale{}, err
	}

	s.metrics.saleRecorded(sale.Quantity)
	s.log.Info("sale recorded",
		zap.Int("id_venta", rs.ID),
		zap.Int("id_producto", rs.ProductID),
		zap.Int("cantidad", rs.Quantity),
		zap.Int("stock_restante", before.Stock-rs.Quantity),
	)
	return rs, nil
}

func (s *Service) GetSale(ctx context.Context, id int) (RecordedSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.ledger.Get(id)
	if !ok {
		return RecordedSale{}, saleNotFound(id)
	}
	return v, nil
}

func (s *Service) ListSales(ctx context.Context, f SaleFilter) ([]RecordedSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ledger.Filter(f, s.loc)
}

// ExportSalesCSV writes the whole ledger to w. An empty ledger is a NotFoundError.
func (s *Service) ExportSalesCSV(ctx context.Context, w io.Writer) error {
	s.mu.RLock()
	sales := s.ledger.Sales()
	s.mu.RUnlock()

	if len(sales) == 0 {
		return &NotFoundError{Kind: KindLedger}
	}
	return WriteSalesCSV(w, sales, s.loc)
}
