package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const (
	DefaultProductsFile = "productos.json"
	DefaultSalesFile    = "ventas.json"
)

type FileStore struct {
	mu           sync.Mutex
	productsPath string
	salesPath    string
}

var _ Repository = (*FileStore)(nil)

func NewFileStore(productsPath, salesPath string) *FileStore {
	return &FileStore{productsPath: productsPath, salesPath: salesPath}
}

// Ping checks that both files exist and that their directories accept writes.
func (s *FileStore) Ping(ctx context.Context) error {
	for _, p := range []string{s.productsPath, s.salesPath} {
		fi, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("%s: not a regular file", p)
		}
		if err := checkWritable(filepath.Dir(p)); err != nil {
			return err
		}
	}
	return nil
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".ping-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func (s *FileStore) LoadProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := s.load(ctx, s.productsPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileStore) SaveProducts(ctx context.Context, products []Product) error {
	if products == nil {
		products = []Product{}
	}
	return s.save(ctx, s.productsPath, products)
}

func (s *FileStore) LoadSales(ctx context.Context) ([]RecordedSale, error) {
	var out []RecordedSale
	if err := s.load(ctx, s.salesPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileStore) SaveSales(ctx context.Context, sales []RecordedSale) error {
	if sales == nil {
		sales = []RecordedSale{}
	}
	return s.save(ctx, s.salesPath, sales)
}

func (s *FileStore) load(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	b, err := os.ReadFile(path)
	s.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrStoreMissing)
	}
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return fmt.Errorf("%s: empty file", path)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// save writes to a sibling temp file and renames it over path, so readers
// never observe a half-written collection.
func (s *FileStore) save(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
