package inventory

import (
	"math"
	"strings"
)

type Product struct {
	ID        int     `json:"id_producto"`
	Name      string  `json:"nombre"`
	UnitPrice float64 `json:"precio_unitario"`
	Stock     int     `json:"cantidad_en_stock"`
}

type ProductInput struct {
	Name      string
	UnitPrice float64
	Stock     int
}

// ProductPatch carries optional new values; nil fields are left untouched.
type ProductPatch struct {
	Name      *string
	UnitPrice *float64
	Stock     *int
}

// ProductFilter bounds a catalog listing. Zero value matches everything.
type ProductFilter struct {
	Name     string
	MinPrice *float64
	MaxPrice *float64
	MinStock *int
	MaxStock *int
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("nombre", "El nombre no puede estar vacío o solo con espacios")
	}
	return name, nil
}

func validatePrice(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return invalid("precio_unitario", "El precio unitario debe ser mayor a 0")
	}
	return nil
}

func validateStock(n int) error {
	if n < 0 {
		return invalid("cantidad_en_stock", "La cantidad en stock no puede ser negativa")
	}
	return nil
}

func (in ProductInput) normalize() (ProductInput, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return ProductInput{}, err
	}
	if err := validatePrice(in.UnitPrice); err != nil {
		return ProductInput{}, err
	}
	if err := validateStock(in.Stock); err != nil {
		return ProductInput{}, err
	}
	in.Name = name
	return in, nil
}

func (p ProductPatch) normalize() (ProductPatch, error) {
	if p.Name != nil {
		name, err := validateName(*p.Name)
		if err != nil {
			return ProductPatch{}, err
		}
		p.Name = &name
	}
	if p.UnitPrice != nil {
		if err := validatePrice(*p.UnitPrice); err != nil {
			return ProductPatch{}, err
		}
	}
	if p.Stock != nil {
		if err := validateStock(*p.Stock); err != nil {
			return ProductPatch{}, err
		}
	}
	return p, nil
}

func badBound(v *float64) bool {
	return v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0))
}

// Validate rejects non-finite or negative bounds and inverted ranges.
func (f ProductFilter) Validate() error {
	if badBound(f.MinPrice) || badBound(f.MaxPrice) {
		return invalid("precio", "Los límites de precio deben ser números finitos.")
	}
	if (f.MinPrice != nil && *f.MinPrice < 0) || (f.MaxPrice != nil && *f.MaxPrice < 0) {
		return invalid("precio", "Los límites de precio no pueden ser negativos.")
	}
	if (f.MinStock != nil && *f.MinStock < 0) || (f.MaxStock != nil && *f.MaxStock < 0) {
		return invalid("stock", "Los límites de stock no pueden ser negativos.")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return invalid("", "El precio mínimo no puede ser mayor al máximo.")
	}
	if f.MinStock != nil && f.MaxStock != nil && *f.MinStock > *f.MaxStock {
		return invalid("", "El stock mínimo no puede ser mayor al máximo.")
	}
	return nil
}

func (f ProductFilter) match(p Product) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.MinPrice != nil && p.UnitPrice < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.UnitPrice > *f.MaxPrice {
		return false
	}
	if f.MinStock != nil && p.Stock < *f.MinStock {
		return false
	}
	if f.MaxStock != nil && p.Stock > *f.MaxStock {
		return false
	}
	return true
}

// Catalog is the ordered set of known products. It is not safe for
// concurrent use; Service serializes access.
type Catalog struct {
	items []Product
}

func NewCatalog(products []Product) *Catalog {
	items := make([]Product, len(products))
	copy(items, products)
	return &Catalog{items: items}
}

func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int { return len(c.items) }

// NextID is one more than the highest id in the catalog, or 1 when empty.
func (c *Catalog) NextID() int {
	maxID := 0
	for _, p := range c.items {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID + 1
}

func (c *Catalog) indexOf(id int) int {
	for i, p := range c.items {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalog) nameTaken(name string, exceptID int) bool {
	for _, p := range c.items {
		if p.ID != exceptID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (c *Catalog) Get(id int) (Product, bool) {
	i := c.indexOf(id)
	if i < 0 {
		return Product{}, false
	}
	return c.items[i], true
}

func (c *Catalog) Add(in ProductInput) (Product, error) {
	in, err := in.normalize()
	if err != nil {
		return Product{}, err
	}
	if c.nameTaken(in.Name, 0) {
		return Product{}, &DuplicateError{Name: in.Name}
	}

	p := Product{
		ID:        c.NextID(),
		Name:      in.Name,
		UnitPrice: in.UnitPrice,
		Stock:     in.Stock,
	}
	c.items = append(c.items, p)
	return p, nil
}

func (c *Catalog) Update(id int, patch ProductPatch) (Product, error) {
	i := c.indexOf(id)
	if i < 0 {
		return Product{}, productNotFound(id)
	}

	patch, err := patch.normalize()
	if err != nil {
		return Product{}, err
	}
	if patch.Name != nil && c.nameTaken(*patch.Name, id) {
		return Product{}, &DuplicateError{Name: *patch.Name}
	}

	p := c.items[i]
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.UnitPrice != nil {
		p.UnitPrice = *patch.UnitPrice
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	c.items[i] = p
	return p, nil
}

func (c *Catalog) Remove(id int) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

// Filter returns the products matching every supplied bound, in catalog order.
func (c *Catalog) Filter(f ProductFilter) ([]Product, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(c.items))
	for _, p := range c.items {
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// take decrements stock for a sale and returns the product as it was before.
func (c *Catalog) take(id, qty int) (Product, error) {
	i := c.indexOf(id)
	if i < 0 {
		return Product{}, productNotFound(id)
	}
	before := c.items[i]
	if qty > before.Stock {
		return Product{}, &InsufficientStockError{
			ProductName: before.Name,
			Available:   before.Stock,
			Requested:   qty,
		}
	}
	c.items[i].Stock -= qty
	return before, nil
}
