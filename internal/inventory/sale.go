package inventory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	ExportTimestamp = "2006-01-02 15:04:05"

	// naiveTimestamp matches ISO-8601 timestamps without a zone offset.
	naiveTimestamp = "2006-01-02T15:04:05.999999999"
)

type Sale struct {
	ProductID int    `json:"id_producto"`
	Quantity  int    `json:"cantidad"`
	Customer  string `json:"nombre_cliente"`
}

// RecordedSale is a Sale with a server-assigned id and timestamp. It is never
// modified after it is appended to the ledger.
type RecordedSale struct {
	ID int `json:"id_venta"`
	Sale
	SoldAt time.Time `json:"fecha_venta"`
}

func (s *RecordedSale) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        int    `json:"id_venta"`
		ProductID int    `json:"id_producto"`
		Quantity  int    `json:"cantidad"`
		Customer  string `json:"nombre_cliente"`
		SoldAt    string `json:"fecha_venta"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	at, err := parseTimestamp(raw.SoldAt)
	if err != nil {
		return fmt.Errorf("venta %d: %w", raw.ID, err)
	}

	*s = RecordedSale{
		ID:     raw.ID,
		Sale:   Sale{ProductID: raw.ProductID, Quantity: raw.Quantity, Customer: raw.Customer},
		SoldAt: at,
	}
	return nil
}

// parseTimestamp accepts RFC 3339 and zone-less ISO-8601 timestamps; the
// latter are read in the process time zone.
func parseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation(naiveTimestamp, v, time.Local)
}

func (s Sale) normalize() (Sale, error) {
	if s.ProductID < 1 {
		return Sale{}, invalid("id_producto", "ID del producto debe ser mayor o igual a 1")
	}
	if s.Quantity <= 0 {
		return Sale{}, invalid("cantidad", "La cantidad debe ser mayor a 0")
	}
	s.Customer = strings.TrimSpace(s.Customer)
	if s.Customer == "" {
		return Sale{}, invalid("nombre_cliente", "El nombre del cliente no puede estar vacío")
	}
	return s, nil
}

// SaleFilter selects sales by customer and calendar-day range. Dates use
// DateLayout; both bounds are inclusive.
type SaleFilter struct {
	Customer string
	From     string
	To       string
}

type saleRange struct {
	customer string
	from     time.Time
	until    time.Time // exclusive
}

func (f SaleFilter) resolve(loc *time.Location) (saleRange, error) {
	r := saleRange{customer: f.Customer}

	if f.From != "" {
		d, err := time.ParseInLocation(DateLayout, f.From, loc)
		if err != nil {
			return saleRange{}, invalid("desde", "Formato de fecha 'desde' inválido. Use YYYY-MM-DD")
		}
		r.from = d
	}
	if f.To != "" {
		d, err := time.ParseInLocation(DateLayout, f.To, loc)
		if err != nil {
			return saleRange{}, invalid("hasta", "Formato de fecha 'hasta' inválido. Use YYYY-MM-DD")
		}
		r.until = d.AddDate(0, 0, 1)
	}
	if !r.from.IsZero() && !r.until.IsZero() && !r.from.Before(r.until) {
		return saleRange{}, invalid("", "La fecha 'desde' no puede ser posterior a 'hasta'.")
	}
	return r, nil
}

func (r saleRange) match(s RecordedSale) bool {
	if r.customer != "" && !strings.EqualFold(s.Customer, r.customer) {
		return false
	}
	if !r.from.IsZero() && s.SoldAt.Before(r.from) {
		return false
	}
	if !r.until.IsZero() && !s.SoldAt.Before(r.until) {
		return false
	}
	return true
}

// Ledger is the append-only sales history. Like Catalog it relies on
// Service for locking.
type Ledger struct {
	items []RecordedSale
}

func NewLedger(sales []RecordedSale) *Ledger {
	items := make([]RecordedSale, len(sales))
	copy(items, sales)
	return &Ledger{items: items}
}

func (l *Ledger) Sales() []RecordedSale {
	out := make([]RecordedSale, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Ledger) Len() int { return len(l.items) }

func (l *Ledger) NextID() int {
	maxID := 0
	for _, s := range l.items {
		if s.ID > maxID {
			maxID = s.ID
		}
	}
	return maxID + 1
}

func (l *Ledger) Get(id int) (RecordedSale, bool) {
	for _, s := range l.items {
		if s.ID == id {
			return s, true
		}
	}
	return RecordedSale{}, false
}

func (l *Ledger) References(productID int) bool {
	for _, s := range l.items {
		if s.ProductID == productID {
			return true
		}
	}
	return false
}

func (l *Ledger) Filter(f SaleFilter, loc *time.Location) ([]RecordedSale, error) {
	r, err := f.resolve(loc)
	if err != nil {
		return nil, err
	}
	out := make([]RecordedSale, 0, len(l.items))
	for _, s := range l.items {
		if r.match(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (l *Ledger) append(s Sale, at time.Time) RecordedSale {
	rs := RecordedSale{ID: l.NextID(), Sale: s, SoldAt: at}
	l.items = append(l.items, rs)
	return rs
}

func (l *Ledger) truncate(n int) {
	l.items = l.items[:n]
}
