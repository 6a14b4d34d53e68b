package inventory

import "github.com/prometheus/client_golang/prometheus"

const (
	rejectNotFound     = "not_found"
	rejectInsufficient = "insufficient_stock"
	rejectInvalid      = "invalid"

	collectionProducts = "productos"
	collectionSales    = "ventas"
)

// Metrics are the inventory counters exported next to the HTTP ones. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	SalesRecorded  prometheus.Counter
	UnitsSold      prometheus.Counter
	SaleRejections *prometheus.CounterVec
	Products       prometheus.Gauge
	StoreErrors    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SalesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tienda_sales_recorded_total",
			Help: "Sales appended to the ledger",
		}),
		UnitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tienda_units_sold_total",
			Help: "Units removed from stock by sales",
		}),
		SaleRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tienda_sale_rejections_total",
			Help: "Sales refused before being recorded",
		}, []string{"reason"}),
		Products: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tienda_products",
			Help: "Products currently in the catalog",
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tienda_store_errors_total",
			Help: "Failed writes to the backing store",
		}, []string{"collection"}),
	}

	reg.MustRegister(m.SalesRecorded, m.UnitsSold, m.SaleRejections, m.Products, m.StoreErrors)
	return m
}

func (m *Metrics) saleRecorded(qty int) {
	if m == nil {
		return
	}
	m.SalesRecorded.Inc()
	m.UnitsSold.Add(float64(qty))
}

func (m *Metrics) saleRejected(reason string) {
	if m == nil {
		return
	}
	m.SaleRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) catalogSize(n int) {
	if m == nil {
		return
	}
	m.Products.Set(float64(n))
}

func (m *Metrics) storeFailed(collection string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(collection).Inc()
}
