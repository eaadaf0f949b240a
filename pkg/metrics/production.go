package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProductionMetrics records lot allocation and record persistence activity.
type ProductionMetrics struct {
	lotsAllocated *prometheus.CounterVec
	recordsSaved  *prometheus.CounterVec
	saveFailures  *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	catalogSize   prometheus.Gauge
}

// NewProductionMetrics registers the production metrics on the provided registerer.
func NewProductionMetrics(reg prometheus.Registerer) *ProductionMetrics {
	if reg == nil {
		return &ProductionMetrics{}
	}
	lotsAllocated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chapas_lots_allocated_total",
		Help: "Lot ids allocated, by sequencer backend.",
	}, []string{"backend"})
	recordsSaved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chapas_records_saved_total",
		Help: "Production records persisted, by record store backend.",
	}, []string{"backend"})
	saveFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chapas_save_failures_total",
		Help: "Failed production saves, by stage.",
	}, []string{"stage"})
	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chapas_store_operation_duration_seconds",
		Help:    "Duration of storage operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	catalogSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chapas_catalog_products",
		Help: "Products in the active catalog snapshot.",
	})
	reg.MustRegister(lotsAllocated, recordsSaved, saveFailures, storeDuration, catalogSize)
	return &ProductionMetrics{
		lotsAllocated: lotsAllocated,
		recordsSaved:  recordsSaved,
		saveFailures:  saveFailures,
		storeDuration: storeDuration,
		catalogSize:   catalogSize,
	}
}

// IncLotAllocated counts a consumed lot id.
func (p *ProductionMetrics) IncLotAllocated(backend string) {
	if p == nil || p.lotsAllocated == nil {
		return
	}
	p.lotsAllocated.WithLabelValues(normalizeLabel(backend)).Inc()
}

// IncRecordSaved counts a persisted record.
func (p *ProductionMetrics) IncRecordSaved(backend string) {
	if p == nil || p.recordsSaved == nil {
		return
	}
	p.recordsSaved.WithLabelValues(normalizeLabel(backend)).Inc()
}

// IncSaveFailure counts a failed save at the given stage (allocate, append).
func (p *ProductionMetrics) IncSaveFailure(stage string) {
	if p == nil || p.saveFailures == nil {
		return
	}
	p.saveFailures.WithLabelValues(normalizeLabel(stage)).Inc()
}

// ObserveStore records the duration of a storage operation.
func (p *ProductionMetrics) ObserveStore(operation string, duration time.Duration) {
	if p == nil || p.storeDuration == nil {
		return
	}
	p.storeDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// SetCatalogSize publishes the product count of the active catalog.
func (p *ProductionMetrics) SetCatalogSize(n int) {
	if p == nil || p.catalogSize == nil {
		return
	}
	p.catalogSize.Set(float64(n))
}
