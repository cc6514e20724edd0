package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TableSizes is a snapshot of table sizes.
type TableSizes struct {
	Sessions     int
	Tokens       int
	Transferable int
	Orphans      int
	Detached     int
}

// SizeFunc returns the current table sizes.
type SizeFunc func() TableSizes

// StorageFunc returns the stored key count and byte size.
// A negative value means unknown.
type StorageFunc func() (keys, bytes int64, err error)

// Collector reads table and storage sizes at scrape time.
type Collector struct {
	sizes   SizeFunc
	storage StorageFunc

	tableEntries *prometheus.Desc
	storageKeys  *prometheus.Desc
	storageBytes *prometheus.Desc
	storageUp    *prometheus.Desc
}

// NewCollector creates a collector. Either source may be nil.
func NewCollector(sizes SizeFunc, storage StorageFunc) *Collector {
	return &Collector{
		sizes:   sizes,
		storage: storage,
		tableEntries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "table_entries"),
			"Entries held in memory, by table",
			[]string{"table"}, nil,
		),
		storageKeys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "storage", "keys"),
			"Keys held by the storage engine",
			nil, nil,
		),
		storageBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "storage", "size_bytes"),
			"Bytes used by the storage engine",
			nil, nil,
		),
		storageUp: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "storage", "up"),
			"Whether the last storage stats query succeeded",
			nil, nil,
		),
	}
}

// Register adds the collector to r.
func (c *Collector) Register(r *Registry) error {
	return r.reg.Register(c)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tableEntries
	ch <- c.storageKeys
	ch <- c.storageBytes
	ch <- c.storageUp
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.sizes != nil {
		s := c.sizes()
		for _, e := range []struct {
			table string
			n     int
		}{
			{"sessions", s.Sessions},
			{"tokens", s.Tokens},
			{"transferable", s.Transferable},
			{"orphans", s.Orphans},
			{"detached", s.Detached},
		} {
			ch <- prometheus.MustNewConstMetric(c.tableEntries, prometheus.GaugeValue, float64(e.n), e.table)
		}
	}

	if c.storage != nil {
		keys, size, err := c.storage()
		if err != nil {
			ch <- prometheus.MustNewConstMetric(c.storageUp, prometheus.GaugeValue, 0)
			return
		}
		ch <- prometheus.MustNewConstMetric(c.storageUp, prometheus.GaugeValue, 1)
		if keys >= 0 {
			ch <- prometheus.MustNewConstMetric(c.storageKeys, prometheus.GaugeValue, float64(keys))
		}
		if size >= 0 {
			ch <- prometheus.MustNewConstMetric(c.storageBytes, prometheus.GaugeValue, float64(size))
		}
	}
}
