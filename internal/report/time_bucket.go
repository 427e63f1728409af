package report

import (
	"sort"
	"time"

	"order-analysis/internal/orders"
)

// TimeBucketRow is one cell of a dense (group x bucket) matrix.
type TimeBucketRow struct {
	Group  string `json:"group"`
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// PivotRow is one group of a matrix laid out with a column per bucket.
type PivotRow struct {
	Group  string `json:"group"`
	Counts []int  `json:"counts"`
	Total  int    `json:"total"`
}

// HubTimeDistribution spreads the day's first dispatches across buckets per hub.
type HubTimeDistribution struct {
	Date    orders.Date     `json:"date"`
	Buckets []string        `json:"buckets"`
	Rows    []TimeBucketRow `json:"rows"`
	Pivot   []PivotRow      `json:"pivot"`
}

// CustomerTotal is a customer's share of the day's pickups.
type CustomerTotal struct {
	Customer string `json:"customer"`
	Orders   int    `json:"orders"`
	Share    string `json:"share"`
}

// BucketTotal is the pickup volume of one bucket across all customers.
type BucketTotal struct {
	Bucket string `json:"bucket"`
	Orders int    `json:"orders"`
}

// CustomerTimeDistribution spreads the day's pickups across buckets per
// allow-listed customer, with rollups by customer and by bucket.
type CustomerTimeDistribution struct {
	Date      orders.Date     `json:"date"`
	Buckets   []string        `json:"buckets"`
	Rows      []TimeBucketRow `json:"rows"`
	Pivot     []PivotRow      `json:"pivot"`
	Customers []CustomerTotal `json:"customers"`
	Peaks     []BucketTotal   `json:"peaks"`
}

// BucketOf returns the index of the bucket holding ts's hour in the report
// location. A nil timestamp belongs to no bucket.
func (c *Config) BucketOf(ts *time.Time) (int, bool) {
	if ts == nil {
		return 0, false
	}
	hour := ts.In(c.Location).Hour()
	for i, b := range c.Buckets {
		if b.Contains(hour) {
			return i, true
		}
	}
	return 0, false
}

// BucketLabels returns the configured bucket labels in order.
func (c *Config) BucketLabels() []string {
	labels := make([]string, len(c.Buckets))
	for i, b := range c.Buckets {
		labels[i] = b.Label
	}
	return labels
}

// matrix counts records per (group, bucket) for a fixed list of groups.
type matrix struct {
	groups []string
	index  map[string]int
	cells  [][]int
}

func newMatrix(groups []string, buckets int) *matrix {
	m := &matrix{groups: groups, index: make(map[string]int, len(groups)), cells: make([][]int, len(groups))}
	for i, g := range groups {
		m.index[g] = i
		m.cells[i] = make([]int, buckets)
	}
	return m
}

func (m *matrix) add(group string, bucket int) {
	if i, ok := m.index[group]; ok {
		m.cells[i][bucket]++
	}
}

func (m *matrix) pivot() []PivotRow {
	rows := make([]PivotRow, len(m.groups))
	for i, g := range m.groups {
		counts := append([]int(nil), m.cells[i]...)
		total := 0
		for _, n := range counts {
			total += n
		}
		rows[i] = PivotRow{Group: g, Counts: counts, Total: total}
	}
	return rows
}

func longForm(pivot []PivotRow, labels []string) []TimeBucketRow {
	rows := make([]TimeBucketRow, 0, len(pivot)*len(labels))
	for _, p := range pivot {
		for j, label := range labels {
			rows = append(rows, TimeBucketRow{Group: p.Group, Bucket: label, Count: p.Counts[j]})
		}
	}
	return rows
}

// BuildHubTimeDistribution buckets the first out-for-delivery time of orders
// dispatched on date. Every configured hub and bucket appears, zero-filled;
// hubs outside the configuration are ignored.
func BuildHubTimeDistribution(table *orders.Table, date orders.Date, cfg *Config) (*HubTimeDistribution, error) {
	if err := table.Require(orders.ColDeliveryHub, orders.ColFirstOutForDeliveryOn); err != nil {
		return nil, err
	}

	m := newMatrix(cfg.Hubs, len(cfg.Buckets))
	for i := range table.Records {
		rec := &table.Records[i]
		if !orders.OnDate(rec.FirstOutForDeliveryOn, date, cfg.Location) {
			continue
		}
		if b, ok := cfg.BucketOf(rec.FirstOutForDeliveryOn); ok {
			m.add(rec.DeliveryHub, b)
		}
	}

	labels := cfg.BucketLabels()
	pivot := m.pivot()
	return &HubTimeDistribution{
		Date:    date,
		Buckets: labels,
		Rows:    longForm(pivot, labels),
		Pivot:   pivot,
	}, nil
}

// BuildCustomerTimeDistribution buckets the pickup time of allow-listed
// customers' orders picked on date.
func BuildCustomerTimeDistribution(table *orders.Table, date orders.Date, cfg *Config) (*CustomerTimeDistribution, error) {
	if err := table.Require(orders.ColCustomer, orders.ColPickedOn); err != nil {
		return nil, err
	}

	m := newMatrix(cfg.Customers, len(cfg.Buckets))
	for i := range table.Records {
		rec := &table.Records[i]
		if !orders.OnDate(rec.PickedOn, date, cfg.Location) {
			continue
		}
		if b, ok := cfg.BucketOf(rec.PickedOn); ok {
			m.add(rec.Customer, b)
		}
	}

	labels := cfg.BucketLabels()
	pivot := m.pivot()
	sort.SliceStable(pivot, func(i, j int) bool { return pivot[i].Total > pivot[j].Total })

	grand := 0
	for _, p := range pivot {
		grand += p.Total
	}
	customers := make([]CustomerTotal, len(pivot))
	for i, p := range pivot {
		customers[i] = CustomerTotal{Customer: p.Group, Orders: p.Total, Share: decimalPercent(p.Total, grand)}
	}

	peaks := make([]BucketTotal, len(labels))
	for j, label := range labels {
		peaks[j].Bucket = label
		for _, p := range pivot {
			peaks[j].Orders += p.Counts[j]
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Orders > peaks[j].Orders })

	return &CustomerTimeDistribution{
		Date:      date,
		Buckets:   labels,
		Rows:      longForm(pivot, labels),
		Pivot:     pivot,
		Customers: customers,
		Peaks:     peaks,
	}, nil
}
