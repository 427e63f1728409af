package report

import (
	"sort"
	"time"

	"order-analysis/internal/orders"
)

// HubSummaryRow is one hub line of the hub summary.
type HubSummaryRow struct {
	Hub              string `json:"hub"`
	Vehicles         int    `json:"number_of_vehicles"`
	RawOrders        int    `json:"raw_orders"`
	Total            int    `json:"total_order_count"`
	Delivered        int    `json:"delivered"`
	UnableToDeliver  int    `json:"unable_to_deliver"`
	Returned         int    `json:"returned"`
	OutOnRoad        int    `json:"out_on_road"`
	AttemptPercent   string `json:"attempt_percent"`
	DeliveredPercent string `json:"delivered_percent"`
	Backlog          int    `json:"backlog"`
}

// HubSummary is the all-hub breakdown for one day.
type HubSummary struct {
	Date       orders.Date     `json:"date"`
	Rows       []HubSummaryRow `json:"rows"`
	GrandTotal HubSummaryRow   `json:"grand_total"`
}

// AllRows returns the per-hub rows followed by the grand total.
func (s *HubSummary) AllRows() []HubSummaryRow {
	return append(append([]HubSummaryRow(nil), s.Rows...), s.GrandTotal)
}

// Row returns the row for hub, if present.
func (s *HubSummary) Row(hub string) (HubSummaryRow, bool) {
	for _, r := range s.Rows {
		if r.Hub == hub {
			return r, true
		}
	}
	return HubSummaryRow{}, false
}

var hubColumns = []string{
	orders.ColDriverVehicle,
	orders.ColDeliveryHub,
	orders.ColStatus,
	orders.ColDeliveredOn,
	orders.ColLastDeliveryUnableTo,
	orders.ColReturnedOn,
	orders.ColLatestOutForDeliveryOn,
	orders.ColPickedOn,
	orders.ColLastAttemptedOn,
}

// BuildHubSummary counts the day's outcomes, fleet size and backlog for every
// hub in the input. The input is not hub-filtered.
func BuildHubSummary(table *orders.Table, date orders.Date, cfg *Config) (*HubSummary, error) {
	if err := table.Require(hubColumns...); err != nil {
		return nil, err
	}

	loc := cfg.Location
	dayStart := date.Start(loc)
	cutoff := dayStart.Add(cfg.BacklogCutoff)

	rows := make(map[string]*HubSummaryRow)
	for i := range table.Records {
		rec := &table.Records[i]
		row, ok := rows[rec.DeliveryHub]
		if !ok {
			row = &HubSummaryRow{Hub: rec.DeliveryHub}
			rows[rec.DeliveryHub] = row
		}

		row.RawOrders++
		if rec.Status == orders.StatusDelivered && orders.OnDate(rec.DeliveredOn, date, loc) {
			row.Delivered++
		}
		if orders.OnDate(rec.LastDeliveryUnableTo, date, loc) {
			row.UnableToDeliver++
		}
		if orders.OnDate(rec.ReturnedOn, date, loc) {
			row.Returned++
		}
		if rec.Status == orders.StatusOutForDelivery && orders.OnDate(rec.LatestOutForDeliveryOn, date, loc) {
			row.OutOnRoad++
		}
		if isBacklog(rec, dayStart, cutoff, cfg) {
			row.Backlog++
		}
	}

	vehicles := fleetByHub(PrimaryHubs(table.Records, date, loc, false), "")

	hubs := make([]string, 0, len(rows))
	for h := range rows {
		hubs = append(hubs, h)
	}
	sort.Strings(hubs)

	summary := &HubSummary{Date: date, Rows: make([]HubSummaryRow, 0, len(hubs))}
	for _, h := range hubs {
		row := *rows[h]
		row.Vehicles = vehicles[h]
		row.finish()
		summary.Rows = append(summary.Rows, row)
	}
	summary.GrandTotal = hubGrandTotal(summary.Rows)
	return summary, nil
}

// isBacklog reports whether an order was picked before the cutoff, has not
// been attempted since the start of the report day and is still unresolved.
// Missing timestamps never qualify.
func isBacklog(rec *orders.Record, dayStart, cutoff time.Time, cfg *Config) bool {
	if rec.PickedOn == nil || rec.LastAttemptedOn == nil {
		return false
	}
	if !cfg.isBacklogStatus(rec.Status) {
		return false
	}
	return rec.PickedOn.Before(cutoff) && rec.LastAttemptedOn.Before(dayStart)
}

func (r *HubSummaryRow) finish() {
	r.Total = r.Delivered + r.UnableToDeliver + r.Returned + r.OutOnRoad
	r.AttemptPercent = floorPercent(r.Delivered+r.UnableToDeliver+r.Returned, r.Total)
	r.DeliveredPercent = floorPercent(r.Delivered, r.Total)
}

func hubGrandTotal(rows []HubSummaryRow) HubSummaryRow {
	total := HubSummaryRow{Hub: GrandTotalLabel}
	for _, r := range rows {
		total.Vehicles += r.Vehicles
		total.RawOrders += r.RawOrders
		total.Delivered += r.Delivered
		total.UnableToDeliver += r.UnableToDeliver
		total.Returned += r.Returned
		total.OutOnRoad += r.OutOnRoad
		total.Backlog += r.Backlog
	}
	total.finish()
	return total
}
