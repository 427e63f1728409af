package report

import (
	"sort"

	"order-analysis/internal/orders"
)

// VehicleUtilizationRow describes one hub's active fleet mix.
type VehicleUtilizationRow struct {
	Hub             string  `json:"hub"`
	Bikes           int     `json:"bikes"`
	Autos           int     `json:"autos"`
	Total           int     `json:"total"`
	BikeRatio       string  `json:"bike_ratio"`
	AutoRatio       string  `json:"auto_ratio"`
	AvgProductivity float64 `json:"avg_productivity_per_driver"`
}

// VehicleUtilization is the per-hub fleet composition for one day.
type VehicleUtilization struct {
	Date orders.Date             `json:"date"`
	Rows []VehicleUtilizationRow `json:"rows"`
}

var vehicleColumns = []string{
	orders.ColDriverVehicle,
	orders.ColVehicleModel,
	orders.ColDeliveryHub,
	orders.ColDeliveredOn,
	orders.ColLatestOutForDeliveryOn,
}

// BuildVehicleUtilization splits each hub's primary-assigned drivers into
// bikes and autos and relates the hub's deliveries to its fleet size.
// hubs supplies the Delivered counts; a hub missing from it counts as zero.
func BuildVehicleUtilization(table *orders.Table, date orders.Date, cfg *Config, hubs *HubSummary) (*VehicleUtilization, error) {
	if err := table.Require(vehicleColumns...); err != nil {
		return nil, err
	}

	assignments := PrimaryHubs(table.Records, date, cfg.Location, true)
	bikes := fleetByHub(assignments, cfg.BikeModel)
	autos := fleetByHub(assignments, cfg.AutoModel)

	seen := make(map[string]bool)
	var hubNames []string
	for i := range table.Records {
		h := table.Records[i].DeliveryHub
		if !seen[h] {
			seen[h] = true
			hubNames = append(hubNames, h)
		}
	}
	sort.Strings(hubNames)

	out := &VehicleUtilization{Date: date, Rows: make([]VehicleUtilizationRow, 0, len(hubNames))}
	for _, h := range hubNames {
		row := VehicleUtilizationRow{Hub: h, Bikes: bikes[h], Autos: autos[h]}
		row.Total = row.Bikes + row.Autos
		row.BikeRatio = decimalPercent(row.Bikes, row.Total)
		row.AutoRatio = decimalPercent(row.Autos, row.Total)

		delivered := 0
		if hubs != nil {
			if hr, ok := hubs.Row(h); ok {
				delivered = hr.Delivered
			}
		}
		if row.Total > 0 {
			row.AvgProductivity = round2(float64(delivered) / float64(row.Total))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
