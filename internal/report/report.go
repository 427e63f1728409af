package report

import (
	"fmt"
	"time"

	"order-analysis/internal/orders"
)

// Report bundles every summary computed for one (date, hub) selection.
type Report struct {
	Params      Params                    `json:"params"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Records     int                       `json:"records"`
	Drivers     *DriverSummary            `json:"drivers"`
	Hubs        *HubSummary               `json:"hubs"`
	Vehicles    *VehicleUtilization       `json:"vehicles"`
	HubTimes    *HubTimeDistribution      `json:"hub_times"`
	Customers   *CustomerTimeDistribution `json:"customer_times"`
}

// Build runs every stage against one immutable snapshot. Stages share nothing
// but their inputs; the first failure aborts the run.
func Build(table *orders.Table, params Params, cfg *Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := table.Require(orders.RequiredColumns...); err != nil {
		return nil, err
	}
	if err := params.Validate(cfg); err != nil {
		return nil, err
	}

	drivers, err := BuildDriverSummary(table, params, cfg)
	if err != nil {
		return nil, fmt.Errorf("driver summary: %w", err)
	}
	hubs, err := BuildHubSummary(table, params.Date, cfg)
	if err != nil {
		return nil, fmt.Errorf("hub summary: %w", err)
	}
	vehicles, err := BuildVehicleUtilization(table, params.Date, cfg, hubs)
	if err != nil {
		return nil, fmt.Errorf("vehicle utilization: %w", err)
	}
	hubTimes, err := BuildHubTimeDistribution(table, params.Date, cfg)
	if err != nil {
		return nil, fmt.Errorf("hub time distribution: %w", err)
	}
	customers, err := BuildCustomerTimeDistribution(table, params.Date, cfg)
	if err != nil {
		return nil, fmt.Errorf("customer time distribution: %w", err)
	}

	return &Report{
		Params:      params,
		GeneratedAt: time.Now(),
		Records:     table.Len(),
		Drivers:     drivers,
		Hubs:        hubs,
		Vehicles:    vehicles,
		HubTimes:    hubTimes,
		Customers:   customers,
	}, nil
}
