package report

import (
	"time"

	"order-analysis/internal/orders"
)

var ist = time.FixedZone("IST", 5*3600+1800)

var reportDate = orders.Date{Year: 2025, Month: time.March, Day: 1}

const (
	hebbal = "Hebbal [ BH Micro warehouse ]"
	kudlu  = "Kudlu [ BH Micro warehouse ]"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Location = ist
	return cfg
}

// at returns a timestamp on the report date, days offset, in IST.
func at(days, hour, minute int) *time.Time {
	t := time.Date(2025, time.March, 1+days, hour, minute, 0, 0, ist)
	return &t
}

func delivered(driver, model, hub string, ts *time.Time) orders.Record {
	return orders.Record{
		DriverVehicle:          driver,
		VehicleModel:           model,
		DeliveryHub:            hub,
		Status:                 orders.StatusDelivered,
		DeliveredOn:            ts,
		LatestOutForDeliveryOn: ts,
	}
}

func returned(driver, model, hub string, ts *time.Time) orders.Record {
	return orders.Record{
		DriverVehicle:          driver,
		VehicleModel:           model,
		DeliveryHub:            hub,
		Status:                 orders.StatusReturnedToHub,
		ReturnedOn:             ts,
		LatestOutForDeliveryOn: ts,
	}
}

func outForDelivery(driver, model, hub string, ts *time.Time) orders.Record {
	return orders.Record{
		DriverVehicle:          driver,
		VehicleModel:           model,
		DeliveryHub:            hub,
		Status:                 orders.StatusOutForDelivery,
		LatestOutForDeliveryOn: ts,
	}
}
