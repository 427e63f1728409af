package report

import (
	"sort"
	"time"

	"order-analysis/internal/orders"
)

// Assignment places a driver at exactly one hub for fleet metrics.
type Assignment struct {
	Driver       string `json:"driver"`
	Hub          string `json:"hub"`
	VehicleModel string `json:"vehicle_model,omitempty"`
	Deliveries   int    `json:"deliveries"`
}

type assignmentKey struct {
	driver string
	hub    string
	model  string
}

// PrimaryHubs assigns each driver active on date to the hub where they logged
// the most deliveries.
//
// A driver is active when one of their orders was last sent out for delivery
// on date; deliveries are counted over those orders as rows carrying a
// delivered timestamp. With byModel the vehicle model is part of the grouping
// and carried into the assignment. Ties go to the lexicographically smallest
// hub, then model, so the result does not depend on input order.
func PrimaryHubs(records []orders.Record, date orders.Date, loc *time.Location, byModel bool) []Assignment {
	counts := make(map[assignmentKey]int)
	for i := range records {
		rec := &records[i]
		if !orders.OnDate(rec.LatestOutForDeliveryOn, date, loc) {
			continue
		}
		key := assignmentKey{driver: rec.DriverVehicle, hub: rec.DeliveryHub}
		if byModel {
			key.model = rec.VehicleModel
		}
		n := counts[key]
		if rec.DeliveredOn != nil {
			n++
		}
		counts[key] = n
	}

	best := make(map[string]Assignment)
	for key, n := range counts {
		candidate := Assignment{Driver: key.driver, Hub: key.hub, VehicleModel: key.model, Deliveries: n}
		current, ok := best[key.driver]
		if !ok || preferAssignment(candidate, current) {
			best[key.driver] = candidate
		}
	}

	out := make([]Assignment, 0, len(best))
	for _, a := range best {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Driver < out[j].Driver })
	return out
}

func preferAssignment(a, b Assignment) bool {
	if a.Deliveries != b.Deliveries {
		return a.Deliveries > b.Deliveries
	}
	if a.Hub != b.Hub {
		return a.Hub < b.Hub
	}
	return a.VehicleModel < b.VehicleModel
}

// fleetByHub counts distinct drivers per primary hub, optionally restricted to
// one vehicle model.
func fleetByHub(assignments []Assignment, model string) map[string]int {
	out := make(map[string]int)
	for _, a := range assignments {
		if model != "" && a.VehicleModel != model {
			continue
		}
		out[a.Hub]++
	}
	return out
}
