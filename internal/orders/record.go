package orders

import "time"

// Column names of the BI order export.
const (
	ColOrderID                = "Order ID"
	ColDriverVehicle          = "Driver Vehicle"
	ColVehicleModel           = "Vehicle Model"
	ColDeliveryHub            = "Delivery Hub"
	ColStatus                 = "Status"
	ColCustomer               = "Customer"
	ColDeliveredOn            = "Delivered on"
	ColFirstOutForDeliveryOn  = "First Out-For-Delivery on"
	ColLatestOutForDeliveryOn = "Latest Out-For-Delivery on"
	ColLastDeliveryUnableTo   = "Last Delivery Unable-To"
	ColReturnedOn             = "Returned Datetime on"
	ColPickedOn               = "Picked on"
	ColLastAttemptedOn        = "Last Attempted on"
)

// RequiredColumns is the full input contract. Order ID is optional.
var RequiredColumns = []string{
	ColDriverVehicle,
	ColVehicleModel,
	ColDeliveryHub,
	ColStatus,
	ColCustomer,
	ColDeliveredOn,
	ColFirstOutForDeliveryOn,
	ColLatestOutForDeliveryOn,
	ColLastDeliveryUnableTo,
	ColReturnedOn,
	ColPickedOn,
	ColLastAttemptedOn,
}

// TimestampColumns lists the columns parsed as nullable points in time.
var TimestampColumns = []string{
	ColDeliveredOn,
	ColFirstOutForDeliveryOn,
	ColLatestOutForDeliveryOn,
	ColLastDeliveryUnableTo,
	ColReturnedOn,
	ColPickedOn,
	ColLastAttemptedOn,
}

// Order statuses emitted by the BI export.
const (
	StatusDelivered      = "Delivered"
	StatusOutForDelivery = "Out-For-Delivery"
	StatusPicked         = "Picked"
	StatusAtHub          = "At-Hub"
	StatusReturnedToHub  = "Returned-To-Hub"
)

// Vehicle models.
const (
	ModelBike         = "Bike"
	ModelAutoRickshaw = "Auto Rickshaw"
)

// Record is one logistics order. Nil timestamps mean "no value".
type Record struct {
	OrderID       string `json:"order_id,omitempty"`
	DriverVehicle string `json:"driver_vehicle"`
	VehicleModel  string `json:"vehicle_model"`
	DeliveryHub   string `json:"delivery_hub"`
	Status        string `json:"status"`
	Customer      string `json:"customer"`

	DeliveredOn            *time.Time `json:"delivered_on,omitempty"`
	FirstOutForDeliveryOn  *time.Time `json:"first_out_for_delivery_on,omitempty"`
	LatestOutForDeliveryOn *time.Time `json:"latest_out_for_delivery_on,omitempty"`
	LastDeliveryUnableTo   *time.Time `json:"last_delivery_unable_to,omitempty"`
	ReturnedOn             *time.Time `json:"returned_datetime_on,omitempty"`
	PickedOn               *time.Time `json:"picked_on,omitempty"`
	LastAttemptedOn        *time.Time `json:"last_attempted_on,omitempty"`
}

// timestampField returns a pointer to the record field backing a timestamp column.
func (r *Record) timestampField(column string) **time.Time {
	switch column {
	case ColDeliveredOn:
		return &r.DeliveredOn
	case ColFirstOutForDeliveryOn:
		return &r.FirstOutForDeliveryOn
	case ColLatestOutForDeliveryOn:
		return &r.LatestOutForDeliveryOn
	case ColLastDeliveryUnableTo:
		return &r.LastDeliveryUnableTo
	case ColReturnedOn:
		return &r.ReturnedOn
	case ColPickedOn:
		return &r.PickedOn
	case ColLastAttemptedOn:
		return &r.LastAttemptedOn
	}
	return nil
}

// setText assigns a string column; unknown columns are ignored.
func (r *Record) setText(column, value string) {
	switch column {
	case ColOrderID:
		r.OrderID = value
	case ColDriverVehicle:
		r.DriverVehicle = value
	case ColVehicleModel:
		r.VehicleModel = value
	case ColDeliveryHub:
		r.DeliveryHub = value
	case ColStatus:
		r.Status = value
	case ColCustomer:
		r.Customer = value
	}
}

// Values renders the record back into contract column order, for CSV round trips
// and cache payloads.
func (r Record) Values(loc *time.Location) map[string]string {
	out := map[string]string{
		ColOrderID:       r.OrderID,
		ColDriverVehicle: r.DriverVehicle,
		ColVehicleModel:  r.VehicleModel,
		ColDeliveryHub:   r.DeliveryHub,
		ColStatus:        r.Status,
		ColCustomer:      r.Customer,
	}
	for _, col := range TimestampColumns {
		ts := *r.timestampField(col)
		if ts == nil {
			out[col] = ""
			continue
		}
		out[col] = ts.In(loc).Format(time.RFC3339)
	}
	return out
}
