package export

import "order-analysis/internal/report"

// Typed rows for columnar output. Field tags follow the parquet-go schema
// syntax.

type driverRecord struct {
	Date             string `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Hub              string `parquet:"name=hub, type=BYTE_ARRAY, convertedtype=UTF8"`
	Driver           string `parquet:"name=driver, type=BYTE_ARRAY, convertedtype=UTF8"`
	VehicleModel     string `parquet:"name=vehicle_model, type=BYTE_ARRAY, convertedtype=UTF8"`
	Delivered        int32  `parquet:"name=delivered, type=INT32"`
	UnableToDeliver  int32  `parquet:"name=unable_to_deliver, type=INT32"`
	Returned         int32  `parquet:"name=returned, type=INT32"`
	OutOnRoad        int32  `parquet:"name=out_on_road, type=INT32"`
	Total            int32  `parquet:"name=total_order_count, type=INT32"`
	DeliveredPercent string `parquet:"name=delivered_percent, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func newDriverRecord(s *report.DriverSummary, r report.DriverSummaryRow) *driverRecord {
	return &driverRecord{
		Date:             s.Date.String(),
		Hub:              s.Hub,
		Driver:           r.Driver,
		VehicleModel:     r.VehicleModel,
		Delivered:        int32(r.Delivered),
		UnableToDeliver:  int32(r.UnableToDeliver),
		Returned:         int32(r.Returned),
		OutOnRoad:        int32(r.OutOnRoad),
		Total:            int32(r.Total),
		DeliveredPercent: r.DeliveredPercent,
	}
}

type hubRecord struct {
	Date             string `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Hub              string `parquet:"name=hub, type=BYTE_ARRAY, convertedtype=UTF8"`
	Vehicles         int32  `parquet:"name=number_of_vehicles, type=INT32"`
	RawOrders        int32  `parquet:"name=raw_orders, type=INT32"`
	Total            int32  `parquet:"name=total_order_count, type=INT32"`
	Delivered        int32  `parquet:"name=delivered, type=INT32"`
	UnableToDeliver  int32  `parquet:"name=unable_to_deliver, type=INT32"`
	Returned         int32  `parquet:"name=returned, type=INT32"`
	OutOnRoad        int32  `parquet:"name=out_on_road, type=INT32"`
	AttemptPercent   string `parquet:"name=attempt_percent, type=BYTE_ARRAY, convertedtype=UTF8"`
	DeliveredPercent string `parquet:"name=delivered_percent, type=BYTE_ARRAY, convertedtype=UTF8"`
	Backlog          int32  `parquet:"name=backlog, type=INT32"`
}

func newHubRecord(s *report.HubSummary, r report.HubSummaryRow) *hubRecord {
	return &hubRecord{
		Date:             s.Date.String(),
		Hub:              r.Hub,
		Vehicles:         int32(r.Vehicles),
		RawOrders:        int32(r.RawOrders),
		Total:            int32(r.Total),
		Delivered:        int32(r.Delivered),
		UnableToDeliver:  int32(r.UnableToDeliver),
		Returned:         int32(r.Returned),
		OutOnRoad:        int32(r.OutOnRoad),
		AttemptPercent:   r.AttemptPercent,
		DeliveredPercent: r.DeliveredPercent,
		Backlog:          int32(r.Backlog),
	}
}

type vehicleRecord struct {
	Date            string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Hub             string  `parquet:"name=hub, type=BYTE_ARRAY, convertedtype=UTF8"`
	Bikes           int32   `parquet:"name=bikes, type=INT32"`
	Autos           int32   `parquet:"name=autos, type=INT32"`
	Total           int32   `parquet:"name=total, type=INT32"`
	BikeRatio       string  `parquet:"name=bike_ratio, type=BYTE_ARRAY, convertedtype=UTF8"`
	AutoRatio       string  `parquet:"name=auto_ratio, type=BYTE_ARRAY, convertedtype=UTF8"`
	AvgProductivity float64 `parquet:"name=avg_productivity_per_driver, type=DOUBLE"`
}

func newVehicleRecord(v *report.VehicleUtilization, r report.VehicleUtilizationRow) *vehicleRecord {
	return &vehicleRecord{
		Date:            v.Date.String(),
		Hub:             r.Hub,
		Bikes:           int32(r.Bikes),
		Autos:           int32(r.Autos),
		Total:           int32(r.Total),
		BikeRatio:       r.BikeRatio,
		AutoRatio:       r.AutoRatio,
		AvgProductivity: r.AvgProductivity,
	}
}

// bucketRecord is the long form of a time-bucket matrix.
type bucketRecord struct {
	Group  string `parquet:"name=group, type=BYTE_ARRAY, convertedtype=UTF8"`
	Bucket string `parquet:"name=bucket, type=BYTE_ARRAY, convertedtype=UTF8"`
	Count  int32  `parquet:"name=count, type=INT32"`
}

type shareRecord struct {
	Customer string `parquet:"name=customer, type=BYTE_ARRAY, convertedtype=UTF8"`
	Orders   int32  `parquet:"name=orders, type=INT32"`
	Share    string `parquet:"name=share, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type peakRecord struct {
	Rank   int32  `parquet:"name=rank, type=INT32"`
	Bucket string `parquet:"name=bucket, type=BYTE_ARRAY, convertedtype=UTF8"`
	Orders int32  `parquet:"name=orders, type=INT32"`
}
