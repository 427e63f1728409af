package source

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jaswdr/faker"

	"order-analysis/internal/orders"
	"order-analysis/internal/report"
)

// SampleConfig shapes the generated demo dataset.
type SampleConfig struct {
	Seed          int64
	Orders        int
	DriversPerHub int
	Date          orders.Date
	Hubs          []string
	Customers     []string
}

// SampleSource generates a realistic day of orders around Date. The same seed
// and date always produce the same snapshot.
type SampleSource struct {
	config SampleConfig
	loc    *time.Location
}

type sampleDriver struct {
	vehicle string
	model   string
}

// NewSampleSource fills defaults from the production enumerations.
func NewSampleSource(cfg SampleConfig, loc *time.Location) *SampleSource {
	if cfg.Orders <= 0 {
		cfg.Orders = 500
	}
	if cfg.DriversPerHub <= 0 {
		cfg.DriversPerHub = 8
	}
	if len(cfg.Hubs) == 0 {
		cfg.Hubs = report.DefaultHubs
	}
	if len(cfg.Customers) == 0 {
		cfg.Customers = report.DefaultCustomers
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SampleSource{config: cfg, loc: loc}
}

// Name identifies the source in caches and run logs.
func (s *SampleSource) Name() string {
	return fmt.Sprintf("sample:seed-%d", s.config.Seed)
}

// Fetch generates the snapshot.
func (s *SampleSource) Fetch(ctx context.Context) (*orders.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	date := s.config.Date
	if date.IsZero() {
		date = orders.Today(s.loc)
	}
	return orders.NewTable(s.generate(date)), nil
}

func (s *SampleSource) generate(date orders.Date) []orders.Record {
	fake := faker.NewWithSeed(rand.NewSource(s.config.Seed))
	dayStart := date.Start(s.loc)

	fleets := make(map[string][]sampleDriver, len(s.config.Hubs))
	for _, hub := range s.config.Hubs {
		drivers := make([]sampleDriver, s.config.DriversPerHub)
		for i := range drivers {
			model := orders.ModelBike
			if fake.IntBetween(1, 10) > 7 {
				model = orders.ModelAutoRickshaw
			}
			drivers[i] = sampleDriver{
				vehicle: strings.ToUpper(fake.Bothify("KA##??####")),
				model:   model,
			}
		}
		fleets[hub] = drivers
	}

	at := func(base time.Time, minMinutes, maxMinutes int) *time.Time {
		t := base.Add(time.Duration(fake.IntBetween(minMinutes, maxMinutes)) * time.Minute)
		return &t
	}

	records := make([]orders.Record, 0, s.config.Orders)
	for i := 0; i < s.config.Orders; i++ {
		hub := fake.RandomStringElement(s.config.Hubs)
		fleet := fleets[hub]
		driver := fleet[fake.IntBetween(0, len(fleet)-1)]

		customer := fake.RandomStringElement(s.config.Customers)
		if fake.IntBetween(1, 20) == 1 {
			customer = fake.Company().Name()
		}

		rec := orders.Record{
			OrderID:       fmt.Sprintf("%d", 700000+i),
			DriverVehicle: driver.vehicle,
			VehicleModel:  driver.model,
			DeliveryHub:   hub,
			Customer:      customer,
		}

		// Roughly a fifth of the volume is carried over from the previous day.
		pickDay := dayStart
		if fake.IntBetween(1, 5) == 1 {
			pickDay = dayStart.AddDate(0, 0, -1)
		}
		rec.PickedOn = at(pickDay, 6*60, 20*60)

		switch roll := fake.IntBetween(1, 100); {
		case roll <= 8:
			rec.Status = orders.StatusPicked
		case roll <= 16:
			rec.Status = orders.StatusAtHub
			if pickDay.Before(dayStart) {
				rec.LastAttemptedOn = at(pickDay, 20*60, 23*60)
			}
		default:
			dispatchFrom := dayStart.Add(7 * time.Hour)
			if rec.PickedOn.After(dispatchFrom) {
				dispatchFrom = *rec.PickedOn
			}
			rec.FirstOutForDeliveryOn = at(dispatchFrom, 30, 180)
			rec.LatestOutForDeliveryOn = rec.FirstOutForDeliveryOn
			if fake.IntBetween(1, 10) == 1 {
				rec.LatestOutForDeliveryOn = at(*rec.FirstOutForDeliveryOn, 60, 180)
			}
			s.resolve(fake, &rec, at, roll)
		}
		records = append(records, rec)
	}
	return records
}

// resolve decides what happened to an order after it left the hub.
func (s *SampleSource) resolve(fake faker.Faker, rec *orders.Record, at func(time.Time, int, int) *time.Time, roll int) {
	ofd := *rec.LatestOutForDeliveryOn
	switch {
	case roll <= 30:
		rec.Status = orders.StatusOutForDelivery
	case roll <= 38:
		rec.Status = orders.StatusAtHub
		rec.LastDeliveryUnableTo = at(ofd, 30, 240)
		rec.LastAttemptedOn = rec.LastDeliveryUnableTo
	case roll <= 44:
		rec.Status = orders.StatusReturnedToHub
		rec.ReturnedOn = at(ofd, 60, 300)
		rec.LastAttemptedOn = rec.ReturnedOn
	default:
		rec.Status = orders.StatusDelivered
		rec.DeliveredOn = at(ofd, 15, fake.IntBetween(60, 240))
		rec.LastAttemptedOn = rec.DeliveredOn
	}
}
