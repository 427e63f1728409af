package report

import (
	"errors"
	"fmt"
	"time"

	"order-analysis/internal/orders"
)

// ErrInvalidConfig wraps every Config validation failure.
var ErrInvalidConfig = errors.New("invalid report configuration")

// ErrUnknownHub is returned when the selected hub is not in Config.Hubs.
var ErrUnknownHub = errors.New("unknown delivery hub")

// Bucket is a half-open hour-of-day interval [Start, End).
type Bucket struct {
	Label string `json:"label" mapstructure:"label"`
	Start int    `json:"start" mapstructure:"start"`
	End   int    `json:"end" mapstructure:"end"`
}

// Contains reports whether hour falls inside the bucket.
func (b Bucket) Contains(hour int) bool {
	return hour >= b.Start && hour < b.End
}

// Config carries the enumerations and business constants every aggregator
// shares. It is read-only once built.
type Config struct {
	Hubs      []string
	Customers []string
	Buckets   []Bucket

	// BacklogCutoff is the offset from midnight of the report date before
	// which an order must have been picked to count as backlog.
	BacklogCutoff   time.Duration
	BacklogStatuses []string

	BikeModel string
	AutoModel string

	Location *time.Location

	// DateFilterDriverExceptions makes the driver summary count
	// unable-to-deliver and returned orders only on the report date, as the
	// hub summary does. Off by default.
	DateFilterDriverExceptions bool
}

// DefaultHubs are the Bengaluru micro-warehouses.
var DefaultHubs = []string{
	"Hebbal [ BH Micro warehouse ]",
	"Banashankari [ BH Micro warehouse ]",
	"Koramangala NGV [ BH Micro warehouse ]",
	"Mahadevapura [ BH Micro warehouse ]",
	"Chandra Layout [ BH Micro warehouse ]",
	"Kudlu [ BH Micro warehouse ]",
}

// DefaultCustomers is the allow-list used by the customer time distribution.
var DefaultCustomers = []string{
	"Amazon",
	"Flipkart",
	"Myntra",
	"Meesho",
	"Nykaa",
	"Ajio",
	"BigBasket",
	"Pepperfry",
	"Lenskart",
	"FirstCry",
	"Tata CLiQ",
	"Croma",
	"Decathlon",
}

// DefaultBuckets covers the day in 17 intervals.
var DefaultBuckets = []Bucket{
	{"12AM-1AM", 0, 1},
	{"1AM-2AM", 1, 2},
	{"2AM-3AM", 2, 3},
	{"3AM-6AM", 3, 6},
	{"6AM-9AM", 6, 9},
	{"9AM-10AM", 9, 10},
	{"10AM-11AM", 10, 11},
	{"11AM-12PM", 11, 12},
	{"12PM-1PM", 12, 13},
	{"1PM-2PM", 13, 14},
	{"2PM-3PM", 14, 15},
	{"3PM-4PM", 15, 16},
	{"4PM-5PM", 16, 17},
	{"5PM-6PM", 17, 18},
	{"6PM-9PM", 18, 21},
	{"9PM-11PM", 21, 23},
	{"11PM-12AM", 23, 24},
}

// DefaultLocation is the zone the operations team reports in.
const DefaultLocation = "Asia/Kolkata"

// DefaultConfig returns a fresh configuration with the production enumerations.
func DefaultConfig() *Config {
	loc, err := time.LoadLocation(DefaultLocation)
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	return &Config{
		Hubs:            append([]string(nil), DefaultHubs...),
		Customers:       append([]string(nil), DefaultCustomers...),
		Buckets:         append([]Bucket(nil), DefaultBuckets...),
		BacklogCutoff:   15 * time.Hour,
		BacklogStatuses: []string{orders.StatusPicked, orders.StatusAtHub, orders.StatusReturnedToHub},
		BikeModel:       orders.ModelBike,
		AutoModel:       orders.ModelAutoRickshaw,
		Location:        loc,
	}
}

// Validate checks the enumerations for internal consistency.
func (c *Config) Validate() error {
	if err := validateNames("hub", c.Hubs); err != nil {
		return err
	}
	if err := validateNames("customer", c.Customers); err != nil {
		return err
	}
	if err := validateBuckets(c.Buckets); err != nil {
		return err
	}
	if c.BacklogCutoff < 0 || c.BacklogCutoff > 24*time.Hour {
		return fmt.Errorf("%w: backlog cutoff %s outside the day", ErrInvalidConfig, c.BacklogCutoff)
	}
	if len(c.BacklogStatuses) == 0 {
		return fmt.Errorf("%w: no backlog statuses", ErrInvalidConfig)
	}
	if c.BikeModel == "" || c.AutoModel == "" {
		return fmt.Errorf("%w: vehicle models must be set", ErrInvalidConfig)
	}
	if c.Location == nil {
		return fmt.Errorf("%w: location must be set", ErrInvalidConfig)
	}
	return nil
}

func validateNames(kind string, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%w: at least one %s is required", ErrInvalidConfig, kind)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("%w: empty %s name", ErrInvalidConfig, kind)
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate %s %q", ErrInvalidConfig, kind, n)
		}
		seen[n] = true
	}
	return nil
}

// validateBuckets requires contiguous, non-overlapping buckets spanning [0,24).
func validateBuckets(buckets []Bucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("%w: no time buckets", ErrInvalidConfig)
	}
	labels := make(map[string]bool, len(buckets))
	next := 0
	for _, b := range buckets {
		if b.Label == "" || labels[b.Label] {
			return fmt.Errorf("%w: bucket labels must be unique and non-empty (%q)", ErrInvalidConfig, b.Label)
		}
		labels[b.Label] = true
		if b.Start != next {
			return fmt.Errorf("%w: bucket %s starts at %d, expected %d", ErrInvalidConfig, b.Label, b.Start, next)
		}
		if b.End <= b.Start {
			return fmt.Errorf("%w: bucket %s is empty", ErrInvalidConfig, b.Label)
		}
		next = b.End
	}
	if next != 24 {
		return fmt.Errorf("%w: buckets end at %d, expected 24", ErrInvalidConfig, next)
	}
	return nil
}

// HasHub reports whether hub is one of the configured hubs.
func (c *Config) HasHub(hub string) bool {
	return contains(c.Hubs, hub)
}

func (c *Config) isBacklogStatus(status string) bool {
	return contains(c.BacklogStatuses, status)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Params selects a single report run.
type Params struct {
	Date orders.Date `json:"date"`
	Hub  string      `json:"hub"`
}

// Validate checks the parameters against the configuration.
func (p Params) Validate(cfg *Config) error {
	if p.Date.IsZero() {
		return errors.New("report date is required")
	}
	if !cfg.HasHub(p.Hub) {
		return fmt.Errorf("%w: %q", ErrUnknownHub, p.Hub)
	}
	return nil
}
