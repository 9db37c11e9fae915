// Package healing implements the closed-loop pricing controller: a stressed
// station is surge priced and traffic is rerouted to its nearest healthy
// neighbour with a discount.
package healing

import (
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/stationrisk/core/eventlog"
	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/core/stationstatus"
)

const (
	SurgeMultiplier    = 1.75
	SurgeUtilDrop      = 0.40
	SurgeUtilFloor     = 0.20
	SurgeWaitMins      = 2.0
	RerouteMultiplier  = 0.70
	RerouteUtilGain    = 0.30
	RerouteUtilCeiling = 0.85
	// HealthyUtilization is the exclusive upper bound for reroute targets.
	HealthyUtilization = 0.60
)

// Reason values carried by PriceChange.
const (
	ReasonSurge   = "surge"
	ReasonReroute = "reroute"
)

// Result holds the post-heal states. Rerouted is nil when no healthy
// neighbour existed.
type Result struct {
	Stressed model.StationState  `json:"stressed_station"`
	Rerouted *model.StationState `json:"rerouted_station"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithPriceHook registers a callback invoked for every price change.
func WithPriceHook(fn func(model.PriceChange)) Option {
	return func(c *Controller) { c.onPrice = fn }
}

// WithClock replaces time.Now for PriceChange timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller applies self-healing actions to a table and records them.
type Controller struct {
	log     *eventlog.Log
	onPrice func(model.PriceChange)
	now     func() time.Time
}

// New returns a controller writing to log.
func New(log *eventlog.Log, opts ...Option) *Controller {
	c := &Controller{log: log, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Heal surges the price of station id and reroutes to the nearest station
// whose utilization is below HealthyUtilization. Repeated calls compound.
func (c *Controller) Heal(t *stationstatus.Table, id string) (Result, error) {
	before, ok := t.Get(id)
	if !ok {
		return Result{}, &model.NotFoundError{StationID: id}
	}
	surged := before.Price * SurgeMultiplier
	if err := t.Set(id, model.StationUpdate{
		Price:                 model.Float(surged),
		UtilizationRate:       model.Float(max(SurgeUtilFloor, before.UtilizationRate-SurgeUtilDrop)),
		EstimatedWaitTimeMins: model.Float(SurgeWaitMins),
	}); err != nil {
		return Result{}, err
	}
	stressed, _ := t.Get(id)
	c.emit(id, before.Price, stressed.Price, ReasonSurge)

	details := map[string]string{
		"stressed_station":        stressed.StationName,
		"stressed_price_increase": PriceDelta(before.Price, stressed.Price),
	}

	neighbour, found := nearestHealthy(t, stressed)
	if !found {
		details["rerouted_station"] = "None"
		details["rerouted_price_decrease"] = "N/A"
		c.log.Append(model.ActionSurgePricingNoReroute, details)
		return Result{Stressed: stressed}, nil
	}

	if err := t.Set(neighbour.StationID, model.StationUpdate{
		Price:           model.Float(neighbour.Price * RerouteMultiplier),
		UtilizationRate: model.Float(min(RerouteUtilCeiling, neighbour.UtilizationRate+RerouteUtilGain)),
	}); err != nil {
		return Result{}, err
	}
	rerouted, _ := t.Get(neighbour.StationID)
	c.emit(rerouted.StationID, neighbour.Price, rerouted.Price, ReasonReroute)

	details["rerouted_station"] = rerouted.StationName
	details["rerouted_price_decrease"] = PriceDelta(neighbour.Price, rerouted.Price)
	c.log.Append(model.ActionSurgePricing, details)
	return Result{Stressed: stressed, Rerouted: &rerouted}, nil
}

func (c *Controller) emit(id string, oldPrice, newPrice float64, reason string) {
	if c.onPrice == nil {
		return
	}
	c.onPrice(model.PriceChange{StationID: id, OldPrice: oldPrice, NewPrice: newPrice, Reason: reason, Time: c.now()})
}

// nearestHealthy scans in table order so the first station wins distance
// ties.
func nearestHealthy(t *stationstatus.Table, from model.StationState) (model.StationState, bool) {
	origin := []float64{from.Latitude, from.Longitude}
	var (
		best  model.StationState
		bestD float64
		found bool
	)
	for _, s := range t.List() {
		if s.StationID == from.StationID || s.UtilizationRate >= HealthyUtilization {
			continue
		}
		d := floats.Distance(origin, []float64{s.Latitude, s.Longitude}, 2)
		if !found || d < bestD {
			best, bestD, found = s, d, true
		}
	}
	return best, found
}

// PriceDelta renders a before/after price pair, e.g. "$0.45 ➔ $0.79".
func PriceDelta(from, to float64) string {
	return "$" + decimal.NewFromFloat(from).StringFixed(2) + " ➔ $" + decimal.NewFromFloat(to).StringFixed(2)
}
