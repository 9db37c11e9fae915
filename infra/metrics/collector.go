package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/stationrisk/core/metrics"
	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/infra/logger"
	"github.com/kilianp07/stationrisk/internal/eventbus"
)

// StartEventCollector subscribes to the price and event log buses and
// forwards their events to the sink recorders it implements. It stops when
// the context is canceled or both buses are closed.
func StartEventCollector(ctx context.Context, prices *eventbus.TypedBus[model.PriceChange], entries *eventbus.TypedBus[model.EventLogEntry], sink coremetrics.MetricsSink) {
	if sink == nil {
		return
	}
	pr, _ := sink.(coremetrics.PriceChangeRecorder)
	er, _ := sink.(coremetrics.EventLogRecorder)
	if pr == nil && er == nil {
		return
	}
	log := logger.New("metrics-collector")

	var priceCh <-chan model.PriceChange
	var entryCh <-chan model.EventLogEntry
	if prices != nil && pr != nil {
		priceCh = prices.Subscribe()
	}
	if entries != nil && er != nil {
		entryCh = entries.Subscribe()
	}
	if priceCh == nil && entryCh == nil {
		return
	}
	go func() {
		defer func() {
			if priceCh != nil {
				prices.Unsubscribe(priceCh)
			}
			if entryCh != nil {
				entries.Unsubscribe(entryCh)
			}
		}()
		for priceCh != nil || entryCh != nil {
			select {
			case <-ctx.Done():
				return
			case pc, ok := <-priceCh:
				if !ok {
					priceCh = nil
					continue
				}
				if err := pr.RecordPriceChange(pc); err != nil {
					log.Warnf("record price change for %s: %v", pc.StationID, err)
				}
			case e, ok := <-entryCh:
				if !ok {
					entryCh = nil
					continue
				}
				if err := er.RecordEventLog(e); err != nil {
					log.Warnf("record event %s: %v", e.Action, err)
				}
			}
		}
	}()
}
