package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/stationrisk/core/model"
	coremqtt "github.com/kilianp07/stationrisk/core/mqtt"
	"github.com/kilianp07/stationrisk/infra/logger"
	"github.com/kilianp07/stationrisk/internal/eventbus"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// EventPublisher is implemented by clients able to forward event log entries.
type EventPublisher interface {
	PublishEvent(payload []byte) error
}

// PricePublisher forwards controller price changes to station chargers and
// mirrors the event log on a broadcast topic.
type PricePublisher struct {
	client     Client
	ackTimeout time.Duration
	log        logger.Logger
	wg         sync.WaitGroup
}

// NewPricePublisher wraps a client. A zero ackTimeout skips acknowledgment
// tracking.
func NewPricePublisher(client Client, ackTimeout time.Duration) *PricePublisher {
	return &PricePublisher{client: client, ackTimeout: ackTimeout, log: logger.New("price_publisher")}
}

// Start subscribes to the buses and publishes until the context is canceled
// or both buses are closed. Either bus may be nil.
func (p *PricePublisher) Start(ctx context.Context, prices *eventbus.TypedBus[model.PriceChange], entries *eventbus.TypedBus[model.EventLogEntry]) {
	if prices != nil {
		sub := prices.Subscribe()
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer prices.Unsubscribe(sub)
			for {
				select {
				case <-ctx.Done():
					return
				case pc, ok := <-sub:
					if !ok {
						return
					}
					p.sendPrice(pc)
				}
			}
		}()
	}
	ep, ok := p.client.(EventPublisher)
	if entries == nil || !ok {
		return
	}
	sub := entries.Subscribe()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer entries.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-sub:
				if !ok {
					return
				}
				payload, err := json.Marshal(e)
				if err != nil {
					p.log.Errorf("encode event %s: %v", e.ID, err)
					continue
				}
				if err := ep.PublishEvent(payload); err != nil {
					p.log.Warnf("publish event %s: %v", e.ID, err)
				}
			}
		}
	}()
}

// Wait blocks until the publishing goroutines have returned.
func (p *PricePublisher) Wait() { p.wg.Wait() }

func (p *PricePublisher) sendPrice(pc model.PriceChange) {
	orderID, err := p.client.SendPrice(pc.StationID, pc.NewPrice, pc.Reason)
	if err != nil {
		p.log.Warnf("send price for %s: %v", pc.StationID, err)
		return
	}
	if p.ackTimeout <= 0 {
		return
	}
	if ok, err := p.client.WaitForAck(orderID, p.ackTimeout); err != nil || !ok {
		p.log.Warnf("price order %s for %s not acknowledged: %v", orderID, pc.StationID, err)
	}
}

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Prices     map[string]float64
	Events     [][]byte
	FailIDs    map[string]bool
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Prices:     make(map[string]float64),
		FailIDs:    make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// SendPrice records the price or returns an error if configured to fail.
func (m *MockPublisher) SendPrice(stationID string, price float64, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[stationID] {
		return "", fmt.Errorf("publish failed")
	}
	m.Prices[stationID] = price
	orderID := fmt.Sprintf("order-%s", stationID)
	m.AckResults[orderID] = true
	return orderID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(orderID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[orderID]
	m.mu.Unlock()
	if !exists {
		return false, coremqtt.ErrUnknownOrder
	}
	return ok, nil
}

// PublishEvent records the payload.
func (m *MockPublisher) PublishEvent(payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, append([]byte(nil), payload...))
	return nil
}

// Price returns the last price recorded for a station.
func (m *MockPublisher) Price(stationID string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Prices[stationID]
	return p, ok
}

// EventCount returns how many events were published.
func (m *MockPublisher) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}
