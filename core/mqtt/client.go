package mqtt

import "time"

// Client pushes price orders to station chargers over MQTT and tracks their
// acknowledgments.
type Client interface {
	// SendPrice publishes a price order for the given station and returns the
	// order identifier used to track the acknowledgment.
	SendPrice(stationID string, price float64, reason string) (orderID string, err error)

	// WaitForAck waits for an acknowledgment for the provided order
	// identifier or until the timeout expires.
	WaitForAck(orderID string, timeout time.Duration) (bool, error)
}
