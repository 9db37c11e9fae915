package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremon "github.com/kilianp07/stationrisk/core/monitoring"
	coremqtt "github.com/kilianp07/stationrisk/core/mqtt"
	"github.com/kilianp07/stationrisk/infra/logger"
)

// Default topic layout. %s is replaced by the station id.
const (
	DefaultPriceTopic = "stations/%s/price"
	DefaultAckTopic   = "stations/+/price/ack"
	DefaultEventTopic = "stationrisk/events"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled    bool            `json:"enabled"`
	Broker     string          `json:"broker"`
	ClientID   string          `json:"client_id"`
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	PriceTopic string          `json:"price_topic"`
	AckTopic   string          `json:"ack_topic"`
	EventTopic string          `json:"event_topic"`
	UseTLS     bool            `json:"use_tls"`
	ClientCert string          `json:"client_cert"`
	ClientKey  string          `json:"client_key"`
	CABundle   string          `json:"ca_bundle"`
	AuthMethod string          `json:"auth_method"`
	QoS        map[string]byte `json:"qos"`
	LWTTopic   string          `json:"lwt_topic"`
	LWTPayload string          `json:"lwt_payload"`
	LWTQoS     byte            `json:"lwt_qos"`
	LWTRetain  bool            `json:"lwt_retain"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`
	// AckTimeoutMS bounds the wait for a charger acknowledgment; 0 skips it.
	AckTimeoutMS int `json:"ack_timeout_ms"`
	TLSConfig  *tls.Config     `json:"-"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements the core mqtt.Client interface using Eclipse Paho.
type PahoClient struct {
	cli        pahoClient
	priceTopic string
	ackTopic   string
	eventTopic string
	qos        map[string]byte

	mu         sync.Mutex
	ackChans   map[string]chan struct{}
	logger     logger.Logger
	lwtTopic   string
	lwtPayload string
	lwtQoS     byte
	lwtRetain  bool
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// SetDefaults fills empty topics and retry settings.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "stationrisk"
	}
	if c.PriceTopic == "" {
		c.PriceTopic = DefaultPriceTopic
	}
	if c.AckTopic == "" {
		c.AckTopic = DefaultAckTopic
	}
	if c.EventTopic == "" {
		c.EventTopic = DefaultEventTopic
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the settings of an enabled client.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if strings.Count(c.PriceTopic, "%s") != 1 {
		return fmt.Errorf("mqtt: price_topic %q must contain exactly one %%s", c.PriceTopic)
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt: qos %q must be 0, 1 or 2", k)
		}
	}
	return nil
}

// NewPahoClient connects to the MQTT broker and subscribes to the ACK topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	logger := logger.New("mqtt_client")
	pc := &PahoClient{
		priceTopic: cfg.PriceTopic,
		ackTopic:   cfg.AckTopic,
		eventTopic: cfg.EventTopic,
		ackChans:   make(map[string]chan struct{}),
		logger:     logger,
		qos:        cfg.QoS,
		lwtTopic:   cfg.LWTTopic,
		lwtPayload: cfg.LWTPayload,
		lwtQoS:     cfg.LWTQoS,
		lwtRetain:  cfg.LWTRetain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		logger.Infof("MQTT connected")
		qos := byte(0)
		if q, ok := pc.qos["ack"]; ok {
			qos = q
		}
		if token := c.Subscribe(pc.ackTopic, qos, pc.onAck); token.Wait() && token.Error() != nil {
			logger.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		logger.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.ackChans[m.OrderID]
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		p.logger.Debugf("received ack %s", m.OrderID)
	}
	p.mu.Unlock()
}

// SendPrice publishes a price order to the station specific topic and
// returns the order identifier used for acknowledgment tracking. Publishing
// is retried with exponential backoff; the final failure is reported to
// the monitor.
func (p *PahoClient) SendPrice(stationID string, price float64, reason string) (string, error) {
	orderID := uuid.NewString()
	order := struct {
		OrderID   string  `json:"order_id"`
		StationID string  `json:"station_id"`
		Price     float64 `json:"price"`
		Reason    string  `json:"reason"`
		Timestamp int64   `json:"timestamp"`
	}{
		OrderID:   orderID,
		StationID: stationID,
		Price:     price,
		Reason:    reason,
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return "", err
	}

	topic := fmt.Sprintf(p.priceTopic, stationID)
	if err := p.publish(topic, p.qosFor("price"), payload); err != nil {
		coremon.CaptureException(err, map[string]string{"station_id": stationID, "module": "mqtt"})
		return "", err
	}
	p.logger.Infof("sent price order %s to %s", orderID, topic)

	p.mu.Lock()
	p.ackChans[orderID] = make(chan struct{}, 1)
	p.mu.Unlock()

	return orderID, nil
}

// PublishEvent publishes a raw JSON event on the event topic.
func (p *PahoClient) PublishEvent(payload []byte) error {
	if err := p.publish(p.eventTopic, p.qosFor("event"), payload); err != nil {
		coremon.CaptureException(err, map[string]string{"module": "mqtt"})
		return err
	}
	return nil
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

func (p *PahoClient) publish(topic string, qos byte, payload []byte) error {
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d on %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return publishErr
}

// WaitForAck blocks until an ACK for the given order ID is received or timeout.
func (p *PahoClient) WaitForAck(orderID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.ackChans[orderID]
	p.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("%w: %s", coremqtt.ErrUnknownOrder, orderID)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		p.mu.Lock()
		delete(p.ackChans, orderID)
		p.mu.Unlock()
		return true, nil
	case <-timer.C:
		p.mu.Lock()
		delete(p.ackChans, orderID)
		p.mu.Unlock()
		return false, fmt.Errorf("%w", coremqtt.ErrAckTimeout)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
