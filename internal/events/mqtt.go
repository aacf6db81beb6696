// internal/events/mqtt.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tamzrod/line-inspector/internal/detect"
	"github.com/tamzrod/line-inspector/internal/stats"
)

// Publisher is the part of mqtt.Client the emitter uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Config is the minimal runtime config the emitter needs.
type Config struct {
	Broker      string // host:port, tcp:// is added when no scheme is given
	ClientID    string
	TopicPrefix string
	QoS         byte
	QueueSize   int

	Logger *zap.Logger
}

// Stats counts emitter activity.
type Stats struct {
	Connected bool
	Published uint64
	Dropped   uint64
	Errors    uint64
}

// Payload is the JSON body of one edge event.
type Payload struct {
	ID             string         `json:"id"`
	Classification string         `json:"classification"`
	Signal         int            `json:"signal"`
	Counters       stats.Counters `json:"counters"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Emitter publishes rising-edge events to MQTT.
// Edge never blocks: events wait in a bounded queue drained by Run, and are
// dropped when the queue is full.
type Emitter struct {
	cfg    Config
	client Publisher
	log    *zap.Logger
	queue  chan detect.Event
	newID  func() string

	mu        sync.RWMutex
	stats     Stats
	connected bool
}

const publishTimeout = 2 * time.Second

// New wraps an already connected publisher.
func New(cfg Config, client Publisher) (*Emitter, error) {
	if client == nil {
		return nil, errors.New("events: publisher required")
	}
	e, err := newEmitter(cfg)
	if err != nil {
		return nil, err
	}
	e.client = client
	e.connected = true
	return e, nil
}

func newEmitter(cfg Config) (*Emitter, error) {
	if cfg.TopicPrefix == "" {
		return nil, errors.New("events: topic prefix required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("events: invalid qos %d", cfg.QoS)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Emitter{
		cfg:   cfg,
		log:   cfg.Logger,
		queue: make(chan detect.Event, cfg.QueueSize),
		newID: uuid.NewString,
	}, nil
}

// Dial connects to the broker with auto-reconnect and returns the emitter
// and the underlying client, which the caller disconnects on shutdown.
func Dial(ctx context.Context, cfg Config) (*Emitter, mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, nil, errors.New("events: broker required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "inspector-" + uuid.NewString()
	}
	e, err := newEmitter(cfg)
	if err != nil {
		return nil, nil, err
	}
	log := e.log

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		e.setConnected(true)
		log.Info("mqtt connection established", zap.String("broker", cfg.Broker), zap.String("client_id", cfg.ClientID))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		e.setConnected(false)
		log.Warn("mqtt connection lost, will auto-reconnect", zap.String("broker", cfg.Broker), zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	e.client = client

	log.Info("connecting to mqtt broker", zap.String("broker", cfg.Broker))
	token := client.Connect()

	select {
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, nil, ctx.Err()
	case <-token.Done():
	case <-time.After(5 * time.Second):
		client.Disconnect(0)
		return nil, nil, errors.New("events: mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, nil, fmt.Errorf("events: mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return e, client, nil
}

// Edge queues one event. Never blocks.
func (e *Emitter) Edge(ev detect.Event) {
	select {
	case e.queue <- ev:
	default:
		e.mu.Lock()
		e.stats.Dropped++
		e.mu.Unlock()
		e.log.Warn("event queue full, dropping event", zap.Stringer("classification", ev.Classification))
	}
}

// Run publishes queued events until ctx is done.
func (e *Emitter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-e.queue:
			if err := e.publish(ev); err != nil {
				e.log.Warn("event not published", zap.Error(err))
			}
		}
	}
}

// Stats returns emitter statistics.
func (e *Emitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.stats
	s.Connected = e.connected
	return s
}

func (e *Emitter) publish(ev detect.Event) error {
	if !e.isConnected() {
		e.fail()
		return errors.New("events: mqtt not connected")
	}

	topic := Topic(e.cfg.TopicPrefix, ev.Classification)
	payload, err := json.Marshal(BuildPayload(ev, e.newID()))
	if err != nil {
		e.fail()
		return fmt.Errorf("events: marshal: %w", err)
	}

	token := e.client.Publish(topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		e.fail()
		return errors.New("events: publish timeout")
	}
	if err := token.Error(); err != nil {
		e.fail()
		return fmt.Errorf("events: publish: %w", err)
	}

	e.mu.Lock()
	e.stats.Published++
	e.mu.Unlock()

	e.log.Debug("event published", zap.String("topic", topic), zap.Int("size", len(payload)))
	return nil
}

// Topic returns <prefix>/events/<classification>.
func Topic(prefix string, c detect.Classification) string {
	return strings.TrimSuffix(prefix, "/") + "/events/" + c.String()
}

// BuildPayload converts an edge event into its wire form.
func BuildPayload(ev detect.Event, id string) Payload {
	return Payload{
		ID:             id,
		Classification: ev.Classification.String(),
		Signal:         int(ev.Signal),
		Counters:       ev.Counters,
		Timestamp:      ev.Timestamp.UTC(),
	}
}

func brokerURL(b string) string {
	if strings.Contains(b, "://") {
		return b
	}
	return "tcp://" + b
}

func (e *Emitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *Emitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *Emitter) fail() {
	e.mu.Lock()
	e.stats.Errors++
	e.mu.Unlock()
}
