package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/absmach/rounds/pkg/run"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connTimeout    = 10
	reconnTimeout  = 1
	disconnTimeout = 250

	online  = "online"
	offline = "offline"
)

var (
	errPublishTimeout     = errors.New("failed to publish due to timeout reached")
	errSubscribeTimeout   = errors.New("failed to subscribe due to timeout reached")
	errUnsubscribeTimeout = errors.New("failed to unsubscribe due to timeout reached")
	errConnectTimeout     = errors.New("timeout reached while connecting to MQTT broker")
	errConnect            = errors.New("failed to connect to MQTT broker")
	errEmptyID            = errors.New("empty client ID")
	errEmptyRunID         = errors.New("event without run ID")
	errEmptyKind          = errors.New("event without kind")
)

type Config struct {
	Address   string        `env:"ADDRESS"    envDefault:"tcp://localhost:1883"`
	ClientID  string        `env:"CLIENT_ID"  envDefault:""`
	Username  string        `env:"USERNAME"   envDefault:""`
	Password  string        `env:"PASSWORD"   envDefault:""`
	BaseTopic string        `env:"BASE_TOPIC" envDefault:"rounds"`
	QoS       byte          `env:"QOS"        envDefault:"1"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"30s"`
}

// Presence is kept retained on the status topic of each client. The broker
// publishes the offline value as the last will.
type Presence struct {
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
}

// Handler receives a decoded run event and the topic it arrived on.
type Handler func(topic string, ev run.Event) error

// PubSub moves run events over the <base>/runs/<run id>/<kind> topic tree.
type PubSub interface {
	Publish(ctx context.Context, ev run.Event) error
	// Subscribe follows the events of one run, or of every run when runID
	// is empty.
	Subscribe(ctx context.Context, runID string, handler Handler) error
	Unsubscribe(ctx context.Context, runID string) error
	// Disconnect marks the client offline and closes the connection.
	Disconnect(ctx context.Context) error
}

type pubsub struct {
	client   paho.Client
	clientID string
	base     string
	qos      byte
	timeout  time.Duration
	logger   *slog.Logger
}

func NewPubSub(cfg Config, logger *slog.Logger) (PubSub, error) {
	if cfg.ClientID == "" {
		return nil, errEmptyID
	}

	client := paho.NewClient(clientOptions(cfg, logger))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := await(ctx, client.Connect(), errConnectTimeout); err != nil {
		return nil, errors.Join(errConnect, err)
	}

	return newPubSub(client, cfg, logger), nil
}

func newPubSub(client paho.Client, cfg Config, logger *slog.Logger) *pubsub {
	return &pubsub{
		client:   client,
		clientID: cfg.ClientID,
		base:     cfg.BaseTopic,
		qos:      cfg.QoS,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

func (ps *pubsub) Publish(ctx context.Context, ev run.Event) error {
	if ev.RunID == "" {
		return errEmptyRunID
	}
	if ev.Kind == "" {
		return errEmptyKind
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := EventTopic(ps.base, ev.RunID, ev.Kind)

	return ps.wait(ctx, ps.client.Publish(topic, ps.qos, false, data), errPublishTimeout)
}

func (ps *pubsub) Subscribe(ctx context.Context, runID string, handler Handler) error {
	filter := EventFilter(ps.base, runID)

	return ps.wait(ctx, ps.client.Subscribe(filter, ps.qos, ps.handle(handler)), errSubscribeTimeout)
}

func (ps *pubsub) Unsubscribe(ctx context.Context, runID string) error {
	return ps.wait(ctx, ps.client.Unsubscribe(EventFilter(ps.base, runID)), errUnsubscribeTimeout)
}

func (ps *pubsub) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tok := ps.client.Publish(StatusTopic(ps.base, ps.clientID), ps.qos, true, presence(ps.clientID, offline))
	err := ps.wait(ctx, tok, errPublishTimeout)
	ps.client.Disconnect(disconnTimeout)

	return err
}

func (ps *pubsub) wait(ctx context.Context, tok paho.Token, errTimeout error) error {
	ctx, cancel := context.WithTimeout(ctx, ps.timeout)
	defer cancel()

	return await(ctx, tok, errTimeout)
}

// await blocks until tok completes, reporting errTimeout when ctx expires
// first. Cancellation is returned as is.
func await(ctx context.Context, tok paho.Token, errTimeout error) error {
	if err := tok.Error(); err != nil {
		return err
	}

	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errTimeout
		}

		return ctx.Err()
	}
}

func (ps *pubsub) handle(h Handler) paho.MessageHandler {
	return func(_ paho.Client, m paho.Message) {
		runID, kind, err := ParseEventTopic(ps.base, m.Topic())
		if err != nil {
			ps.logger.Warn("Dropping MQTT message", slog.String("topic", m.Topic()), slog.Any("error", err))

			return
		}

		var ev run.Event
		if err := json.Unmarshal(m.Payload(), &ev); err != nil {
			ps.logger.Warn("Failed to decode run event", slog.String("topic", m.Topic()), slog.Any("error", err))

			return
		}
		if ev.RunID == "" {
			ev.RunID = runID
		}
		if ev.Kind == "" {
			ev.Kind = kind
		}

		if err := h(m.Topic(), ev); err != nil {
			ps.logger.Warn("Failed to handle run event",
				slog.String("run_id", ev.RunID),
				slog.String("kind", string(ev.Kind)),
				slog.Any("error", err),
			)
		}

		m.Ack()
	}
}

func clientOptions(cfg Config, logger *slog.Logger) *paho.ClientOptions {
	status := StatusTopic(cfg.BaseTopic, cfg.ClientID)

	opts := paho.NewClientOptions().
		AddBroker(cfg.Address).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connTimeout*time.Second).
		SetMaxReconnectInterval(reconnTimeout*time.Minute).
		SetBinaryWill(status, presence(cfg.ClientID, offline), cfg.QoS, true)

	opts.SetOnConnectHandler(func(c paho.Client) {
		logger.Info("MQTT connection established", slog.String("status_topic", status))
		// Reconnects restore the retained presence the last will overwrote.
		c.Publish(status, cfg.QoS, true, presence(cfg.ClientID, online))
	})

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	})

	opts.SetReconnectingHandler(func(_ paho.Client, options *paho.ClientOptions) {
		logger.Info("MQTT reconnecting", slog.String("client_id", options.ClientID))
	})

	return opts
}

func presence(clientID, status string) []byte {
	// A struct of two strings always encodes.
	data, _ := json.Marshal(Presence{ClientID: clientID, Status: status})

	return data
}
