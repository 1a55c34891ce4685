// Package mqttbridge forwards frames between an i7565 driver and an MQTT
// broker.
//
// Received extended frames are published to <prefix>/rx/<ID> with the data as
// an uppercase hex payload. Messages on <prefix>/tx/<ID> are sent on the bus,
// a 3 digit ID selects a standard frame and an 8 digit ID an extended one.
//
// The driver is only touched from the polling goroutine, MQTT callbacks hand
// frames over through a channel.
package mqttbridge

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/roffe/i7565"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Broker       string
	ClientID     string
	Username     string
	Password     string
	TopicPrefix  string
	QoS          byte
	PollInterval time.Duration
	QueueSize    int
	Debug        bool
}

type mqttClient interface {
	Connect() MQTT.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token
	Subscribe(topic string, qos byte, callback MQTT.MessageHandler) MQTT.Token
	Disconnect(quiesce uint)
}

type Bridge struct {
	cfg    Config
	drv    *i7565.Driver
	client mqttClient

	rx chan *i7565.CANFrame
	tx chan *i7565.CANFrame

	droppedRx atomic.Uint64
	droppedTx atomic.Uint64
	published atomic.Uint64
}

var ErrQueueFull = errors.New("bridge queue full")

const tokenTimeout = 5 * time.Second

// New creates a bridge and registers it as an extended frame listener on drv.
func New(drv *i7565.Driver, cfg Config) *Bridge {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "i7565"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "i7565-bridge"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	opts := MQTT.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOrderMatters(false)

	b := newBridge(drv, cfg, nil)
	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(func(_ MQTT.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	})
	b.client = MQTT.NewClient(opts)
	return b
}

func newBridge(drv *i7565.Driver, cfg Config, client mqttClient) *Bridge {
	b := &Bridge{
		cfg:    cfg,
		drv:    drv,
		client: client,
		rx:     make(chan *i7565.CANFrame, cfg.QueueSize),
		tx:     make(chan *i7565.CANFrame, cfg.QueueSize),
	}
	drv.AddExtendedFrameListener(b)
	return b
}

func (b *Bridge) OnExtendedFrameReceived(fromID uint32, data []byte) {
	select {
	case b.rx <- i7565.NewExtendedFrame(fromID, data):
	default:
		b.droppedRx.Add(1)
	}
}

func (b *Bridge) Connect() error {
	token := b.client.Connect()
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("timeout connecting to %s", b.cfg.Broker)
	}
	return token.Error()
}

// onConnect runs on every (re)connect, paho drops subscriptions with the
// session.
func (b *Bridge) onConnect(MQTT.Client) {
	if err := b.subscribe(); err != nil {
		log.Printf("mqtt subscribe failed: %v", err)
	}
}

func (b *Bridge) subscribe() error {
	token := b.client.Subscribe(TxTopicFilter(b.cfg.TopicPrefix), b.cfg.QoS, func(_ MQTT.Client, msg MQTT.Message) {
		if err := b.enqueueTx(msg.Topic(), msg.Payload()); err != nil {
			log.Printf("mqtt %s: %v", msg.Topic(), err)
		}
	})
	if !token.WaitTimeout(tokenTimeout) {
		return errors.New("timeout subscribing")
	}
	return token.Error()
}

func (b *Bridge) enqueueTx(topic string, payload []byte) error {
	f, err := ParseTxMessage(b.cfg.TopicPrefix, topic, payload)
	if err != nil {
		return err
	}
	select {
	case b.tx <- f:
		return nil
	default:
		b.droppedTx.Add(1)
		return ErrQueueFull
	}
}

// Run polls the driver and publishes frames until ctx is done or the
// transport fails. Cancelling ctx is not reported as an error. The tx
// subscription is made by the connect handler, so Connect must be called
// first.
func (b *Bridge) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.pollLoop(gctx) })
	g.Go(func() error { return b.publishLoop(gctx) })
	err := g.Wait()
	b.client.Disconnect(250)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *Bridge) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-b.tx:
			if err := b.send(f); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := b.drv.Poll(); err != nil {
				return err
			}
		}
	}
}

func (b *Bridge) send(f *i7565.CANFrame) error {
	code, err := b.drv.Send(f)
	if err != nil {
		if !i7565.IsRecoverable(err) {
			return err
		}
		log.Printf("send %s: %v", f.String(), err)
		return nil
	}
	if code != i7565.CodeOK {
		log.Printf("send %s: %s", f.String(), b.drv.GetErrorString(int(code)))
	} else if b.cfg.Debug {
		log.Printf("sent %s", f.String())
	}
	return nil
}

func (b *Bridge) publishLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-b.rx:
			token := b.client.Publish(RxTopic(b.cfg.TopicPrefix, f.Identifier), b.cfg.QoS, false, EncodePayload(f.Data))
			if !token.WaitTimeout(tokenTimeout) {
				log.Printf("publish 0x%08X timed out", f.Identifier)
				continue
			}
			if err := token.Error(); err != nil {
				log.Printf("publish 0x%08X: %v", f.Identifier, err)
				continue
			}
			b.published.Add(1)
		}
	}
}

// Stats returns published frames and frames dropped in each direction.
func (b *Bridge) Stats() (published, droppedRx, droppedTx uint64) {
	return b.published.Load(), b.droppedRx.Load(), b.droppedTx.Load()
}

func RxTopic(prefix string, id uint32) string {
	return fmt.Sprintf("%s/rx/%08X", prefix, id)
}

func TxTopicFilter(prefix string) string {
	return prefix + "/tx/+"
}

func EncodePayload(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// ParseTxMessage builds a data frame from a <prefix>/tx/<ID> message. The
// payload is hex, spaces are ignored.
func ParseTxMessage(prefix, topic string, payload []byte) (*i7565.CANFrame, error) {
	idStr := strings.TrimPrefix(topic, prefix+"/tx/")
	if idStr == topic || idStr == "" || strings.Contains(idStr, "/") {
		return nil, fmt.Errorf("unexpected topic %q", topic)
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(idStr), "0x"), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid identifier %q: %w", idStr, err)
	}
	data, err := hex.DecodeString(strings.ReplaceAll(strings.TrimSpace(string(payload)), " ", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid payload %q: %w", payload, err)
	}

	var f *i7565.CANFrame
	if len(strings.TrimPrefix(strings.ToLower(idStr), "0x")) <= 3 {
		f = i7565.NewFrame(uint32(id), data)
	} else {
		f = i7565.NewExtendedFrame(uint32(id), data)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
