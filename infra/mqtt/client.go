// Package mqtt hands the selected charging plan to downstream consumers over
// an MQTT broker. The plan is published once per completed run; live charger
// control stays out of scope.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mdubois44/chargeplan/infra/logger"
)

// ErrConnectTimeout is returned when the broker does not answer the initial
// connect in time.
var ErrConnectTimeout = errors.New("mqtt: connect timeout")

// Config defines the connection parameters for the Paho MQTT publisher.
type Config struct {
	Broker           string `json:"broker"`
	ClientID         string `json:"client_id"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	Topic            string `json:"topic"`
	QoS              byte   `json:"qos"`
	Retain           bool   `json:"retain"`
	ConnectTimeoutMS int    `json:"connect_timeout_ms"`
	UseTLS           bool   `json:"use_tls"`
	ClientCert       string `json:"client_cert"`
	ClientKey        string `json:"client_key"`
	CABundle         string `json:"ca_bundle"`
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = "chargeplan"
	}
	if c.Topic == "" {
		c.Topic = "chargeplan/schedule"
	}
	if c.ConnectTimeoutMS <= 0 {
		c.ConnectTimeoutMS = 5000
	}
	return c
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
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
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoPublisher publishes plans through an Eclipse Paho client.
type PahoPublisher struct {
	cli    pahoClient
	topic  string
	qos    byte
	retain bool
	log    logger.Logger
}

// NewPahoPublisher connects to the broker and returns a ready publisher.
func NewPahoPublisher(cfg Config) (*PahoPublisher, error) {
	cfg = cfg.withDefaults()

	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	log := logger.New("mqtt-publisher")
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}

	cli := newMQTTClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond) {
		return nil, ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	log.Infof("connected to %s, publishing on %s", cfg.Broker, cfg.Topic)

	return &PahoPublisher{cli: cli, topic: cfg.Topic, qos: cfg.QoS, retain: cfg.Retain, log: log}, nil
}

// PublishSchedule serializes the payload and publishes it on the configured
// topic, waiting for broker confirmation or context cancellation.
func (p *PahoPublisher) PublishSchedule(ctx context.Context, payload SchedulePayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}

	token := p.cli.Publish(p.topic, p.qos, p.retain, b)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish schedule: %w", err)
	}
	p.log.Infof("published run %s schedule (%d vehicles)", payload.RunID, len(payload.Vehicles))
	return nil
}

// Close disconnects from the broker.
func (p *PahoPublisher) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
