// Package mqttnotify publishes apartment status changes as retained MQTT
// messages, one topic per apartment and trade.
package mqttnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/vbonduro/sitecheck/internal/notify"
)

const (
	qos            = 1
	publishTimeout = 5 * time.Second
)

// publishClient is the part of mqtt.Client used here.
type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	client publishClient
	prefix string
	logger *slog.Logger
}

// Connect dials broker and returns a ready Publisher.
func Connect(broker, clientID, prefix string, logger *slog.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return New(client, prefix, logger), nil
}

func New(client publishClient, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, prefix: strings.Trim(prefix, "/"), logger: logger}
}

// Topic is {prefix}/projects/{p}/{trade}/buildings/{b}/apartments/{a}.
func (p *Publisher) Topic(change notify.StatusChange) string {
	r := change.Ref
	return fmt.Sprintf("%s/projects/%s/%s/buildings/%s/apartments/%s",
		p.prefix, r.ProjectID, r.Trade, r.Building, r.Apartment)
}

func (p *Publisher) Publish(ctx context.Context, change notify.StatusChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode status change: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to publish status change: %w", err)
	}

	topic := p.Topic(change)
	token := p.client.Publish(topic, qos, true, payload)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(max(time.Until(deadline), 0), publishTimeout)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timed out publishing to topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	p.logger.Debug("published status change", "topic", topic, "status", change.Current)
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
