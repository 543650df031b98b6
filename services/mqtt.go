package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/config"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher sends each appended row to {prefix}/{cabin}/prediction, retained at QoS 1.
type MQTTPublisher struct {
	client mqttClient
	prefix string
}

func NewMQTTPublisher(cfg config.MQTTConfig, logger logrus.FieldLogger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetClientID(cfg.ClientID + "-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		logger.WithField("broker", cfg.URL).Info("mqtt connected")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.WithError(err).Warn("mqtt connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.URL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return newMQTTPublisher(client, cfg.TopicPrefix), nil
}

func newMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix}
}

func CabinTopic(prefix string, cabin int) string {
	return fmt.Sprintf("%s/%d/prediction", prefix, cabin)
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

func (p *MQTTPublisher) Publish(ctx context.Context, rows []models.Row) error {
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(row)
		if err != nil {
			return err
		}
		token := p.client.Publish(CabinTopic(p.prefix, row.CabinNo), 1, true, payload)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("mqtt publish cabin %d: timed out", row.CabinNo)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt publish cabin %d: %w", row.CabinNo, err)
		}
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
