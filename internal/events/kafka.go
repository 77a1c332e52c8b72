// Package events публикует события оформления чеков в Kafka.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"checkngo/internal/domain"
)

const (
	DefaultTopic   = "checkngo.bills"
	TypeBillIssued = "bill.issued"
)

type Client struct {
	Brokers []string
}

func NewClient(brokersCSV string) *Client {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
}

// Envelope формат сообщения в топике
type Envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Bill       domain.Bill `json:"bill"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher пишет bill.issued, ключ сообщения = id чека
type Publisher struct {
	w   messageWriter
	now func() time.Time
}

func NewPublisher(c *Client, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{w: c.NewWriter(topic), now: func() time.Time { return time.Now().UTC() }}
}

func PublishJSON(ctx context.Context, w messageWriter, key string, payload any, at time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data, Time: at})
}

func (p *Publisher) PublishBillIssued(ctx context.Context, bill domain.Bill) error {
	at := p.now()
	return PublishJSON(ctx, p.w, bill.ID, Envelope{Type: TypeBillIssued, OccurredAt: at, Bill: bill}, at)
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

// Noop используется, когда брокеры не заданы
type Noop struct{}

func (Noop) PublishBillIssued(context.Context, domain.Bill) error { return nil }
func (Noop) Close() error                                        { return nil }
