package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"theatre-ticketing/internal/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

func (p *Producer) Publish(topic, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishReservationCreated streams the booking event after commit.
func (p *Producer) PublishReservationCreated(event models.ReservationCreatedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(TopicReservationCreated, strconv.FormatInt(event.ReservationID, 10), value)
}

// PublishPaymentStatus streams a payment state transition.
func (p *Producer) PublishPaymentStatus(event models.PaymentStatusEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(TopicPaymentStatus, strconv.FormatInt(event.ReservationID, 10), value)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
