package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"festival-system/internal/config"
	"festival-system/internal/logger"
	"festival-system/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer публикует доменные события в Kafka.
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создаёт синхронный Kafka producer.
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer created")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// Close закрывает producer.
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// publishEvent сериализует событие и отправляет в топик.
func (p *Producer) publishEvent(topic string, event models.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	p.log.WithFields(map[string]interface{}{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
		"type":      event.Type,
	}).Debug("Event published")

	return nil
}

// PublishPurchaseRecorded публикует событие о зафиксированных покупках.
func (p *Producer) PublishPurchaseRecorded(paymentIntentID string, accountID *uuid.UUID, counts map[string]int) error {
	return p.publishEvent(p.topics.Purchases, models.Event{
		ID:   uuid.New(),
		Type: models.EventTypePurchaseRecorded,
		Payload: models.PurchaseRecordedPayload{
			PaymentIntentID: paymentIntentID,
			AccountID:       accountID,
			Counts:          counts,
		},
	})
}

// PublishFulfillmentFailed публикует событие о сорванной фиксации платежа.
func (p *Producer) PublishFulfillmentFailed(paymentIntentID, purchaseTypeID, reason string) error {
	return p.publishEvent(p.topics.Purchases, models.Event{
		ID:   uuid.New(),
		Type: models.EventTypeFulfillmentFailed,
		Payload: models.FulfillmentFailedPayload{
			PaymentIntentID: paymentIntentID,
			PurchaseTypeID:  purchaseTypeID,
			Reason:          reason,
		},
	})
}

// PublishAttendeesCreated публикует событие о регистрации участников.
func (p *Producer) PublishAttendeesCreated(accountID, festivalID uuid.UUID, count int) error {
	return p.publishEvent(p.topics.Registrations, models.Event{
		ID:   uuid.New(),
		Type: models.EventTypeAttendeesCreated,
		Payload: models.AttendeesCreatedPayload{
			AccountID:  accountID,
			FestivalID: festivalID,
			Count:      count,
		},
	})
}

// PublishAccountRegistered публикует событие о новом аккаунте.
func (p *Producer) PublishAccountRegistered(accountID uuid.UUID) error {
	return p.publishEvent(p.topics.Registrations, models.Event{
		ID:      uuid.New(),
		Type:    models.EventTypeAccountRegistered,
		Payload: map[string]interface{}{"account_id": accountID},
	})
}
