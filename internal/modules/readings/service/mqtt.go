package service

import (
	"context"
	"fmt"
	"time"
)

const mqttIngestTimeout = 10 * time.Second

// HandleMessage ingests one MQTT message. The subscriber logs the returned
// error and drops the message.
func (s *Service) HandleMessage(topic string, payload []byte) error {
	p, err := DecodeJSONPayload(payload)
	if err != nil {
		s.metrics.RecordRejected(SourceMQTT, "decode")
		return fmt.Errorf("topic %s: %w", topic, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mqttIngestTimeout)
	defer cancel()

	reading, err := s.Ingest(ctx, SourceMQTT, p)
	if err != nil {
		return fmt.Errorf("topic %s: %w", topic, err)
	}
	s.logger.Debug("mqtt reading stored", "topic", topic, "id", reading.ID)
	return nil
}
