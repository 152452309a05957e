package queue

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cadencehq/cadence/internal/usecase"
)

// ProviderEvent is what the email provider delivers for replies and bounces.
type ProviderEvent struct {
	Type   string `json:"type"` // reply, bounce
	LeadID string `json:"lead_id"`
	Email  string `json:"email,omitempty"`
}

// ProviderConsumer feeds provider reply/bounce notifications into the lead
// signal paths.
type ProviderConsumer struct {
	Channel *amqp.Channel
	Leads   *usecase.LeadService
}

func NewProviderConsumer(ch *amqp.Channel, leads *usecase.LeadService) *ProviderConsumer {
	return &ProviderConsumer{Channel: ch, Leads: leads}
}

func (c *ProviderConsumer) Start(ctx context.Context) error {
	msgs, err := c.Channel.Consume(
		ProviderQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			var event ProviderEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				log.Printf("[consumer] malformed provider event: %v", err)
				// Reject without requeue so one bad message cannot jam the queue.
				d.Nack(false, false)
				continue
			}
			if err := c.handle(ctx, event); err != nil {
				log.Printf("[consumer] handle %s for lead %s: %v", event.Type, event.LeadID, err)
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}()

	log.Printf("[consumer] waiting for provider events on %q", ProviderQueue)
	return nil
}

func (c *ProviderConsumer) handle(ctx context.Context, event ProviderEvent) error {
	switch event.Type {
	case "reply":
		_, err := c.Leads.MarkReplied(ctx, event.LeadID)
		if de, ok := usecase.AsDomainError(err); ok && de.Code == usecase.CodeInvalidState {
			// A reply for a lead that never got the initial email is provider
			// noise; drop it rather than dead-letter it.
			log.Printf("[consumer] ignoring reply for lead %s: %s", event.LeadID, de.Message)
			return nil
		}
		return err
	case "bounce":
		return c.Leads.MarkBounced(ctx, event.LeadID)
	default:
		log.Printf("[consumer] unknown provider event type %q, dropping", event.Type)
		return nil
	}
}
