package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	natsgo "github.com/nats-io/nats.go"

	"github.com/blockedby/listings-os/internal/nats"
	"github.com/blockedby/listings-os/internal/scraper"
)

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher implements scraper.EventPublisher
type NATSPublisher struct {
	conn NATSClient
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(conn *natsgo.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// PublishListingUpserted publishes an upserted-listing event
func (p *NATSPublisher) PublishListingUpserted(ctx context.Context, event scraper.ListingUpsertedEvent) error {
	return p.publish(nats.SubjectListingUpserted, event)
}

// PublishScrapeCompleted publishes a finished-scan event
func (p *NATSPublisher) PublishScrapeCompleted(ctx context.Context, event scraper.ScrapeCompletedEvent) error {
	return p.publish(nats.SubjectScrapeCompleted, event)
}

func (p *NATSPublisher) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}
