package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/listings-os/internal/nats"
	"github.com/blockedby/listings-os/internal/scraper"
)

type mockConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (m *mockConn) Publish(subject string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.subjects = append(m.subjects, subject)
	m.payloads = append(m.payloads, data)
	return nil
}

func TestPublishListingUpserted(t *testing.T) {
	conn := &mockConn{}
	p := &NATSPublisher{conn: conn}

	event := scraper.ListingUpsertedEvent{
		ListingID:  uuid.New(),
		SourceID:   uuid.New(),
		ExternalID: "100001",
		URL:        "https://reality.example.cz/detail/100001",
		Inserted:   true,
		SeenAt:     time.Now(),
	}

	require.NoError(t, p.PublishListingUpserted(context.Background(), event))
	require.Len(t, conn.subjects, 1)
	assert.Equal(t, nats.SubjectListingUpserted, conn.subjects[0])

	var decoded scraper.ListingUpsertedEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	assert.Equal(t, event.ExternalID, decoded.ExternalID)
	assert.True(t, decoded.Inserted)
}

func TestPublishScrapeCompleted(t *testing.T) {
	conn := &mockConn{}
	p := &NATSPublisher{conn: conn}

	event := scraper.ScrapeCompletedEvent{
		SourceCode: "czreality",
		Found:      12,
		Upserted:   11,
		Errors:     1,
		FinishedAt: time.Now(),
	}

	require.NoError(t, p.PublishScrapeCompleted(context.Background(), event))
	require.Len(t, conn.subjects, 1)
	assert.Equal(t, nats.SubjectScrapeCompleted, conn.subjects[0])

	var decoded scraper.ScrapeCompletedEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	assert.Equal(t, 12, decoded.Found)
}

func TestPublishError(t *testing.T) {
	conn := &mockConn{err: errors.New("nats down")}
	p := &NATSPublisher{conn: conn}

	err := p.PublishScrapeCompleted(context.Background(), scraper.ScrapeCompletedEvent{SourceCode: "czreality"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event")
}
