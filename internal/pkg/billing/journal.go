package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
)

// MaxWebhookAttempts bounds how often a failing delivery is replayed.
const MaxWebhookAttempts = 5

// JournalEntry is a received delivery before it is stored.
type JournalEntry struct {
	EventID        string
	Type           string
	SubscriptionID string
	Payload        []byte
	SignatureValid bool
}

// Journal records Stripe webhook deliveries once and tracks whether they
// were applied.
type Journal struct {
	repo JournalRepository
	now  func() time.Time
}

func NewJournal(repo JournalRepository) *Journal {
	return &Journal{repo: repo, now: time.Now}
}

func NewJournalFromDB(db *gorm.DB) *Journal {
	return NewJournal(NewJournalRepository(db))
}

// Record stores the delivery. created is false for a redelivery. Payloads
// that could not be parsed have no event id and are keyed by their hash.
func (j *Journal) Record(_ context.Context, in JournalEntry) (bool, *models.WebhookEvent, error) {
	if len(in.Payload) == 0 {
		return false, nil, errors.New("empty webhook payload")
	}
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" {
		sum := sha256.Sum256(in.Payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	return j.repo.Insert(&models.WebhookEvent{
		StripeEventID:        eventID,
		Type:                 strings.TrimSpace(in.Type),
		StripeSubscriptionID: strings.TrimSpace(in.SubscriptionID),
		Payload:              string(in.Payload),
		SignatureValid:       in.SignatureValid,
	})
}

// Finish counts an attempt. A nil err marks the delivery as applied.
func (j *Journal) Finish(_ context.Context, id uint, err error) error {
	if id == 0 {
		return errors.New("missing webhook event id")
	}
	if err != nil {
		return j.repo.Finish(id, nil, err.Error())
	}
	now := j.now()
	return j.repo.Finish(id, &now, "")
}

// Pending lists deliveries worth replaying.
func (j *Journal) Pending(_ context.Context, limit int) ([]models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return j.repo.ListPending(MaxWebhookAttempts, limit)
}
