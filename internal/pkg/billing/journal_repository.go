package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/BlockFox/app/models"
)

// JournalRepository stores webhook deliveries.
type JournalRepository interface {
	Insert(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	Finish(id uint, processedAt *time.Time, lastError string) error
	ListPending(maxAttempts, limit int) ([]models.WebhookEvent, error)
}

type journalRepository struct {
	db *gorm.DB
}

func NewJournalRepository(db *gorm.DB) JournalRepository {
	return &journalRepository{db: db}
}

// Insert creates the row unless the Stripe event id is already stored. The
// stored row is returned either way.
func (r *journalRepository) Insert(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	var stored models.WebhookEvent
	if err := r.db.Where("stripe_event_id = ?", event.StripeEventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return tx.RowsAffected > 0, &stored, nil
}

func (r *journalRepository) Finish(id uint, processedAt *time.Time, lastError string) error {
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"attempts":     gorm.Expr("attempts + 1"),
		"processed_at": processedAt,
		"last_error":   lastError,
	}).Error
}

// ListPending returns authentic deliveries that still failed, oldest first.
func (r *journalRepository) ListPending(maxAttempts, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.
		Where("signature_valid = ? AND processed_at IS NULL AND attempts < ?", true, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
