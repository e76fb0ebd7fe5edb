// Package repository provides data access for persisted generation history.
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bluedream1831-collab/threads/internal/models"
)

// HistoryRepository defines the interface for generation history operations.
type HistoryRepository interface {
	Record(ctx context.Context, rec *models.GenerationRecord) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.GenerationRecord, error)
}

// historyRepository implements HistoryRepository
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Record(ctx context.Context, rec *models.GenerationRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *historyRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.GenerationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var records []models.GenerationRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
