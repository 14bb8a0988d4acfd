package services

import (
	"gorm.io/gorm"

	"schoolfee_app_echo/internal/models"
)

// GormTaskQueue persists outbox tasks into the scheduled_tasks table for
// the worker to drain.
type GormTaskQueue struct {
	db *gorm.DB
}

// NewGormTaskQueue creates a queue on top of the outbox database
func NewGormTaskQueue(db *gorm.DB) *GormTaskQueue {
	return &GormTaskQueue{db: db}
}

// Enqueue inserts one task record
func (q *GormTaskQueue) Enqueue(task *models.ScheduledTask) error {
	return q.db.Create(task).Error
}
