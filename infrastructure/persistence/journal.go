// Package persistence stores a local journal of submitted tasks and the
// status updates observed for them.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/tracking"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/database"
)

// Journal records task submissions and status updates. It implements
// tracking.Reporter so it can be plugged straight into the tracker.
type Journal struct {
	db database.Database
}

// NewJournal creates a journal and migrates its schema.
func NewJournal(ctx context.Context, db database.Database) (*Journal, error) {
	if err := db.Session(ctx).AutoMigrate(&TaskRecord{}, &TaskEvent{}); err != nil {
		return nil, fmt.Errorf("migrate journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// RecordSubmission stores the summary row for a freshly accepted task.
// Resubmitting the same task ID resets the row.
func (j *Journal) RecordSubmission(ctx context.Context, taskID string, operation task.Operation, target string) error {
	record := TaskRecord{
		ID:        taskID,
		Operation: operation.String(),
		Target:    target,
		Status:    string(task.StatusOngoing),
	}
	if err := j.db.Session(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// OnUpdate appends the update to the event log and refreshes the summary
// row. Updates for tasks the journal never saw submitted still get a row.
func (j *Journal) OnUpdate(ctx context.Context, update tracking.Update) error {
	event := TaskEvent{
		TaskID:     update.TaskID,
		Status:     string(update.Event.Status),
		Percentage: update.Event.Percentage,
		Message:    update.Event.Message,
		Stage:      update.Event.Stage,
		Transport:  string(update.Transport),
	}

	return j.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("append task event: %w", err)
		}

		var record TaskRecord
		err := tx.First(&record, "id = ?", update.TaskID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = TaskRecord{
				ID:        update.TaskID,
				Operation: task.OperationUnknown.String(),
			}
		} else if err != nil {
			return fmt.Errorf("load task record: %w", err)
		}

		record.Status = string(update.Event.Status)
		record.Percentage = update.Event.Percentage
		record.Message = update.Event.Message
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("update task record: %w", err)
		}
		return nil
	})
}

// Record returns the summary row for one task.
func (j *Journal) Record(ctx context.Context, taskID string) (TaskRecord, error) {
	var record TaskRecord
	err := j.db.Session(ctx).First(&record, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TaskRecord{}, database.ErrNotFound
	}
	if err != nil {
		return TaskRecord{}, fmt.Errorf("load task record: %w", err)
	}
	return record, nil
}

// History returns the most recently updated task records, newest first.
func (j *Journal) History(ctx context.Context, limit int) ([]TaskRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []TaskRecord
	err := j.db.Session(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load task history: %w", err)
	}
	return records, nil
}

// Events returns all observed updates for one task, oldest first.
func (j *Journal) Events(ctx context.Context, taskID string) ([]TaskEvent, error) {
	var events []TaskEvent
	err := j.db.Session(ctx).
		Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load task events: %w", err)
	}
	return events, nil
}

// Prune deletes records and events last touched before the cutoff.
func (j *Journal) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	var pruned int64

	err := j.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []TaskRecord
		if err := tx.Where("updated_at < ?", cutoff).Find(&stale).Error; err != nil {
			return fmt.Errorf("find stale records: %w", err)
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]string, 0, len(stale))
		for _, record := range stale {
			ids = append(ids, record.ID)
		}

		if err := tx.Where("task_id IN ?", ids).Delete(&TaskEvent{}).Error; err != nil {
			return fmt.Errorf("delete stale events: %w", err)
		}
		result := tx.Where("id IN ?", ids).Delete(&TaskRecord{})
		if result.Error != nil {
			return fmt.Errorf("delete stale records: %w", result.Error)
		}
		pruned = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pruned, nil
}
