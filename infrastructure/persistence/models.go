package persistence

import "time"

// TaskRecord is the durable summary row for one submitted task. Its status
// fields track the most recent observation.
type TaskRecord struct {
	ID         string `gorm:"primaryKey"`
	Operation  string `gorm:"index"`
	Target     string
	Status     string `gorm:"index"`
	Percentage float64
	Message    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (TaskRecord) TableName() string {
	return "task_records"
}

// TaskEvent is one observed status update for a task.
type TaskEvent struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	TaskID     string `gorm:"index"`
	Status     string
	Percentage float64
	Message    string
	Stage      string
	Transport  string
	CreatedAt  time.Time
}

func (TaskEvent) TableName() string {
	return "task_events"
}
