package models

import (
	"time"

	"github.com/google/uuid"
)

// Task представляет задание, размещённое заказчиком.
type Task struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	OwnerID             uuid.UUID  `db:"owner_id" json:"owner_id"`
	Title               string     `db:"title" json:"title"`
	Description         string     `db:"description" json:"description"`
	Category            string     `db:"category" json:"category"`
	Budget              float64    `db:"budget" json:"budget"`
	City                string     `db:"city" json:"city"`
	Address             *string    `db:"address" json:"address,omitempty"`
	Latitude            float64    `db:"latitude" json:"latitude"`
	Longitude           float64    `db:"longitude" json:"longitude"`
	ScheduledAt         time.Time  `db:"scheduled_at" json:"scheduled_at"`
	IsInstant           bool       `db:"is_instant" json:"is_instant"`
	Status              string     `db:"status" json:"status"`
	AssignedWorkerID    *uuid.UUID `db:"assigned_worker_id" json:"assigned_worker_id,omitempty"`
	AcceptedBidAmount   *float64   `db:"accepted_bid_amount" json:"accepted_bid_amount,omitempty"`
	WorkerArrived       bool       `db:"worker_arrived" json:"worker_arrived"`
	CompletionRequested bool       `db:"completion_requested" json:"completion_requested"`
	CompletionPhotoID   *uuid.UUID `db:"completion_photo_id" json:"completion_photo_id,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`

	// Заполняется отдельным запросом, в таблице tasks не хранится.
	Equipment []TaskEquipment `db:"-" json:"equipment,omitempty"`
}

// TaskEquipment представляет единицу инвентаря, необходимую для задания.
type TaskEquipment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TaskID     uuid.UUID `db:"task_id" json:"task_id"`
	Name       string    `db:"name" json:"name"`
	ProvidedBy string    `db:"provided_by" json:"provided_by"`
}

// TaskWithCount объединяет задание с количеством откликов на него.
type TaskWithCount struct {
	Task
	BidsCount int `db:"bids_count" json:"bids_count"`
}

// TaskWithDistance объединяет задание с расстоянием до точки поиска.
type TaskWithDistance struct {
	TaskWithCount
	DistanceKm float64 `json:"distance_km"`
}
