package model

import (
	"time"

	"github.com/google/uuid"
)

// EventModel mirrors the 'events' table. UserID is nullable: deleting the
// owner orphans the event instead of removing it.
type EventModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string     `gorm:"type:varchar(200);not null"`
	Slug        string     `gorm:"type:varchar(220);uniqueIndex;not null"`
	Description string     `gorm:"type:text"`
	DateStart   time.Time  `gorm:"not null;index"`
	DateEnd     time.Time  `gorm:"not null"`
	UserID      *uuid.UUID `gorm:"type:uuid;index"`
	Published   bool       `gorm:"not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (EventModel) TableName() string {
	return "events"
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&UserModel{},
		&RefreshTokenModel{},
		&VerificationTokenModel{},
		&EventModel{},
	}
}
