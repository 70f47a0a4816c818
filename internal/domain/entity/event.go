package entity

import (
	"time"

	"github.com/google/uuid"
)

// Event is a listed event. Only the fields the authorization layer and the
// basic CRUD endpoints need are modelled here.
type Event struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Description string
	DateStart   time.Time
	DateEnd     time.Time
	UserID      *uuid.UUID // Owner; nil for orphaned events, which only ADMIN may touch.
	Published   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOwnedBy reports whether userID owns the event.
func (e *Event) IsOwnedBy(userID uuid.UUID) bool {
	return e.UserID != nil && *e.UserID == userID
}
