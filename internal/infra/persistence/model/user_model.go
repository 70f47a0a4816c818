// Package model holds the GORM persistence models. They never leave the
// infra layer; repositories map them to domain entities.
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table.
// Booleans carry no GORM default so that an explicit false is written on insert.
type UserModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email           string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Nick            string     `gorm:"type:varchar(30);uniqueIndex;not null"`
	PasswordHash    *string    `gorm:"type:varchar(255)"`
	Role            string     `gorm:"type:varchar(20);not null;index"`
	Provider        string     `gorm:"type:varchar(20);not null"`
	IsActive        bool       `gorm:"not null"`
	EmailVerified   bool       `gorm:"not null"`
	EmailVerifiedAt *time.Time
	TokenVersion    int `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	RefreshTokens      []RefreshTokenModel      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	VerificationTokens []VerificationTokenModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Events             []EventModel             `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
