package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenModel mirrors the 'refresh_tokens' ledger table.
type RefreshTokenModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID              uuid.UUID  `gorm:"type:uuid;not null;index"`
	TokenHash           string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt           time.Time  `gorm:"not null;index"`
	RevokedAt           *time.Time `gorm:"index"`
	ReplacedByTokenHash *string    `gorm:"type:varchar(64)"`
	CreatedAt           time.Time
}

// TableName explicitly sets the table name for GORM.
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

// VerificationTokenModel mirrors the 'verification_tokens' table.
type VerificationTokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_verification_tokens_user_type"`
	Token     string    `gorm:"type:varchar(128);uniqueIndex;not null"`
	Type      string    `gorm:"type:varchar(32);not null;index:idx_verification_tokens_user_type"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (VerificationTokenModel) TableName() string {
	return "verification_tokens"
}
