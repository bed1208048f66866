package session

import "time"

type Session struct {
	ID        string     `gorm:"primaryKey;column:id"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex;not null"`
	ProfileID int64      `gorm:"column:profile_id;index;not null"`
	Kind      string     `gorm:"column:kind;not null"`
	IssuedAt  time.Time  `gorm:"column:issued_at;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;index;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
}

func (Session) TableName() string {
	return "sessions"
}
