package models

import "time"

type IdempotencyRecord struct {
	ID         uint      `gorm:"primaryKey"`
	Key        string    `gorm:"column:idem_key;type:varchar(128);not null;uniqueIndex:idx_idem_key_user"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_idem_key_user"`
	Method     string    `gorm:"type:varchar(10);not null"`
	Path       string    `gorm:"type:varchar(255);not null"`
	StatusCode int       `gorm:"not null"`
	Body       []byte    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"index"`
}
