package state

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Entity struct {
	ID uint `gorm:"primaryKey"`
}

// EmailAddress is an address a player volunteered from the results screen.
// Recording it changes no game state; it exists purely as an audit trail.
type EmailAddress struct {
	Entity

	Token   string `gorm:"size:64"`
	Room    string `gorm:"size:64"`
	Team    int
	Address string `gorm:"size:128"`
	Created time.Time
}

func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&EmailAddress{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// AuditLog persists the few things worth keeping beyond a round. A nil
// AuditLog is valid and drops everything.
type AuditLog struct {
	db *gorm.DB
}

func NewAuditLog(db *gorm.DB) *AuditLog {
	return &AuditLog{db: db}
}

func (a *AuditLog) RecordEmail(ctx context.Context, token string, room string, team int, address string) error {
	if a == nil || a.db == nil {
		return nil
	}

	entry := EmailAddress{
		Token:   token,
		Room:    room,
		Team:    team,
		Address: address,
		Created: time.Now(),
	}

	return a.db.WithContext(ctx).Create(&entry).Error
}
