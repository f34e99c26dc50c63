package models

import (
	"time"

	"gorm.io/gorm"
)

type PlayResult string

const (
	PlayResultInvalid PlayResult = "invalid"
	PlayResultWin     PlayResult = "win"
	PlayResultLose    PlayResult = "lose"
)

// PlayAttempt is the append-only audit row written for every play call.
// LidCodeID is nil when the submission did not name a playable code.
type PlayAttempt struct {
	ID        uint       `gorm:"primaryKey"`
	LidCodeID *uint      `gorm:"index"`
	LidCode   *LidCode   `gorm:"foreignKey:LidCodeID;constraint:OnDelete:CASCADE"`
	Result    PlayResult `gorm:"type:varchar(16);not null;index"`
	Input     string     `gorm:"type:varchar(64)"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
}

func (PlayAttempt) TableName() string {
	return "play_attempts"
}

func (a *PlayAttempt) BeforeCreate(tx *gorm.DB) error {
	switch a.Result {
	case PlayResultInvalid, PlayResultWin, PlayResultLose:
		return nil
	}
	return gorm.ErrInvalidData
}
