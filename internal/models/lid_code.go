package models

import (
	"time"
)

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeWin     Outcome = "win"
	OutcomeLose    Outcome = "lose"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomePending, OutcomeWin, OutcomeLose:
		return true
	}
	return false
}

type CodeStatus string

const (
	CodeStatusNew      CodeStatus = "new"
	CodeStatusPlayed   CodeStatus = "played"
	CodeStatusWon      CodeStatus = "won"
	CodeStatusRedeemed CodeStatus = "redeemed"
)

// LidCode is the play state of one lottery identifier.
type LidCode struct {
	ID         uint       `gorm:"primaryKey"`
	Code       string     `gorm:"type:varchar(32);uniqueIndex;not null"`
	Outcome    Outcome    `gorm:"type:varchar(16);not null;default:'pending'"`
	Status     CodeStatus `gorm:"type:varchar(16);not null;default:'new'"`
	PlayedAt   *time.Time
	WonAt      *time.Time
	RedeemedAt *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (LidCode) TableName() string {
	return "lid_codes"
}

// HasWon reports whether the code is on the win path.
func (c *LidCode) HasWon() bool {
	return c.Status == CodeStatusWon || c.Status == CodeStatusRedeemed
}

// Normalize repairs an inconsistent outcome/status pair as read from storage.
// A broken outcome is reset to pending, never promoted to win; a pending
// outcome on an already played code can then only be drawn as a loss.
func Normalize(c LidCode) LidCode {
	if !c.Outcome.Valid() {
		c.Outcome = OutcomePending
	}

	switch c.Status {
	case CodeStatusNew, CodeStatusPlayed, CodeStatusWon, CodeStatusRedeemed:
	default:
		if c.PlayedAt != nil {
			c.Status = CodeStatusPlayed
		} else {
			c.Status = CodeStatusNew
		}
	}

	switch c.Status {
	case CodeStatusNew:
		c.Outcome = OutcomePending
	case CodeStatusPlayed:
		if c.Outcome != OutcomeLose {
			c.Outcome = OutcomePending
		}
	case CodeStatusWon, CodeStatusRedeemed:
		if c.Outcome != OutcomeWin {
			c.Outcome = OutcomePending
		}
	}
	return c
}
