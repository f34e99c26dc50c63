package models

import (
	"time"

	"gorm.io/gorm"
)

type CouponStatus string

const (
	CouponStatusIssued   CouponStatus = "issued"
	CouponStatusRedeemed CouponStatus = "redeemed"
)

// Coupon is the signed prize token minted when a code wins. One per LidCode.
type Coupon struct {
	ID         uint         `gorm:"primaryKey"`
	LidCodeID  uint         `gorm:"uniqueIndex;not null"`
	LidCode    LidCode      `gorm:"foreignKey:LidCodeID;constraint:OnDelete:CASCADE"`
	Token      string       `gorm:"type:varchar(512);uniqueIndex;not null"`
	IssuedAt   time.Time    `gorm:"not null"`
	ExpiresAt  time.Time    `gorm:"not null"`
	Status     CouponStatus `gorm:"type:varchar(16);not null;default:'issued'"`
	RedeemedAt *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (Coupon) TableName() string {
	return "coupons"
}

// BeforeCreate rejects coupons with an unknown status or an empty validity window
func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.Status != CouponStatusIssued && c.Status != CouponStatusRedeemed {
		return gorm.ErrInvalidData
	}
	if c.Token == "" || !c.ExpiresAt.After(c.IssuedAt) {
		return gorm.ErrInvalidData
	}
	return nil
}

func (c *Coupon) IsRedeemed() bool {
	return c.Status == CouponStatusRedeemed
}
