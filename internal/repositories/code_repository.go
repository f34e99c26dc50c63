package repositories

import (
	"context"
	"time"

	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/mroshb/lid_lottery/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CodeRepository reads and writes code records and their coupons. Methods
// called on the repository handed to Transaction run inside that transaction.
type CodeRepository struct {
	db *gorm.DB
}

func NewCodeRepository(db *gorm.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

// Transaction runs fn atomically. Any error returned by fn rolls back every
// write made through the repository it received.
func (r *CodeRepository) Transaction(ctx context.Context, fn func(repo *CodeRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CodeRepository{db: tx})
	})
}

// LockOrCreate returns the normalized record for code, creating it first if it
// does not exist. The row stays locked until the surrounding transaction ends.
func (r *CodeRepository) LockOrCreate(code string) (*models.LidCode, error) {
	fresh := models.LidCode{
		Code:    code,
		Outcome: models.OutcomePending,
		Status:  models.CodeStatusNew,
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to create code record")
	}

	var record models.LidCode
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&record).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to lock code record")
	}

	normalized := models.Normalize(record)
	return &normalized, nil
}

// LockCodeByID locks and returns the normalized record with the given id.
func (r *CodeRepository) LockCodeByID(id uint) (*models.LidCode, error) {
	var record models.LidCode
	result := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, id)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "code record not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to lock code record")
	}

	normalized := models.Normalize(record)
	return &normalized, nil
}

// FindByCode returns the normalized record for code, or nil if there is none.
func (r *CodeRepository) FindByCode(code string) (*models.LidCode, error) {
	var record models.LidCode
	result := r.db.Where("code = ?", code).First(&record)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get code record")
	}

	normalized := models.Normalize(record)
	return &normalized, nil
}

// SaveCode persists the state columns of record.
func (r *CodeRepository) SaveCode(record *models.LidCode) error {
	err := r.db.Model(record).
		Select("outcome", "status", "played_at", "won_at", "redeemed_at").
		Updates(record).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save code record")
	}
	return nil
}

// FindCouponByCodeID returns the coupon minted for a code, or nil.
func (r *CodeRepository) FindCouponByCodeID(codeID uint) (*models.Coupon, error) {
	var coupon models.Coupon
	result := r.db.Where("lid_code_id = ?", codeID).First(&coupon)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get coupon")
	}
	return &coupon, nil
}

func (r *CodeRepository) CreateCoupon(coupon *models.Coupon) error {
	if err := r.db.Omit(clause.Associations).Create(coupon).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create coupon")
	}
	return nil
}

// LockCouponByToken locks and returns the coupon carrying token, or nil.
func (r *CodeRepository) LockCouponByToken(token string) (*models.Coupon, error) {
	var coupon models.Coupon
	result := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&coupon)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to lock coupon")
	}
	return &coupon, nil
}

// MarkCouponRedeemed flips an issued coupon to redeemed. It reports false
// when the coupon was not in the issued state, leaving it untouched.
func (r *CodeRepository) MarkCouponRedeemed(couponID uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.Coupon{}).
		Where("id = ? AND status = ?", couponID, models.CouponStatusIssued).
		Updates(map[string]interface{}{
			"status":      models.CouponStatusRedeemed,
			"redeemed_at": at,
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to redeem coupon")
	}
	return result.RowsAffected == 1, nil
}
