package repositories

import (
	"context"
	"time"

	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/mroshb/lid_lottery/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Append stores one audit row.
func (r *AttemptRepository) Append(ctx context.Context, attempt *models.PlayAttempt) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(attempt).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to record play attempt")
	}
	return nil
}

// ListSince returns attempts created at or after since, oldest first, with
// their code records loaded.
func (r *AttemptRepository) ListSince(ctx context.Context, since time.Time) ([]models.PlayAttempt, error) {
	var attempts []models.PlayAttempt
	result := r.db.WithContext(ctx).
		Preload("LidCode").
		Where("created_at >= ?", since).
		Order("id ASC").
		Find(&attempts)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to list play attempts")
	}
	return attempts, nil
}

// CountByResult tallies attempts per result.
func (r *AttemptRepository) CountByResult(ctx context.Context) (map[models.PlayResult]int64, error) {
	var rows []struct {
		Result models.PlayResult
		Total  int64
	}
	result := r.db.WithContext(ctx).
		Model(&models.PlayAttempt{}).
		Select("result, COUNT(*) AS total").
		Group("result").
		Scan(&rows)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to count play attempts")
	}

	counts := make(map[models.PlayResult]int64, len(rows))
	for _, row := range rows {
		counts[row.Result] = row.Total
	}
	return counts, nil
}
