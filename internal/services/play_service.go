package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/mroshb/lid_lottery/internal/lock"
	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/mroshb/lid_lottery/internal/repositories"
	"github.com/mroshb/lid_lottery/internal/security"
	"github.com/mroshb/lid_lottery/pkg/errors"
	"github.com/mroshb/lid_lottery/pkg/logger"
)

type PlayStatus string

const (
	PlayStatusInvalid PlayStatus = "invalid"
	PlayStatusLose    PlayStatus = "lose"
	PlayStatusWin     PlayStatus = "win"
)

// PlayResult is what a play call reveals. Token and ExpiresAt are set only
// on a win. Replayed marks an answer served from a previous play; Redeemed
// marks a winning code whose coupon has already been used.
type PlayResult struct {
	Status    PlayStatus
	Token     string
	ExpiresAt time.Time
	Replayed  bool
	Redeemed  bool
}

type PlayService struct {
	codes     *repositories.CodeRepository
	validator *security.CodeValidator
	codec     *security.CouponCodec
	decider   OutcomeDecider
	locker    lock.Locker
	events    EventSink
	ttl       time.Duration
	now       func() time.Time
}

func NewPlayService(
	codes *repositories.CodeRepository,
	validator *security.CodeValidator,
	codec *security.CouponCodec,
	decider OutcomeDecider,
	locker lock.Locker,
	events EventSink,
	ttl time.Duration,
) *PlayService {
	return &PlayService{
		codes:     codes,
		validator: validator,
		codec:     codec,
		decider:   decider,
		locker:    locker,
		events:    events,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Play reveals the outcome of code, drawing it on the first valid play. The
// outcome of a code never changes once drawn and a winning code always
// returns the same coupon.
func (s *PlayService) Play(ctx context.Context, input string) (*PlayResult, error) {
	code := strings.TrimSpace(input)
	if !s.validator.Valid(code) {
		emit(context.WithoutCancel(ctx), s.events, Event{
			Kind:   EventPlay,
			Result: string(PlayStatusInvalid),
			Input:  input,
			At:     s.now(),
		})
		return &PlayResult{Status: PlayStatusInvalid}, nil
	}

	unlock, err := s.locker.Lock(ctx, code)
	if err != nil {
		return nil, lockError(err)
	}
	defer unlock()

	var (
		result *PlayResult
		codeID uint
	)
	err = s.codes.Transaction(ctx, func(repo *repositories.CodeRepository) error {
		record, err := repo.LockOrCreate(code)
		if err != nil {
			return err
		}
		codeID = record.ID

		result, err = s.resolve(repo, record)
		return err
	})
	if err != nil {
		return nil, err
	}

	emit(context.WithoutCancel(ctx), s.events, Event{
		Kind:     EventPlay,
		Result:   string(result.Status),
		CodeID:   &codeID,
		Code:     code,
		Input:    input,
		At:       s.now(),
		Replayed: result.Replayed,
	})
	return result, nil
}

// lockError reports a lock wait that ran out of time as ErrCodeLockTimeout
// and anything else as an internal error.
func lockError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.Wrap(err, errors.ErrCodeLockTimeout, "timed out waiting for lock")
	}
	return errors.Wrap(err, errors.ErrCodeInternalError, "failed to lock code")
}

func (s *PlayService) resolve(repo *repositories.CodeRepository, record *models.LidCode) (*PlayResult, error) {
	if record.HasWon() {
		coupon, err := repo.FindCouponByCodeID(record.ID)
		if err != nil {
			return nil, err
		}
		if coupon != nil {
			return &PlayResult{
				Status:    PlayStatusWin,
				Token:     coupon.Token,
				ExpiresAt: coupon.ExpiresAt,
				Replayed:  true,
				Redeemed:  record.Status == models.CodeStatusRedeemed || coupon.IsRedeemed(),
			}, nil
		}
	}

	decided := false
	if record.Outcome == models.OutcomePending {
		outcome, err := s.decider.Decide(*record)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to decide outcome")
		}
		record.Outcome = outcome
		decided = true
		logger.Debug("Outcome drawn", "code", record.Code, "outcome", outcome)
	}

	if record.Status == models.CodeStatusPlayed && record.Outcome == models.OutcomeLose {
		if decided {
			if err := repo.SaveCode(record); err != nil {
				return nil, err
			}
		}
		return &PlayResult{Status: PlayStatusLose, Replayed: !decided}, nil
	}

	now := s.now()
	if record.Outcome == models.OutcomeWin {
		return s.issue(repo, record, now)
	}

	if record.HasWon() {
		logger.Warn("Settling won code without coupon as played", "code", record.Code, "status", record.Status)
	}
	record.Status = models.CodeStatusPlayed
	if record.PlayedAt == nil {
		record.PlayedAt = &now
	}
	if err := repo.SaveCode(record); err != nil {
		return nil, err
	}
	return &PlayResult{Status: PlayStatusLose}, nil
}

// issue mints the coupon of a winning code. A code already marked redeemed
// whose coupon went missing gets a replacement that is redeemed as well.
func (s *PlayService) issue(repo *repositories.CodeRepository, record *models.LidCode, now time.Time) (*PlayResult, error) {
	claims, err := security.NewCouponClaims(record.Code, now, s.ttl)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to build coupon claims")
	}
	token, err := s.codec.Mint(claims)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to mint coupon")
	}

	coupon := &models.Coupon{
		LidCodeID: record.ID,
		Token:     token,
		IssuedAt:  claims.IssuedAt(),
		ExpiresAt: claims.ExpiresAt(),
		Status:    models.CouponStatusIssued,
	}

	redeemed := record.Status == models.CodeStatusRedeemed
	if redeemed {
		logger.Warn("Replacing missing coupon of redeemed code", "code", record.Code)
		coupon.Status = models.CouponStatusRedeemed
		if record.RedeemedAt == nil {
			record.RedeemedAt = &now
		}
		coupon.RedeemedAt = record.RedeemedAt
	} else {
		record.Status = models.CodeStatusWon
	}
	if record.WonAt == nil {
		record.WonAt = &now
	}
	if record.PlayedAt == nil {
		record.PlayedAt = &now
	}

	if err := repo.SaveCode(record); err != nil {
		return nil, err
	}
	if err := repo.CreateCoupon(coupon); err != nil {
		return nil, err
	}

	logger.Info("Coupon issued", "code", record.Code, "expires_at", coupon.ExpiresAt)
	return &PlayResult{
		Status:    PlayStatusWin,
		Token:     token,
		ExpiresAt: coupon.ExpiresAt,
		Redeemed:  redeemed,
	}, nil
}
