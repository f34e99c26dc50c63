package services

import (
	"context"
	"strings"
	"time"

	"github.com/mroshb/lid_lottery/internal/lock"
	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/mroshb/lid_lottery/internal/repositories"
	"github.com/mroshb/lid_lottery/internal/security"
	"github.com/mroshb/lid_lottery/pkg/logger"
)

type RedeemStatus string

const (
	RedeemStatusInvalid         RedeemStatus = "invalid"
	RedeemStatusExpired         RedeemStatus = "expired"
	RedeemStatusAlreadyRedeemed RedeemStatus = "already_redeemed"
	RedeemStatusOK              RedeemStatus = "ok"
)

type RedeemService struct {
	codes  *repositories.CodeRepository
	codec  *security.CouponCodec
	locker lock.Locker
	events EventSink
	now    func() time.Time
}

func NewRedeemService(
	codes *repositories.CodeRepository,
	codec *security.CouponCodec,
	locker lock.Locker,
	events EventSink,
) *RedeemService {
	return &RedeemService{
		codes:  codes,
		codec:  codec,
		locker: locker,
		events: events,
		now:    time.Now,
	}
}

// Redeem consumes a coupon. A coupon can be redeemed once; later calls
// with the same token report already_redeemed.
func (s *RedeemService) Redeem(ctx context.Context, token string) (RedeemStatus, error) {
	token = strings.TrimSpace(token)

	claims, ok := s.codec.Verify(token)
	if !ok || claims.Lid == "" || claims.Exp == 0 {
		s.record(ctx, RedeemStatusInvalid, nil, "")
		return RedeemStatusInvalid, nil
	}

	now := s.now()
	if claims.ExpiredAt(now) {
		s.record(ctx, RedeemStatusExpired, nil, claims.Lid)
		return RedeemStatusExpired, nil
	}

	unlock, err := s.locker.Lock(ctx, claims.Lid)
	if err != nil {
		return "", lockError(err)
	}
	defer unlock()

	var (
		status RedeemStatus
		codeID *uint
	)
	err = s.codes.Transaction(ctx, func(repo *repositories.CodeRepository) error {
		coupon, err := repo.LockCouponByToken(token)
		if err != nil {
			return err
		}
		if coupon == nil {
			status = RedeemStatusInvalid
			return nil
		}
		codeID = &coupon.LidCodeID

		if coupon.IsRedeemed() {
			status = RedeemStatusAlreadyRedeemed
			return nil
		}

		swapped, err := repo.MarkCouponRedeemed(coupon.ID, now)
		if err != nil {
			return err
		}
		if !swapped {
			status = RedeemStatusAlreadyRedeemed
			return nil
		}

		record, err := repo.LockCodeByID(coupon.LidCodeID)
		if err != nil {
			return err
		}
		record.Status = models.CodeStatusRedeemed
		record.Outcome = models.OutcomeWin
		if record.RedeemedAt == nil {
			record.RedeemedAt = &now
		}
		if err := repo.SaveCode(record); err != nil {
			return err
		}

		status = RedeemStatusOK
		return nil
	})
	if err != nil {
		return "", err
	}

	if status == RedeemStatusOK {
		logger.Info("Coupon redeemed", "code", claims.Lid)
	}
	s.record(ctx, status, codeID, claims.Lid)
	return status, nil
}

func (s *RedeemService) record(ctx context.Context, status RedeemStatus, codeID *uint, code string) {
	emit(context.WithoutCancel(ctx), s.events, Event{
		Kind:   EventRedeem,
		Result: string(status),
		CodeID: codeID,
		Code:   code,
		At:     s.now(),
	})
}
