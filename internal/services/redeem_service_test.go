package services

import (
	"context"
	"testing"
	"time"

	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/mroshb/lid_lottery/internal/security"
	"github.com/stretchr/testify/require"
)

func TestRedeem_OkThenAlreadyRedeemed(t *testing.T) {
	env := newTestEnv(t, models.OutcomeWin)
	ctx := context.Background()

	won, err := env.play.Play(ctx, "2026")
	require.NoError(t, err)
	require.Equal(t, PlayStatusWin, won.Status)

	env.advance(time.Hour)
	redeemedAt := env.clock()

	status, err := env.redeem.Redeem(ctx, "  "+won.Token+"\n")
	require.NoError(t, err)
	require.Equal(t, RedeemStatusOK, status)

	env.advance(time.Hour)
	status, err = env.redeem.Redeem(ctx, won.Token)
	require.NoError(t, err)
	require.Equal(t, RedeemStatusAlreadyRedeemed, status)

	record := env.record(t, "2026")
	require.Equal(t, models.CodeStatusRedeemed, record.Status)
	require.Equal(t, models.OutcomeWin, record.Outcome)
	require.NotNil(t, record.RedeemedAt)
	require.True(t, record.RedeemedAt.Equal(redeemedAt))

	var coupon models.Coupon
	require.NoError(t, env.db.Where("lid_code_id = ?", record.ID).First(&coupon).Error)
	require.Equal(t, models.CouponStatusRedeemed, coupon.Status)
	require.NotNil(t, coupon.RedeemedAt)
	require.True(t, coupon.RedeemedAt.Equal(redeemedAt))
}

func TestRedeem_Expired(t *testing.T) {
	env := newTestEnv(t, models.OutcomeWin)

	claims := security.CouponClaims{
		Exp:   env.clock().Add(-time.Second).Unix(),
		Iat:   env.clock().Add(-testTTL).Unix(),
		Lid:   "2026",
		Nonce: "0011223344556677",
	}
	token, err := env.codec.Mint(claims)
	require.NoError(t, err)

	status, err := env.redeem.Redeem(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, RedeemStatusExpired, status)
}

func TestRedeem_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name  string
		after time.Duration
		want  RedeemStatus
	}{
		{name: "One second before expiry", after: testTTL - time.Second, want: RedeemStatusOK},
		{name: "Exactly at expiry", after: testTTL, want: RedeemStatusExpired},
		{name: "After expiry", after: testTTL + time.Second, want: RedeemStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, models.OutcomeWin)
			ctx := context.Background()

			won, err := env.play.Play(ctx, "2026")
			require.NoError(t, err)

			env.advance(tt.after)
			status, err := env.redeem.Redeem(ctx, won.Token)
			require.NoError(t, err)
			require.Equal(t, tt.want, status)

			if tt.want == RedeemStatusExpired {
				require.Equal(t, models.CodeStatusWon, env.record(t, "2026").Status)
			}
		})
	}
}

func TestRedeem_Invalid(t *testing.T) {
	env := newTestEnv(t, models.OutcomeWin)
	ctx := context.Background()

	won, err := env.play.Play(ctx, "2026")
	require.NoError(t, err)

	foreign, err := security.NewCouponCodec([]byte("another_secret_key_with_32_chars!"))
	require.NoError(t, err)
	forged, err := foreign.Mint(security.CouponClaims{Exp: env.clock().Add(time.Hour).Unix(), Lid: "2026", Nonce: "00"})
	require.NoError(t, err)

	// Correctly signed but never issued.
	unissued, err := env.codec.Mint(security.CouponClaims{Exp: env.clock().Add(time.Hour).Unix(), Lid: "2026", Nonce: "ff"})
	require.NoError(t, err)
	noLid, err := env.codec.Mint(security.CouponClaims{Exp: env.clock().Add(time.Hour).Unix(), Nonce: "aa"})
	require.NoError(t, err)
	noExp, err := env.codec.Mint(security.CouponClaims{Lid: "2026", Nonce: "bb"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "Empty", token: ""},
		{name: "Garbage", token: "randomstring"},
		{name: "Truncated", token: won.Token[:len(won.Token)-2]},
		{name: "Foreign secret", token: forged},
		{name: "Never issued", token: unissued},
		{name: "Missing lid", token: noLid},
		{name: "Missing exp", token: noExp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := env.redeem.Redeem(ctx, tt.token)
			require.NoError(t, err)
			require.Equal(t, RedeemStatusInvalid, status)
		})
	}

	require.Equal(t, models.CodeStatusWon, env.record(t, "2026").Status)

	status, err := env.redeem.Redeem(ctx, won.Token)
	require.NoError(t, err)
	require.Equal(t, RedeemStatusOK, status)
}

func TestRedeem_EmitsEvents(t *testing.T) {
	env := newTestEnv(t, models.OutcomeWin)
	ctx := context.Background()

	won, err := env.play.Play(ctx, "2026")
	require.NoError(t, err)
	_, err = env.redeem.Redeem(ctx, won.Token)
	require.NoError(t, err)
	_, err = env.redeem.Redeem(ctx, "garbage")
	require.NoError(t, err)

	events := env.sink.Events()
	require.Len(t, events, 3)
	require.Equal(t, EventPlay, events[0].Kind)
	require.Equal(t, string(PlayStatusWin), events[0].Result)
	require.Equal(t, EventRedeem, events[1].Kind)
	require.Equal(t, string(RedeemStatusOK), events[1].Result)
	require.Equal(t, "2026", events[1].Code)
	require.NotNil(t, events[1].CodeID)
	require.Equal(t, string(RedeemStatusInvalid), events[2].Result)

	// Redeem events are not play attempts.
	require.Equal(t, int64(1), env.count(t, &models.PlayAttempt{}))
}
