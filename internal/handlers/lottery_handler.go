package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mroshb/lid_lottery/internal/middleware"
	"github.com/mroshb/lid_lottery/internal/services"
	"github.com/mroshb/lid_lottery/pkg/errors"
	"github.com/mroshb/lid_lottery/pkg/logger"
)

type PlayRequest struct {
	LidCode string `json:"lid_code"`
}

type PlayResponse struct {
	Status      services.PlayStatus `json:"status"`
	Message     string              `json:"message"`
	CouponToken string              `json:"coupon_token,omitempty"`
	ExpiresAt   string              `json:"expires_at,omitempty"`
}

type RedeemRequest struct {
	CouponToken string `json:"coupon_token"`
}

type RedeemResponse struct {
	Status  services.RedeemStatus `json:"status"`
	Message string                `json:"message"`
}

type LotteryHandler struct {
	play   *services.PlayService
	redeem *services.RedeemService
}

func NewLotteryHandler(play *services.PlayService, redeem *services.RedeemService) *LotteryHandler {
	return &LotteryHandler{play: play, redeem: redeem}
}

// Register mounts the lottery API on router.
func (h *LotteryHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	api := router.Group("/api")
	api.Post("/play", h.Play)
	api.Post("/redeem", h.Redeem)
}

func (h *LotteryHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

func (h *LotteryHandler) Play(c *fiber.Ctx) error {
	var req PlayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(PlayResponse{
			Status:  services.PlayStatusInvalid,
			Message: playMessage(&services.PlayResult{Status: services.PlayStatusInvalid}),
		})
	}

	result, err := h.play.Play(c.UserContext(), req.LidCode)
	if err != nil {
		return internalError(c, "Play failed", err)
	}

	resp := PlayResponse{
		Status:  result.Status,
		Message: playMessage(result),
	}
	if result.Status == services.PlayStatusWin {
		resp.CouponToken = result.Token
		resp.ExpiresAt = result.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(resp)
}

func (h *LotteryHandler) Redeem(c *fiber.Ctx) error {
	var req RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(RedeemResponse{
			Status:  services.RedeemStatusInvalid,
			Message: redeemMessages[services.RedeemStatusInvalid],
		})
	}

	status, err := h.redeem.Redeem(c.UserContext(), req.CouponToken)
	if err != nil {
		return internalError(c, "Redeem failed", err)
	}

	return c.JSON(RedeemResponse{
		Status:  status,
		Message: redeemMessages[status],
	})
}

func internalError(c *fiber.Ctx, msg string, err error) error {
	code := errors.CodeOf(err)
	logger.Error(msg,
		"request_id", middleware.GetRequestID(c),
		"code", code,
		"error", err,
	)

	if code == errors.ErrCodeLockTimeout {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "busy, try again",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
	})
}

var redeemMessages = map[services.RedeemStatus]string{
	services.RedeemStatusInvalid:         "Invalid coupon.",
	services.RedeemStatusExpired:         "This coupon has expired.",
	services.RedeemStatusAlreadyRedeemed: "This coupon has already been redeemed.",
	services.RedeemStatusOK:              "Coupon redeemed.",
}

func playMessage(result *services.PlayResult) string {
	switch result.Status {
	case services.PlayStatusWin:
		switch {
		case result.Redeemed:
			return "This code has already been redeemed. Showing its coupon."
		case result.Replayed:
			return "You already won. Showing your coupon again."
		default:
			return "Congratulations, you won!"
		}
	case services.PlayStatusLose:
		return "Sorry, no prize this time."
	default:
		return "Invalid code."
	}
}
